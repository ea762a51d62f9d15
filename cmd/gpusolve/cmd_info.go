package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gpusolve/gpusolve/gpu"
)

// gpuInfo describes the selected adapter.
type gpuInfo struct {
	AdapterName string `json:"adapter_name"`
	Backend     string `json:"backend"`
	DeviceType  string `json:"device_type"`
	Vendor      string `json:"vendor"`
	VendorID    uint32 `json:"vendor_id"`
	DeviceID    uint32 `json:"device_id"`
	Driver      string `json:"driver,omitempty"`
}

type buildInfo struct {
	Version string `json:"version"`
	GitRev  string `json:"git_rev,omitempty"`
}

// metrics is the JSON document emitted by the info command. Downstream
// tooling parses it, so field names are stable.
type metrics struct {
	RunID   string    `json:"run_id"`
	Command string    `json:"command"`
	GPU     gpuInfo   `json:"gpu"`
	Build   buildInfo `json:"build"`
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print GPU adapter information as JSON",
	Long: `Initializes the WebGPU device and emits a JSON document describing the
selected adapter. Exits with status 2 when no usable device is found, so
scripts can distinguish "no GPU" from argument errors.`,
	Run: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) {
	ctx, err := gpu.New(gpu.Options{
		Power:  gpu.ParsePowerPreference(backend),
		Logger: logger,
	})
	if err != nil {
		logger.Error("GPU initialization failed", zap.Error(err))
		os.Exit(2)
	}
	defer ctx.Release()

	logger.Debug("device context created", zap.String("adapter", ctx.Describe()))

	info := ctx.AdapterInfo()
	doc := metrics{
		RunID:   time.Now().UTC().Format(time.RFC3339),
		Command: "info",
		GPU: gpuInfo{
			AdapterName: strings.TrimSpace(info.Name),
			Backend:     info.BackendType.String(),
			DeviceType:  info.AdapterType.String(),
			Vendor:      strings.TrimSpace(info.VendorName),
			VendorID:    info.VendorId,
			DeviceID:    info.DeviceId,
			Driver:      strings.TrimSpace(info.DriverDescription),
		},
		Build: buildInfo{Version: version, GitRev: gitRev},
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		logger.Error("failed to marshal metrics", zap.Error(err))
		os.Exit(1)
	}
	fmt.Println(string(out))
}
