package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Build metadata, overridable at link time:
//
//	go build -ldflags "-X main.version=v1.2.3 -X main.gitRev=abc1234"
var (
	version = "v0.1.0-dev"
	gitRev  = ""
)

var (
	// Global flags
	verbose bool
	backend string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gpusolve",
	Short: "GPU-resident primitives for iterative sparse solvers",
	Long: `gpusolve runs Krylov-solver building blocks on the GPU via WebGPU:
a block-Jacobi preconditioner apply over pre-factored diagonal blocks and a
device-side dot product. This CLI exposes the device surface for diagnostics.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the gpusolve version",
	Run: func(cmd *cobra.Command, args []string) {
		if gitRev != "" {
			fmt.Printf("gpusolve %s (%s)\n", version, gitRev)
			return
		}
		fmt.Printf("gpusolve %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "auto",
		"adapter preference: auto, high-performance or low-power")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
