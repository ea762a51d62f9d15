// Package gpu owns the WebGPU device context and buffer plumbing for the
// solver kernels. Uses cogentcore/webgpu for zero-CGO WebGPU bindings.
package gpu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// PowerPreference selects which adapter class to request first.
type PowerPreference int

const (
	// PowerAuto lets the implementation pick an adapter.
	PowerAuto PowerPreference = iota
	// PowerHighPerformance prefers a discrete GPU.
	PowerHighPerformance
	// PowerLowPower prefers an integrated GPU.
	PowerLowPower
)

// ParsePowerPreference maps a CLI-style string to a PowerPreference.
// Unknown values fall back to PowerAuto.
func ParsePowerPreference(s string) PowerPreference {
	switch strings.ToLower(s) {
	case "high-performance", "high", "discrete":
		return PowerHighPerformance
	case "low-power", "low", "integrated":
		return PowerLowPower
	default:
		return PowerAuto
	}
}

// Options configures Context creation. The zero value requests the default
// adapter and logs nothing.
type Options struct {
	Power  PowerPreference
	Logger *zap.Logger
}

// Context owns the WebGPU instance, adapter, device and queue used by every
// executor. It is explicit configuration: constructors take a *Context, there
// is no package-level singleton.
//
// Persistent buffers created through a Context are read-only after upload and
// may be referenced by any number of bind groups concurrently. The Context
// itself must not be released while encoded work is still in flight.
type Context struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue

	info wgpu.AdapterInfo
	pool *BufferPool
	log  *zap.Logger
}

// New creates a Context. All failures (missing native library, no adapter,
// device creation) are fatal and surface synchronously; there is no retry.
func New(opts Options) (ctx *Context, err error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	// Recover from panic if the wgpu native library is not found.
	defer func() {
		if r := recover(); r != nil {
			ctx = nil
			err = fmt.Errorf("gpu: native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return nil, errors.New("gpu: failed to create WebGPU instance")
	}

	adapter, err := requestAdapter(instance, opts.Power)
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("gpu: failed to request adapter: %w", err)
	}

	info := adapter.GetInfo()
	log.Debug("adapter selected",
		zap.String("name", strings.TrimSpace(info.Name)),
		zap.String("backend", info.BackendType.String()),
		zap.String("type", info.AdapterType.String()))

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("gpu: failed to request device: %w", err)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, errors.New("gpu: failed to get queue")
	}

	return &Context{
		instance: instance,
		adapter:  adapter,
		Device:   device,
		Queue:    queue,
		info:     info,
		pool:     NewBufferPool(device),
		log:      log,
	}, nil
}

// requestAdapter walks the preference ladder: the requested class first, then
// low-power, then whatever the implementation offers.
func requestAdapter(instance *wgpu.Instance, power PowerPreference) (*wgpu.Adapter, error) {
	var attempts []*wgpu.RequestAdapterOptions
	switch power {
	case PowerHighPerformance, PowerAuto:
		attempts = []*wgpu.RequestAdapterOptions{
			{PowerPreference: wgpu.PowerPreferenceHighPerformance},
			{PowerPreference: wgpu.PowerPreferenceLowPower},
			nil,
		}
	case PowerLowPower:
		attempts = []*wgpu.RequestAdapterOptions{
			{PowerPreference: wgpu.PowerPreferenceLowPower},
			nil,
		}
	}

	var lastErr error
	for _, opts := range attempts {
		adapter, err := instance.RequestAdapter(opts)
		if err == nil && adapter != nil {
			return adapter, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no adapter available")
	}
	return nil, lastErr
}

// AdapterInfo returns information about the selected GPU adapter.
func (c *Context) AdapterInfo() wgpu.AdapterInfo {
	return c.info
}

// Pool returns the buffer pool bound to this context's device.
func (c *Context) Pool() *BufferPool {
	return c.pool
}

// Describe returns a human-readable description of the adapter, one field per
// line. Intended for logs and the `info` command.
func (c *Context) Describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "adapter:   %s\n", strings.TrimSpace(c.info.Name))
	fmt.Fprintf(&sb, "vendor:    %s (0x%04x)\n", strings.TrimSpace(c.info.VendorName), c.info.VendorId)
	fmt.Fprintf(&sb, "device:    0x%04x\n", c.info.DeviceId)
	fmt.Fprintf(&sb, "type:      %s\n", c.info.AdapterType.String())
	fmt.Fprintf(&sb, "backend:   %s", c.info.BackendType.String())
	if d := strings.TrimSpace(c.info.DriverDescription); d != "" {
		fmt.Fprintf(&sb, "\ndriver:    %s", d)
	}
	return sb.String()
}

// Submit finishes the encoder and submits it to the queue. Recording is
// synchronous; only execution on the device is asynchronous.
func (c *Context) Submit(encoder *wgpu.CommandEncoder) error {
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("gpu: failed to finish command encoder: %w", err)
	}
	c.Queue.Submit(cmd)
	return nil
}

// Release frees all WebGPU resources owned by the context, in reverse
// creation order. The context is unusable afterwards.
func (c *Context) Release() {
	if c.pool != nil {
		c.pool.Clear()
		c.pool = nil
	}
	if c.Queue != nil {
		c.Queue.Release()
		c.Queue = nil
	}
	if c.Device != nil {
		c.Device.Release()
		c.Device = nil
	}
	if c.adapter != nil {
		c.adapter.Release()
		c.adapter = nil
	}
	if c.instance != nil {
		c.instance.Release()
		c.instance = nil
	}
}

// IsAvailable checks whether a WebGPU adapter can be obtained on this system.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil || adapter == nil {
		return false
	}
	adapter.Release()
	return true
}
