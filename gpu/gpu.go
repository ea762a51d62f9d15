// Package gpu provides the WebGPU device context used by the solver
// primitives. Uses cogentcore/webgpu for zero-CGO WebGPU bindings.
//
// Example:
//
//	import (
//	    "github.com/gpusolve/gpusolve/gpu"
//	    "github.com/gpusolve/gpusolve/solver"
//	)
//
//	func main() {
//	    ctx, err := gpu.New(gpu.Options{})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer ctx.Release()
//
//	    dot, err := solver.NewDot(ctx, 1<<20)
//	    ...
//	}
package gpu

import (
	internalgpu "github.com/gpusolve/gpusolve/internal/gpu"
)

// Context owns the WebGPU instance, adapter, device and queue. All solver
// primitives are constructed against a Context and must not outlive it.
type Context = internalgpu.Context

// Options configures Context creation.
type Options = internalgpu.Options

// PowerPreference selects which adapter class to request first.
type PowerPreference = internalgpu.PowerPreference

const (
	PowerAuto            = internalgpu.PowerAuto
	PowerHighPerformance = internalgpu.PowerHighPerformance
	PowerLowPower        = internalgpu.PowerLowPower
)

// New creates a device context. Call Release when done to free GPU
// resources. Returns an error if WebGPU initialization fails, including when
// the native wgpu library is missing.
func New(opts Options) (*Context, error) {
	return internalgpu.New(opts)
}

// ParsePowerPreference maps a CLI-style string ("high-performance",
// "low-power", ...) to a PowerPreference. Unknown values select PowerAuto.
func ParsePowerPreference(s string) PowerPreference {
	return internalgpu.ParsePowerPreference(s)
}

// IsAvailable checks if a WebGPU adapter can be obtained on the current
// system. Useful for graceful fallback to a host implementation.
func IsAvailable() bool {
	return internalgpu.IsAvailable()
}
