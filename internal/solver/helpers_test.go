package solver

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/require"

	"github.com/gpusolve/gpusolve/internal/gpu"
)

// testContext creates a device context or skips the test when no adapter is
// available on the machine running the suite.
func testContext(t *testing.T) *gpu.Context {
	t.Helper()
	ctx, err := gpu.New(gpu.Options{})
	if err != nil {
		t.Skipf("WebGPU not available: %v", err)
	}
	t.Cleanup(ctx.Release)
	return ctx
}

// encodeAndSubmit records fn into a fresh encoder and submits it.
func encodeAndSubmit(t *testing.T, ctx *gpu.Context, fn func(*wgpu.CommandEncoder) error) {
	t.Helper()
	encoder, err := ctx.Device.CreateCommandEncoder(nil)
	require.NoError(t, err)
	require.NoError(t, fn(encoder))
	require.NoError(t, ctx.Submit(encoder))
}

// requireClose asserts element-wise agreement within a relative tolerance,
// falling back to an absolute floor near zero.
func requireClose(t *testing.T, want, got []float32, relTol float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		tol := relTol
		if w := float64(want[i]); w > 1 || w < -1 {
			if w < 0 {
				w = -w
			}
			tol = relTol * w
		}
		require.InDelta(t, want[i], got[i], tol, "index %d", i)
	}
}
