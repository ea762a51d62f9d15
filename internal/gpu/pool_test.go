package gpu

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

func poolContext(t *testing.T) *Context {
	t.Helper()
	ctx, err := New(Options{})
	if err != nil {
		t.Skipf("WebGPU not available: %v", err)
	}
	t.Cleanup(ctx.Release)
	return ctx
}

func TestBufferPoolReuse(t *testing.T) {
	ctx := poolContext(t)
	pool := ctx.Pool()

	buf, err := pool.Acquire(1024, testUsage)
	require.NoError(t, err)
	require.NotNil(t, buf)

	allocated, _, hits, misses, _ := pool.Stats()
	assert.Equal(t, uint64(1), allocated)
	assert.Equal(t, uint64(0), hits)
	assert.Equal(t, uint64(1), misses)

	pool.Release(buf, 1024, testUsage)

	_, released, _, _, pooled := pool.Stats()
	assert.Equal(t, uint64(1), released)
	assert.Equal(t, 1, pooled)

	// A smaller request with compatible usage reuses the pooled buffer.
	reused, err := pool.Acquire(512, testUsage)
	require.NoError(t, err)
	assert.Same(t, buf, reused)

	allocated, _, hits, _, pooled = pool.Stats()
	assert.Equal(t, uint64(1), allocated)
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, 0, pooled)

	pool.Release(reused, 1024, testUsage)
}

func TestBufferPoolUsageMismatch(t *testing.T) {
	ctx := poolContext(t)
	pool := ctx.Pool()

	buf, err := pool.Acquire(256, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
	require.NoError(t, err)
	pool.Release(buf, 256, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)

	// Requesting a usage flag the pooled buffer lacks forces a fresh
	// allocation.
	other, err := pool.Acquire(256, wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst)
	require.NoError(t, err)
	assert.NotSame(t, buf, other)

	allocated, _, _, misses, _ := pool.Stats()
	assert.Equal(t, uint64(2), allocated)
	assert.Equal(t, uint64(2), misses)

	pool.Release(other, 256, wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst)
}

func TestBufferPoolClear(t *testing.T) {
	ctx := poolContext(t)
	pool := ctx.Pool()

	for _, size := range []uint64{512, 8 * 1024, 2 * 1024 * 1024} {
		buf, err := pool.Acquire(size, testUsage)
		require.NoError(t, err)
		pool.Release(buf, size, testUsage)
	}

	_, _, _, _, pooled := pool.Stats()
	assert.Equal(t, 3, pooled)

	pool.Clear()
	_, _, _, _, pooled = pool.Stats()
	assert.Equal(t, 0, pooled)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, smallBuffer, classify(16))
	assert.Equal(t, smallBuffer, classify(smallThreshold-1))
	assert.Equal(t, mediumBuffer, classify(smallThreshold))
	assert.Equal(t, mediumBuffer, classify(mediumThreshold-1))
	assert.Equal(t, largeBuffer, classify(mediumThreshold))
	assert.Equal(t, largeBuffer, classify(64*1024*1024))
}
