package gpu

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// bufferClass buckets buffers by size so the pool search stays short.
type bufferClass int

const (
	smallBuffer  bufferClass = iota // < 4KB: parameter records, scalars
	mediumBuffer                    // 4KB-1MB: reduction scratch for typical n
	largeBuffer                     // > 1MB: vectors and staging for large n
)

const (
	smallThreshold  = 4 * 1024
	mediumThreshold = 1024 * 1024
	maxPoolSize     = 64 // max buffers retained per class
)

// pooledBuffer wraps a GPU buffer with the metadata needed to match it
// against an acquire request.
type pooledBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
	usage  wgpu.BufferUsage
}

// BufferPool reuses transient GPU buffers (reduction scratch, readback
// staging) across iterations to avoid per-call allocation. Persistent solver
// resources are never pooled.
type BufferPool struct {
	device *wgpu.Device

	small  []*pooledBuffer
	medium []*pooledBuffer
	large  []*pooledBuffer

	mu sync.Mutex

	// Statistics
	totalAllocated uint64
	totalReleased  uint64
	poolHits       uint64
	poolMisses     uint64
}

// NewBufferPool creates a buffer pool for the given device.
func NewBufferPool(device *wgpu.Device) *BufferPool {
	return &BufferPool{
		device: device,
		small:  make([]*pooledBuffer, 0, maxPoolSize),
		medium: make([]*pooledBuffer, 0, maxPoolSize),
		large:  make([]*pooledBuffer, 0, maxPoolSize),
	}
}

// Acquire returns a buffer at least size bytes long whose usage covers the
// requested flags, reusing a pooled buffer when one fits.
func (p *BufferPool) Acquire(size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	class := classify(size)
	pool := p.classPool(class)

	for i, pb := range pool {
		if pb.size >= size && pb.usage&usage == usage {
			buffer := pb.buffer
			p.removeAt(class, i)
			p.poolHits++
			return buffer, nil
		}
	}

	p.poolMisses++
	p.totalAllocated++

	buffer, err := p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "pooled",
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: pool allocation of %d bytes: %w", size, err)
	}
	return buffer, nil
}

// Release returns a buffer to the pool. The caller must guarantee no encoded
// work still references it. A full class drops the buffer immediately.
func (p *BufferPool) Release(buffer *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.totalReleased++

	class := classify(size)
	if len(p.classPool(class)) >= maxPoolSize {
		buffer.Release()
		return
	}

	p.add(class, &pooledBuffer{buffer: buffer, size: size, usage: usage})
}

// Clear releases every pooled buffer. Called when the context is released.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, pool := range [][]*pooledBuffer{p.small, p.medium, p.large} {
		for _, pb := range pool {
			pb.buffer.Release()
		}
	}
	p.small = p.small[:0]
	p.medium = p.medium[:0]
	p.large = p.large[:0]
}

// Stats returns usage counters for the pool.
func (p *BufferPool) Stats() (allocated, released, hits, misses uint64, pooledCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.totalAllocated, p.totalReleased, p.poolHits, p.poolMisses,
		len(p.small) + len(p.medium) + len(p.large)
}

func classify(size uint64) bufferClass {
	if size < smallThreshold {
		return smallBuffer
	}
	if size < mediumThreshold {
		return mediumBuffer
	}
	return largeBuffer
}

func (p *BufferPool) classPool(class bufferClass) []*pooledBuffer {
	switch class {
	case smallBuffer:
		return p.small
	case mediumBuffer:
		return p.medium
	default:
		return p.large
	}
}

func (p *BufferPool) add(class bufferClass, pb *pooledBuffer) {
	switch class {
	case smallBuffer:
		p.small = append(p.small, pb)
	case mediumBuffer:
		p.medium = append(p.medium, pb)
	default:
		p.large = append(p.large, pb)
	}
}

func (p *BufferPool) removeAt(class bufferClass, i int) {
	switch class {
	case smallBuffer:
		p.small = append(p.small[:i], p.small[i+1:]...)
	case mediumBuffer:
		p.medium = append(p.medium[:i], p.medium[i+1:]...)
	default:
		p.large = append(p.large[:i], p.large[i+1:]...)
	}
}
