package gpu

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
)

// UniformWords is the number of 32-bit fields in a kernel parameter record.
// Four words keep the record at the 16-byte uniform alignment boundary.
const UniformWords = 4

// readbackTimeout bounds the poll loop in ReadFloats. A healthy device maps a
// staging buffer in well under a second; anything longer means the context is
// lost.
const readbackTimeout = 5 * time.Second

// NewStorageBufferInit creates a read-only storage buffer initialized with
// float32 data. Used for persistent resources uploaded once at setup.
func (c *Context) NewStorageBufferInit(label string, data []float32) (*wgpu.Buffer, error) {
	buf, err := c.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: wgpu.ToBytes(data),
		Usage:    wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create buffer %q: %w", label, err)
	}
	return buf, nil
}

// NewUint32BufferInit creates a read-only storage buffer initialized with
// uint32 data (block tables and other index data).
func (c *Context) NewUint32BufferInit(label string, data []uint32) (*wgpu.Buffer, error) {
	buf, err := c.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: wgpu.ToBytes(data),
		Usage:    wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create buffer %q: %w", label, err)
	}
	return buf, nil
}

// NewStorageBuffer creates an uninitialized read-write storage buffer of the
// given byte size, usable as a kernel output and as a copy source/target.
func (c *Context) NewStorageBuffer(label string, size uint64) (*wgpu.Buffer, error) {
	buf, err := c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create buffer %q: %w", label, err)
	}
	return buf, nil
}

// NewUniformBuffer creates a uniform buffer holding one parameter record.
// The byte layout must match the Params struct declared by the WGSL program:
// four little-endian u32 fields, 16 bytes total.
func (c *Context) NewUniformBuffer(label string, words [UniformWords]uint32) (*wgpu.Buffer, error) {
	buf, err := c.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: packWords(words),
		Usage:    wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create uniform %q: %w", label, err)
	}
	return buf, nil
}

// packWords serializes a parameter record to its device byte layout.
func packWords(words [UniformWords]uint32) []byte {
	out := make([]byte, UniformWords*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

// ReadFloats copies n float32 values from a device buffer back to the host.
// It submits its own copy command and blocks until the staging buffer is
// mapped, so any previously submitted passes writing src are observed.
//
// This is the only host round-trip in the package; executors never call it.
func (c *Context) ReadFloats(src *wgpu.Buffer, n int) ([]float32, error) {
	sizeBytes := uint64(n) * 4

	staging, err := c.pool.Acquire(sizeBytes, wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("gpu: acquire staging buffer: %w", err)
	}
	defer c.pool.Release(staging, staging.GetSize(), wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst)

	encoder, err := c.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: create command encoder: %w", err)
	}
	encoder.CopyBufferToBuffer(src, 0, staging, 0, sizeBytes)
	if err := c.Submit(encoder); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	var mapErr error
	err = staging.MapAsync(wgpu.MapModeRead, 0, sizeBytes, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("gpu: map failed: %v", status)
		}
		close(done)
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: MapAsync: %w", err)
	}

	timeout := time.After(readbackTimeout)
poll:
	for {
		c.Device.Poll(false, nil)
		select {
		case <-done:
			break poll
		case <-timeout:
			return nil, fmt.Errorf("gpu: readback timed out after %v", readbackTimeout)
		default:
			time.Sleep(time.Millisecond)
		}
	}
	if mapErr != nil {
		return nil, mapErr
	}

	data := staging.GetMappedRange(0, uint(sizeBytes))
	if data == nil {
		staging.Unmap()
		return nil, fmt.Errorf("gpu: failed to get mapped range")
	}
	result := make([]float32, n)
	copy(result, wgpu.FromBytes[float32](data))
	staging.Unmap()

	return result, nil
}
