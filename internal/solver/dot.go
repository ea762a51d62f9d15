package solver

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gpusolve/gpusolve/internal/gpu"
)

// scratchUsage is the usage of the ping-pong reduction buffers acquired from
// the context pool.
const scratchUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

// reducePass is one precomputed collapsing step: inLen active elements
// shrink to outLen = ceil(inLen / ReductionFactor).
type reducePass struct {
	inLen  uint32
	outLen uint32
	params *wgpu.Buffer
}

// Dot computes dot(a, b) on the device for vectors of a fixed length n,
// without host round-trips. One EncodeDot call records:
//
//  1. a partial-dot pass producing ceil(n/256) per-group sums,
//  2. ceil(log_256) reduce passes ping-ponging between two scratch buffers,
//  3. a 4-byte copy of the final element into a stable result buffer.
//
// All passes go into the caller's encoder in program order; keeping one
// reduction inside a single submission unit is what makes every pass observe
// the previous pass's writes. The orchestrator never splits a reduction
// across encoders and never uses a scratch buffer as both source and
// destination of the same pass.
//
// n is fixed at construction so the pass schedule and per-pass parameter
// records are built once and reused every iteration.
type Dot struct {
	ctx *gpu.Context

	partials *kernel
	reduce   *kernel

	n  uint32
	p0 uint32

	partialParams *wgpu.Buffer
	passes        []reducePass

	scratchA    *wgpu.Buffer
	scratchB    *wgpu.Buffer
	scratchSize uint64

	result *wgpu.Buffer
}

// groupCount returns ceil(n / groupSize), the workgroup count of a pass over
// n active elements.
func groupCount(n uint32) uint32 {
	return (n + groupSize - 1) / groupSize
}

// reduceLengths returns the successive active lengths after each reduce
// pass, ending at 1. Empty when p0 is already 1.
func reduceLengths(p0 uint32) []uint32 {
	var out []uint32
	for cur := p0; cur > 1; {
		cur = groupCount(cur)
		out = append(out, cur)
	}
	return out
}

// NewDot builds the dot-product orchestrator for vectors of length n.
//
// n == 0 fails fast: a zero-length reduction has no meaningful dispatch, and
// defining dot = 0 would mask caller bugs silently.
func NewDot(ctx *gpu.Context, n uint32) (*Dot, error) {
	if n == 0 {
		return nil, fmt.Errorf("solver: dot requires n >= 1")
	}

	partials, err := newKernel(ctx, dotPartialsSpec)
	if err != nil {
		return nil, err
	}
	reduce, err := newKernel(ctx, dotReduceSpec)
	if err != nil {
		partials.release()
		return nil, err
	}

	d := &Dot{
		ctx:      ctx,
		partials: partials,
		reduce:   reduce,
		n:        n,
		p0:       groupCount(n),
	}

	d.partialParams, err = ctx.NewUniformBuffer("dot_partials params", [gpu.UniformWords]uint32{n, d.p0, 0, 0})
	if err != nil {
		d.Release()
		return nil, err
	}

	cur := d.p0
	for _, outLen := range reduceLengths(d.p0) {
		params, err := ctx.NewUniformBuffer("dot_reduce params", [gpu.UniformWords]uint32{cur, outLen, 0, 0})
		if err != nil {
			d.Release()
			return nil, err
		}
		d.passes = append(d.passes, reducePass{inLen: cur, outLen: outLen, params: params})
		cur = outLen
	}

	// Two scratch buffers sized to the maximum active length (p0) cover every
	// pass; input and output roles alternate so no pass reads and writes the
	// same buffer.
	d.scratchSize = uint64(d.p0) * 4
	d.scratchA, err = ctx.Pool().Acquire(d.scratchSize, scratchUsage)
	if err != nil {
		d.Release()
		return nil, err
	}
	if len(d.passes) > 0 {
		d.scratchB, err = ctx.Pool().Acquire(d.scratchSize, scratchUsage)
		if err != nil {
			d.Release()
			return nil, err
		}
	}

	d.result, err = ctx.NewStorageBuffer("dot result", 4)
	if err != nil {
		d.Release()
		return nil, err
	}

	return d, nil
}

// N returns the vector length the orchestrator was built for.
func (d *Dot) N() uint32 { return d.n }

// PassCount returns the number of reduce passes recorded per EncodeDot call,
// equal to ceil(log_ReductionFactor(ceil(n/groupSize))).
func (d *Dot) PassCount() int { return len(d.passes) }

// Result returns the device-resident 1-element buffer that holds the scalar
// after the encoded work has been submitted and has executed. The buffer
// identity is stable across calls, so caller bind groups and readback paths
// can be reused.
func (d *Dot) Result() *wgpu.Buffer { return d.result }

// EncodeDot records the full reduction of dot(a, b) into the caller's
// encoder. It does not submit and does not read the scalar back; both a and
// b must hold n floats, which is not checked here.
func (d *Dot) EncodeDot(encoder *wgpu.CommandEncoder, a, b *wgpu.Buffer) error {
	bg, err := d.partials.bindGroup(d.partialParams, a, b, d.scratchA)
	if err != nil {
		return err
	}
	d.partials.encode(encoder, bg, d.p0)
	bg.Release()

	src, dst := d.scratchA, d.scratchB
	for _, p := range d.passes {
		rbg, err := d.reduce.bindGroup(p.params, src, dst)
		if err != nil {
			return err
		}
		d.reduce.encode(encoder, rbg, p.outLen)
		rbg.Release()
		src, dst = dst, src
	}

	// src now holds the single remaining element. Copy it into the stable
	// result buffer inside the same submission unit.
	encoder.CopyBufferToBuffer(src, 0, d.result, 0, 4)
	return nil
}

// Release returns the scratch buffers to the pool and frees everything else.
// Must not be called while recorded work is still pending submission.
func (d *Dot) Release() {
	if d.result != nil {
		d.result.Release()
		d.result = nil
	}
	if d.scratchB != nil {
		d.ctx.Pool().Release(d.scratchB, d.scratchSize, scratchUsage)
		d.scratchB = nil
	}
	if d.scratchA != nil {
		d.ctx.Pool().Release(d.scratchA, d.scratchSize, scratchUsage)
		d.scratchA = nil
	}
	for i := range d.passes {
		if d.passes[i].params != nil {
			d.passes[i].params.Release()
			d.passes[i].params = nil
		}
	}
	d.passes = nil
	if d.partialParams != nil {
		d.partialParams.Release()
		d.partialParams = nil
	}
	if d.reduce != nil {
		d.reduce.release()
		d.reduce = nil
	}
	if d.partials != nil {
		d.partials.release()
		d.partials = nil
	}
}
