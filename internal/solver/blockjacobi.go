package solver

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gpusolve/gpusolve/internal/gpu"
)

// BlockJacobi applies a block-Jacobi preconditioner on the device:
// EncodeApply records z = M^-1 r, solving each pre-factored diagonal block
// independently, one workgroup per block.
//
// The executor owns the persistent, read-only resources of one solver setup:
// the packed LU blocks (one dense 6x6 per block, row-major), the block table
// (num_blocks+1 offsets) and the parameter record [n, num_blocks, 0, 0].
// Per-iteration vectors r and z are caller-owned and bound per call.
//
// The block table invariant (non-decreasing, first 0, last n) and the
// agreement of BlockSize with the device constant are caller contracts; this
// layer performs no runtime validation of them.
type BlockJacobi struct {
	ctx  *gpu.Context
	kern *kernel

	n         uint32
	numBlocks uint32

	params   *wgpu.Buffer
	luBlocks *wgpu.Buffer
	starts   *wgpu.Buffer
}

// NewBlockJacobi compiles the block-Jacobi pipeline and uploads the
// persistent resources. luBlocks holds 36 floats per block; blockStarts has
// length num_blocks+1. Setup failures are fatal and synchronous.
func NewBlockJacobi(ctx *gpu.Context, n uint32, luBlocks []float32, blockStarts []uint32) (*BlockJacobi, error) {
	kern, err := newKernel(ctx, blockJacobiSpec)
	if err != nil {
		return nil, err
	}

	var numBlocks uint32
	if len(blockStarts) > 0 {
		numBlocks = uint32(len(blockStarts) - 1)
	}

	params, err := ctx.NewUniformBuffer("block_jacobi params", [gpu.UniformWords]uint32{n, numBlocks, 0, 0})
	if err != nil {
		kern.release()
		return nil, err
	}

	lu, err := ctx.NewStorageBufferInit("block_jacobi lu_blocks", luBlocks)
	if err != nil {
		params.Release()
		kern.release()
		return nil, err
	}

	starts, err := ctx.NewUint32BufferInit("block_jacobi block_starts", blockStarts)
	if err != nil {
		lu.Release()
		params.Release()
		kern.release()
		return nil, err
	}

	return &BlockJacobi{
		ctx:       ctx,
		kern:      kern,
		n:         n,
		numBlocks: numBlocks,
		params:    params,
		luBlocks:  lu,
		starts:    starts,
	}, nil
}

// N returns the global vector length.
func (bj *BlockJacobi) N() uint32 { return bj.n }

// NumBlocks returns the number of diagonal blocks.
func (bj *BlockJacobi) NumBlocks() uint32 { return bj.numBlocks }

// EncodeApply records one compute pass computing z = M^-1 r into the
// caller's encoder. It does not submit or wait. r and z vary per iteration,
// so the bind group is rebuilt on every call; it holds no ownership.
//
// Dispatch sizing: num_blocks workgroups in X, blocks being mutually
// independent. r must hold n floats and z at least n floats; neither is
// checked here.
func (bj *BlockJacobi) EncodeApply(encoder *wgpu.CommandEncoder, r, z *wgpu.Buffer) error {
	if r == z {
		return fmt.Errorf("solver: block_jacobi input and output must be distinct buffers")
	}

	bg, err := bj.kern.bindGroup(bj.params, bj.luBlocks, bj.starts, r, z)
	if err != nil {
		return err
	}
	defer bg.Release()

	bj.kern.encode(encoder, bg, bj.numBlocks)
	return nil
}

// Release frees the pipeline and persistent buffers. Must not be called
// while recorded work is still pending submission.
func (bj *BlockJacobi) Release() {
	if bj.starts != nil {
		bj.starts.Release()
		bj.starts = nil
	}
	if bj.luBlocks != nil {
		bj.luBlocks.Release()
		bj.luBlocks = nil
	}
	if bj.params != nil {
		bj.params.Release()
		bj.params = nil
	}
	if bj.kern != nil {
		bj.kern.release()
		bj.kern = nil
	}
}
