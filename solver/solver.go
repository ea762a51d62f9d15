// Package solver provides GPU-resident primitives for Krylov-style iterative
// solvers: a block-Jacobi preconditioner apply over pre-factored diagonal
// blocks, and a device-side dot product built from a two-stage parallel
// reduction.
//
// Both primitives record their work into a caller-owned command encoder and
// never read results back themselves, so a full solver iteration can run as
// one submission without host round-trips:
//
//	ctx, err := gpu.New(gpu.Options{})
//	...
//	table := solver.UniformBlockTable(n, solver.BlockSize)
//	lu, err := solver.FactorizeBlocks(blocks, table)
//	pc, err := solver.NewBlockJacobi(ctx, n, lu, table)
//	dot, err := solver.NewDot(ctx, n)
//
//	enc, _ := ctx.Device.CreateCommandEncoder(nil)
//	pc.EncodeApply(enc, rBuf, zBuf)
//	dot.EncodeDot(enc, rBuf, zBuf)
//	ctx.Submit(enc)
//	rz, err := ctx.ReadFloats(dot.Result(), 1)
package solver

import (
	"github.com/gpusolve/gpusolve/internal/gpu"
	internalsolver "github.com/gpusolve/gpusolve/internal/solver"
)

// BlockSize is the fixed dimension of a preconditioner diagonal block.
const BlockSize = internalsolver.BlockSize

// ReductionFactor is the per-pass collapse factor of the dot-product
// reduction tree.
const ReductionFactor = internalsolver.ReductionFactor

// BlockJacobi applies a block-Jacobi preconditioner on the device.
type BlockJacobi = internalsolver.BlockJacobi

// Dot computes device-side dot products for vectors of a fixed length.
type Dot = internalsolver.Dot

// BlockTable is the ordered sequence of block boundary offsets.
type BlockTable = internalsolver.BlockTable

// NewBlockJacobi uploads pre-factored LU blocks and the block table and
// returns an executor whose EncodeApply records z = M^-1 r.
func NewBlockJacobi(ctx *gpu.Context, n uint32, luBlocks []float32, blockStarts BlockTable) (*BlockJacobi, error) {
	return internalsolver.NewBlockJacobi(ctx, n, luBlocks, blockStarts)
}

// NewDot builds a dot-product orchestrator for vectors of length n. n must
// be at least 1.
func NewDot(ctx *gpu.Context, n uint32) (*Dot, error) {
	return internalsolver.NewDot(ctx, n)
}

// UniformBlockTable builds a table of equally sized blocks covering [0, n),
// with a shorter final block when blockSize does not divide n.
func UniformBlockTable(n, blockSize uint32) BlockTable {
	return internalsolver.UniformBlockTable(n, blockSize)
}

// FactorizeBlocks LU-factorizes each diagonal block of the packed input,
// producing the layout NewBlockJacobi consumes.
func FactorizeBlocks(blocks []float32, table BlockTable) ([]float32, error) {
	return internalsolver.FactorizeBlocks(blocks, table)
}

// ApplyFactored is the host reference of the preconditioner apply, useful
// for validation against the device path.
func ApplyFactored(lu []float32, table BlockTable, r []float32) []float32 {
	return internalsolver.ApplyFactored(lu, table, r)
}
