package solver

import (
	"fmt"
)

// Host-side preparation of block-Jacobi inputs. The device kernel consumes
// pre-factored blocks; factorization happens here, once, before upload.

// BlockTable is the ordered sequence of block boundary offsets: length
// num_blocks+1, first element 0, last element n, non-decreasing. It is
// immutable once handed to an executor.
type BlockTable []uint32

// UniformBlockTable builds a table of equally sized blocks covering [0, n).
// The final block is shorter when blockSize does not divide n.
func UniformBlockTable(n, blockSize uint32) BlockTable {
	if blockSize == 0 {
		blockSize = BlockSize
	}
	t := BlockTable{0}
	for cur := uint32(0); cur < n; {
		cur += blockSize
		if cur > n {
			cur = n
		}
		t = append(t, cur)
	}
	return t
}

// NumBlocks returns the number of blocks described by the table.
func (t BlockTable) NumBlocks() int {
	if len(t) == 0 {
		return 0
	}
	return len(t) - 1
}

// Validate checks the table invariant against vector length n. The kernel
// layer never validates at dispatch time; callers run this once after
// constructing a table.
func (t BlockTable) Validate(n uint32) error {
	if len(t) < 2 {
		return fmt.Errorf("solver: block table needs at least 2 entries, got %d", len(t))
	}
	if t[0] != 0 {
		return fmt.Errorf("solver: block table must start at 0, got %d", t[0])
	}
	if t[len(t)-1] != n {
		return fmt.Errorf("solver: block table must end at n=%d, got %d", n, t[len(t)-1])
	}
	for i := 1; i < len(t); i++ {
		if t[i] < t[i-1] {
			return fmt.Errorf("solver: block table decreases at index %d: %d < %d", i, t[i], t[i-1])
		}
		if t[i]-t[i-1] > BlockSize {
			return fmt.Errorf("solver: block %d spans %d entries, max is %d", i-1, t[i]-t[i-1], BlockSize)
		}
	}
	return nil
}

// FactorizeBlocks LU-factorizes each diagonal block in place of its packed
// representation: blocks holds one dense row-major 6x6 block per table
// entry (36 floats each, only the top-left m x m of a short block is used).
// The result packs unit-lower L and U into the same 36-float stride, ready
// for upload. Doolittle, no pivoting; a zero pivot fails the whole
// factorization.
func FactorizeBlocks(blocks []float32, table BlockTable) ([]float32, error) {
	numBlocks := table.NumBlocks()
	if len(blocks) != numBlocks*luStride {
		return nil, fmt.Errorf("solver: expected %d floats for %d blocks, got %d",
			numBlocks*luStride, numBlocks, len(blocks))
	}

	lu := make([]float32, len(blocks))
	copy(lu, blocks)

	for blk := 0; blk < numBlocks; blk++ {
		m := int(table[blk+1] - table[blk])
		base := blk * luStride
		for k := 0; k < m; k++ {
			pivot := lu[base+k*BlockSize+k]
			if pivot == 0 {
				return nil, fmt.Errorf("solver: zero pivot in block %d at row %d", blk, k)
			}
			for i := k + 1; i < m; i++ {
				f := lu[base+i*BlockSize+k] / pivot
				lu[base+i*BlockSize+k] = f
				for j := k + 1; j < m; j++ {
					lu[base+i*BlockSize+j] -= f * lu[base+k*BlockSize+j]
				}
			}
		}
	}
	return lu, nil
}

// SolveFactored solves one packed LU block against rhs (length m <= 6) and
// returns the solution. Host reference for the device triangular solve.
func SolveFactored(lu []float32, rhs []float32) []float32 {
	m := len(rhs)
	y := make([]float32, m)
	for i := 0; i < m; i++ {
		s := rhs[i]
		for j := 0; j < i; j++ {
			s -= lu[i*BlockSize+j] * y[j]
		}
		y[i] = s
	}
	x := make([]float32, m)
	for i := m - 1; i >= 0; i-- {
		s := y[i]
		for j := i + 1; j < m; j++ {
			s -= lu[i*BlockSize+j] * x[j]
		}
		x[i] = s / lu[i*BlockSize+i]
	}
	return x
}

// ApplyFactored is the host reference of the full preconditioner apply:
// z = M^-1 r over every block of the table.
func ApplyFactored(lu []float32, table BlockTable, r []float32) []float32 {
	z := make([]float32, len(r))
	for blk := 0; blk < table.NumBlocks(); blk++ {
		start, end := table[blk], table[blk+1]
		x := SolveFactored(lu[blk*luStride:(blk+1)*luStride], r[start:end])
		copy(z[start:end], x)
	}
	return z
}
