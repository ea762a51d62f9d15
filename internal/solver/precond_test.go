package solver

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randBlock returns a random diagonally dominant 6x6 block, padded to the
// packed stride. Dominance keeps the unpivoted LU well conditioned.
func randBlock(rng *rand.Rand) []float32 {
	blk := make([]float32, luStride)
	for i := 0; i < BlockSize; i++ {
		var rowSum float32
		for j := 0; j < BlockSize; j++ {
			v := rng.Float32()*2 - 1
			blk[i*BlockSize+j] = v
			if v < 0 {
				rowSum -= v
			} else {
				rowSum += v
			}
		}
		blk[i*BlockSize+i] = rowSum + 1
	}
	return blk
}

// identityBlocks returns packed identity factorizations for every block of
// the table. The LU of the identity is the identity.
func identityBlocks(table BlockTable) []float32 {
	lu := make([]float32, table.NumBlocks()*luStride)
	for blk := 0; blk < table.NumBlocks(); blk++ {
		for i := 0; i < BlockSize; i++ {
			lu[blk*luStride+i*BlockSize+i] = 1
		}
	}
	return lu
}

func TestUniformBlockTable(t *testing.T) {
	table := UniformBlockTable(12, BlockSize)
	assert.Equal(t, BlockTable{0, 6, 12}, table)
	assert.Equal(t, 2, table.NumBlocks())
	require.NoError(t, table.Validate(12))

	// Short final block.
	table = UniformBlockTable(10, BlockSize)
	assert.Equal(t, BlockTable{0, 6, 10}, table)
	require.NoError(t, table.Validate(10))
}

func TestBlockTableValidate(t *testing.T) {
	tests := []struct {
		name  string
		table BlockTable
		n     uint32
		ok    bool
	}{
		{"valid", BlockTable{0, 6, 12}, 12, true},
		{"valid short last", BlockTable{0, 6, 10}, 10, true},
		{"empty block", BlockTable{0, 6, 6, 12}, 12, true},
		{"too short", BlockTable{0}, 0, false},
		{"nonzero start", BlockTable{1, 6, 12}, 12, false},
		{"wrong end", BlockTable{0, 6, 11}, 12, false},
		{"decreasing", BlockTable{0, 8, 6, 12}, 12, false},
		{"oversized block", BlockTable{0, 7, 12}, 12, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate(tt.n)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestFactorizeSolve(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	table := UniformBlockTable(6, BlockSize)
	dense := randBlock(rng)

	lu, err := FactorizeBlocks(dense, table)
	require.NoError(t, err)

	rhs := make([]float32, BlockSize)
	for i := range rhs {
		rhs[i] = rng.Float32()*2 - 1
	}
	x := SolveFactored(lu, rhs)

	// A x must reproduce the right-hand side.
	for i := 0; i < BlockSize; i++ {
		var s float32
		for j := 0; j < BlockSize; j++ {
			s += dense[i*BlockSize+j] * x[j]
		}
		assert.InDelta(t, rhs[i], s, 1e-4)
	}
}

func TestFactorizeZeroPivot(t *testing.T) {
	table := UniformBlockTable(6, BlockSize)
	zero := make([]float32, luStride)
	_, err := FactorizeBlocks(zero, table)
	assert.Error(t, err)
}

func TestFactorizeSizeMismatch(t *testing.T) {
	table := UniformBlockTable(12, BlockSize)
	_, err := FactorizeBlocks(make([]float32, luStride), table)
	assert.Error(t, err)
}

func TestApplyFactoredIdentity(t *testing.T) {
	table := UniformBlockTable(12, BlockSize)
	lu := identityBlocks(table)

	r := []float32{1, -2, 3, -4, 5, -6, 7, -8, 9, -10, 11, -12}
	z := ApplyFactored(lu, table, r)
	assert.Equal(t, r, z)
}
