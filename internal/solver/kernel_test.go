package solver

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// The binding tables below are the host half of the host/device layout
// contract; a drifted slot order or access mode is a silent-corruption bug,
// so the declarations are pinned here.

func TestBlockJacobiSpecLayout(t *testing.T) {
	spec := blockJacobiSpec
	assert.Equal(t, "compute_main", spec.EntryPoint)
	assert.Len(t, spec.Bindings, 5)

	assert.Equal(t, BindingUniform, spec.Bindings[0].Kind) // params
	for _, slot := range []int{1, 2, 3} {                  // lu_blocks, block_starts, r
		assert.Equal(t, BindingStorage, spec.Bindings[slot].Kind)
		assert.True(t, spec.Bindings[slot].ReadOnly, "slot %d must be read-only", slot)
	}
	assert.Equal(t, BindingStorage, spec.Bindings[4].Kind) // z
	assert.False(t, spec.Bindings[4].ReadOnly)
}

func TestDotSpecLayouts(t *testing.T) {
	assert.Len(t, dotPartialsSpec.Bindings, 4)
	assert.Equal(t, BindingUniform, dotPartialsSpec.Bindings[0].Kind)
	assert.True(t, dotPartialsSpec.Bindings[1].ReadOnly)
	assert.True(t, dotPartialsSpec.Bindings[2].ReadOnly)
	assert.False(t, dotPartialsSpec.Bindings[3].ReadOnly)

	assert.Len(t, dotReduceSpec.Bindings, 3)
	assert.Equal(t, BindingUniform, dotReduceSpec.Bindings[0].Kind)
	assert.True(t, dotReduceSpec.Bindings[1].ReadOnly)
	assert.False(t, dotReduceSpec.Bindings[2].ReadOnly)
}

// TestShaderConstants pins the literal agreement between host constants and
// the constants compiled into the WGSL programs.
func TestShaderConstants(t *testing.T) {
	assert.Contains(t, blockJacobiShader, fmt.Sprintf("const BLOCK_SIZE: u32 = %du;", BlockSize))
	assert.Contains(t, blockJacobiShader, fmt.Sprintf("const LU_STRIDE: u32 = %du;", luStride))
	assert.Contains(t, blockJacobiShader, "@workgroup_size(1)")

	for name, src := range map[string]string{
		"dot_partials": dotPartialsShader,
		"dot_reduce":   dotReduceShader,
	} {
		assert.Contains(t, src, fmt.Sprintf("@workgroup_size(%d)", groupSize), name)
		assert.Contains(t, src, fmt.Sprintf("array<f32, %d>", ReductionFactor), name)
	}

	// Every declared slot must appear as a @binding in the source.
	for _, spec := range []KernelSpec{blockJacobiSpec, dotPartialsSpec, dotReduceSpec} {
		for i := range spec.Bindings {
			assert.Contains(t, spec.Source, fmt.Sprintf("@binding(%d)", i), spec.Name)
		}
		assert.True(t, strings.Contains(spec.Source, "fn "+spec.EntryPoint), spec.Name)
	}
}
