// Package solver provides GPU-resident primitives for iterative linear
// solvers: a block-Jacobi preconditioner apply and a device-side dot product
// computed by a two-stage parallel reduction.
//
// Executors record compute passes into a caller-supplied command encoder and
// never submit; passes recorded into one encoder execute in recording order
// on the device timeline, which is the only ordering guarantee this package
// relies on. Dispatch is fire-and-forget: a mis-sized buffer or a stale bind
// group produces wrong numerics, not an error.
package solver

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gpusolve/gpusolve/internal/gpu"
)

// BindingKind distinguishes uniform parameter records from storage arrays.
type BindingKind int

const (
	// BindingUniform is a read-only parameter record.
	BindingUniform BindingKind = iota
	// BindingStorage is a storage array, read-only or read-write.
	BindingStorage
)

// Binding declares one slot of a kernel's bind group layout. Slot order,
// kind and access mode must match the @binding declarations of the WGSL
// program exactly; a mismatch is a fatal setup error.
type Binding struct {
	Kind     BindingKind
	ReadOnly bool
}

// KernelSpec declares a compute kernel: its WGSL source, entry point and
// ordered binding slots. The three kernel kinds of this package are built
// from fixed specs in shaders.go rather than hand-written pipeline code.
type KernelSpec struct {
	Name       string
	Source     string
	EntryPoint string
	Bindings   []Binding
}

// kernel is a compiled pipeline plus its explicit bind group layout.
// Built once per kernel kind at setup; immutable afterwards.
type kernel struct {
	spec     KernelSpec
	device   *wgpu.Device
	pipeline *wgpu.ComputePipeline
	layout   *wgpu.BindGroupLayout
}

// newKernel compiles the spec's WGSL program and creates the pipeline with an
// explicit layout. Compilation and layout failures are fatal and returned
// synchronously.
func newKernel(ctx *gpu.Context, spec KernelSpec) (*kernel, error) {
	module, err := ctx.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          spec.Name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: spec.Source},
	})
	if err != nil {
		return nil, fmt.Errorf("solver: compile %s: %w", spec.Name, err)
	}
	defer module.Release()

	entries := make([]wgpu.BindGroupLayoutEntry, len(spec.Bindings))
	for i, b := range spec.Bindings {
		var t wgpu.BufferBindingType
		switch {
		case b.Kind == BindingUniform:
			t = wgpu.BufferBindingTypeUniform
		case b.ReadOnly:
			t = wgpu.BufferBindingTypeReadOnlyStorage
		default:
			t = wgpu.BufferBindingTypeStorage
		}
		entries[i] = wgpu.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: wgpu.ShaderStageCompute,
			Buffer:     wgpu.BufferBindingLayout{Type: t},
		}
	}

	layout, err := ctx.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   spec.Name + " bgl",
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("solver: %s bind group layout: %w", spec.Name, err)
	}

	pipelineLayout, err := ctx.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            spec.Name + " pipeline layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
	})
	if err != nil {
		layout.Release()
		return nil, fmt.Errorf("solver: %s pipeline layout: %w", spec.Name, err)
	}

	pipeline, err := ctx.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  spec.Name + " pipeline",
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: spec.EntryPoint,
		},
	})
	pipelineLayout.Release()
	if err != nil {
		layout.Release()
		return nil, fmt.Errorf("solver: %s pipeline: %w", spec.Name, err)
	}

	return &kernel{
		spec:     spec,
		device:   ctx.Device,
		pipeline: pipeline,
		layout:   layout,
	}, nil
}

// bindGroup resolves the declared slots to concrete buffers, one per slot in
// declaration order. Bind groups are ephemeral views with no ownership over
// the buffers; they are rebuilt whenever a bound buffer's identity changes.
func (k *kernel) bindGroup(buffers ...*wgpu.Buffer) (*wgpu.BindGroup, error) {
	if len(buffers) != len(k.spec.Bindings) {
		return nil, fmt.Errorf("solver: %s expects %d bindings, got %d",
			k.spec.Name, len(k.spec.Bindings), len(buffers))
	}

	entries := make([]wgpu.BindGroupEntry, len(buffers))
	for i, buf := range buffers {
		entries[i] = wgpu.BindGroupEntry{
			Binding: uint32(i),
			Buffer:  buf,
			Size:    buf.GetSize(),
		}
	}
	bg, err := k.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   k.spec.Name + " bind group",
		Layout:  k.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("solver: %s bind group: %w", k.spec.Name, err)
	}
	return bg, nil
}

// encode records one compute pass dispatching groupsX workgroups in X.
func (k *kernel) encode(encoder *wgpu.CommandEncoder, bg *wgpu.BindGroup, groupsX uint32) {
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(k.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.DispatchWorkgroups(groupsX, 1, 1)
	pass.End()
}

func (k *kernel) release() {
	if k.pipeline != nil {
		k.pipeline.Release()
		k.pipeline = nil
	}
	if k.layout != nil {
		k.layout.Release()
		k.layout = nil
	}
}
