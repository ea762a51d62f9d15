package solver

// WGSL compute shaders for the solver kernels, as string constants in the
// style of the rest of the codebase.
//
// The constants below are compiled into the device programs and packed into
// host parameter records; host and WGSL must agree or dispatches silently
// produce wrong numerics. TestShaderConstants asserts the literal agreement.

const (
	// BlockSize is the dense block dimension of the block-Jacobi
	// preconditioner. Each block is a BlockSize x BlockSize LU factorization.
	BlockSize = 6

	// luStride is the number of packed floats per LU block.
	luStride = BlockSize * BlockSize

	// groupSize is the number of elements summed per workgroup in the
	// partial-dot stage.
	groupSize = 256

	// ReductionFactor is the per-pass shrink ratio of the reduce stage: one
	// pass collapses ReductionFactor elements into one. It equals the reduce
	// kernel's workgroup size, so host dispatch sizing and device logic agree
	// by construction.
	ReductionFactor = 256
)

// blockJacobiShader solves one pre-factored 6x6 system per workgroup:
// z[start..end) = (LU)^-1 r[start..end). Intra-block work is a sequential
// triangular solve, so the workgroup size is 1 and parallelism comes from
// dispatching one workgroup per block.
const blockJacobiShader = `
const BLOCK_SIZE: u32 = 6u;
const LU_STRIDE: u32 = 36u;

struct Params {
    n: u32,
    num_blocks: u32,
    pad0: u32,
    pad1: u32,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read> lu_blocks: array<f32>;
@group(0) @binding(2) var<storage, read> block_starts: array<u32>;
@group(0) @binding(3) var<storage, read> r: array<f32>;
@group(0) @binding(4) var<storage, read_write> z: array<f32>;

@compute @workgroup_size(1)
fn compute_main(@builtin(workgroup_id) wid: vec3<u32>) {
    let blk = wid.x;
    if (blk >= params.num_blocks) {
        return;
    }

    let start = block_starts[blk];
    let end = block_starts[blk + 1u];
    let m = min(end - start, BLOCK_SIZE);
    let lu = blk * LU_STRIDE;

    // Forward substitution, L y = r with unit diagonal.
    var y: array<f32, 6>;
    for (var i = 0u; i < m; i = i + 1u) {
        var s = r[start + i];
        for (var j = 0u; j < i; j = j + 1u) {
            s = s - lu_blocks[lu + i * BLOCK_SIZE + j] * y[j];
        }
        y[i] = s;
    }

    // Back substitution, U z = y.
    for (var k = 0u; k < m; k = k + 1u) {
        let i = m - 1u - k;
        var s = y[i];
        for (var j = i + 1u; j < m; j = j + 1u) {
            s = s - lu_blocks[lu + i * BLOCK_SIZE + j] * z[start + j];
        }
        z[start + i] = s / lu_blocks[lu + i * BLOCK_SIZE + i];
    }
}
`

// dotPartialsShader computes one partial sum of a[i]*b[i] per workgroup via a
// shared-memory tree reduction. Output length = ceil(n / 256). The order of
// cross-group summation is unspecified; low-order float bits may differ
// between runs and hardware.
const dotPartialsShader = `
struct Params {
    n: u32,
    num_groups: u32,
    pad0: u32,
    pad1: u32,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read> a: array<f32>;
@group(0) @binding(2) var<storage, read> b: array<f32>;
@group(0) @binding(3) var<storage, read_write> partials: array<f32>;

var<workgroup> scratch: array<f32, 256>;

@compute @workgroup_size(256)
fn compute_main(
    @builtin(global_invocation_id) gid: vec3<u32>,
    @builtin(local_invocation_id) lid: vec3<u32>,
    @builtin(workgroup_id) wid: vec3<u32>,
) {
    var v = 0.0;
    if (gid.x < params.n) {
        v = a[gid.x] * b[gid.x];
    }
    scratch[lid.x] = v;
    workgroupBarrier();

    for (var stride = 128u; stride > 0u; stride = stride / 2u) {
        if (lid.x < stride) {
            scratch[lid.x] = scratch[lid.x] + scratch[lid.x + stride];
        }
        workgroupBarrier();
    }

    if (lid.x == 0u) {
        partials[wid.x] = scratch[0];
    }
}
`

// dotReduceShader performs exactly one collapsing pass: params.n active
// input elements shrink to ceil(params.n / 256) outputs. It never loops over
// passes; the orchestrator sequences passes on the host.
const dotReduceShader = `
struct Params {
    n: u32,
    num_groups: u32,
    pad0: u32,
    pad1: u32,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read> src: array<f32>;
@group(0) @binding(2) var<storage, read_write> dst: array<f32>;

var<workgroup> scratch: array<f32, 256>;

@compute @workgroup_size(256)
fn compute_main(
    @builtin(global_invocation_id) gid: vec3<u32>,
    @builtin(local_invocation_id) lid: vec3<u32>,
    @builtin(workgroup_id) wid: vec3<u32>,
) {
    var v = 0.0;
    if (gid.x < params.n) {
        v = src[gid.x];
    }
    scratch[lid.x] = v;
    workgroupBarrier();

    for (var stride = 128u; stride > 0u; stride = stride / 2u) {
        if (lid.x < stride) {
            scratch[lid.x] = scratch[lid.x] + scratch[lid.x + stride];
        }
        workgroupBarrier();
    }

    if (lid.x == 0u) {
        dst[wid.x] = scratch[0];
    }
}
`

// Kernel declaration table. Slot order and access modes mirror the @binding
// declarations in the WGSL sources above.
var (
	blockJacobiSpec = KernelSpec{
		Name:       "block_jacobi",
		Source:     blockJacobiShader,
		EntryPoint: "compute_main",
		Bindings: []Binding{
			{Kind: BindingUniform, ReadOnly: true},  // 0: params
			{Kind: BindingStorage, ReadOnly: true},  // 1: lu_blocks
			{Kind: BindingStorage, ReadOnly: true},  // 2: block_starts
			{Kind: BindingStorage, ReadOnly: true},  // 3: r
			{Kind: BindingStorage, ReadOnly: false}, // 4: z
		},
	}

	dotPartialsSpec = KernelSpec{
		Name:       "dot_partials",
		Source:     dotPartialsShader,
		EntryPoint: "compute_main",
		Bindings: []Binding{
			{Kind: BindingUniform, ReadOnly: true},  // 0: params
			{Kind: BindingStorage, ReadOnly: true},  // 1: a
			{Kind: BindingStorage, ReadOnly: true},  // 2: b
			{Kind: BindingStorage, ReadOnly: false}, // 3: partials
		},
	}

	dotReduceSpec = KernelSpec{
		Name:       "dot_reduce",
		Source:     dotReduceShader,
		EntryPoint: "compute_main",
		Bindings: []Binding{
			{Kind: BindingUniform, ReadOnly: true},  // 0: params
			{Kind: BindingStorage, ReadOnly: true},  // 1: src
			{Kind: BindingStorage, ReadOnly: false}, // 2: dst
		},
	}
)
