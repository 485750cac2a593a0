//go:build windows

package webgpu

// workgroupSize is the number of threads per workgroup for element-wise kernels.
const workgroupSize = 256

// reluShader applies ReLU activation: result = max(0, x).
const reluShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        result[idx] = max(0.0, input[idx]);
    }
}
`

// addShader performs element-wise addition of equally shaped tensors.
const addShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        result[idx] = a[idx] + b[idx];
    }
}
`

// mulShader performs element-wise multiplication of equally shaped tensors.
const mulShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        result[idx] = a[idx] * b[idx];
    }
}
`

// channelAddShader adds a per-channel vector to an [N, C, H, W] tensor.
const channelAddShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> bias: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
    channels: u32,
    plane: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        let c = (idx / params.plane) % params.channels;
        result[idx] = a[idx] + bias[c];
    }
}
`

// conv2dShader performs 2D convolution.
// Input shape: [batch, in_channels, height, width].
// Kernel shape: [out_channels, in_channels, kH, kW].
// Output shape: [batch, out_channels, out_height, out_width].
const conv2dShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read> kernel: array<f32>;
@group(0) @binding(2) var<storage, read_write> output: array<f32>;

struct Params {
    batch: u32,
    in_channels: u32,
    in_height: u32,
    in_width: u32,
    out_channels: u32,
    kernel_h: u32,
    kernel_w: u32,
    stride: u32,
    padding: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(8, 8, 1)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let out_width = (params.in_width + 2u * params.padding - params.kernel_w) / params.stride + 1u;
    let out_height = (params.in_height + 2u * params.padding - params.kernel_h) / params.stride + 1u;

    let b = global_id.z / params.out_channels;
    let oc = global_id.z % params.out_channels;
    let oh = global_id.y;
    let ow = global_id.x;

    if (b >= params.batch || oh >= out_height || ow >= out_width) {
        return;
    }

    var sum: f32 = 0.0;

    for (var ic: u32 = 0u; ic < params.in_channels; ic = ic + 1u) {
        for (var kh: u32 = 0u; kh < params.kernel_h; kh = kh + 1u) {
            for (var kw: u32 = 0u; kw < params.kernel_w; kw = kw + 1u) {
                // Unsigned wrap-around puts padded taps out of range.
                let ih = oh * params.stride + kh - params.padding;
                let iw = ow * params.stride + kw - params.padding;

                if (ih < params.in_height && iw < params.in_width) {
                    let in_idx = b * params.in_channels * params.in_height * params.in_width +
                                 ic * params.in_height * params.in_width +
                                 ih * params.in_width +
                                 iw;

                    let k_idx = oc * params.in_channels * params.kernel_h * params.kernel_w +
                                ic * params.kernel_h * params.kernel_w +
                                kh * params.kernel_w +
                                kw;

                    sum = sum + input[in_idx] * kernel[k_idx];
                }
            }
        }
    }

    let out_idx = b * params.out_channels * out_height * out_width +
                  oc * out_height * out_width +
                  oh * out_width +
                  ow;
    output[out_idx] = sum;
}
`
