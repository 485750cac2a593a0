//go:build windows

package webgpu

import (
	"fmt"

	"github.com/navarp/navarp-go/internal/tensor"
)

// Add performs element-wise addition on the GPU.
// Supports equal shapes and a per-channel [1, C, 1, 1] right operand.
func (b *Backend) Add(a, other *tensor.RawTensor) *tensor.RawTensor {
	if a.Shape().Equal(other.Shape()) {
		return b.mustRun(b.elementwise("add", addShader, a, other))
	}

	if c, plane, ok := channelBroadcast(a.Shape(), other.Shape()); ok {
		n := a.NumElements()
		//nolint:gosec // G115: sizes are non-negative
		return b.mustRun(kernelCall{
			name:   "channel_add",
			code:   channelAddShader,
			inputs: []*tensor.RawTensor{a, other},
			output: a.Shape(),
			params: []uint32{uint32(n), uint32(c), uint32(plane)},
			groups: [3]uint32{groupsFor(n, workgroupSize), 1, 1},
		})
	}

	panic(fmt.Sprintf("webgpu: add: unsupported broadcast %v + %v", a.Shape(), other.Shape()))
}

// Mul performs element-wise multiplication of equally shaped tensors on the GPU.
func (b *Backend) Mul(a, other *tensor.RawTensor) *tensor.RawTensor {
	if !a.Shape().Equal(other.Shape()) {
		panic(fmt.Sprintf("webgpu: mul: shape mismatch %v vs %v", a.Shape(), other.Shape()))
	}
	return b.mustRun(b.elementwise("mul", mulShader, a, other))
}

// ReLU applies max(0, x) on the GPU.
func (b *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	n := x.NumElements()
	//nolint:gosec // G115: sizes are non-negative
	return b.mustRun(kernelCall{
		name:   "relu",
		code:   reluShader,
		inputs: []*tensor.RawTensor{x},
		output: x.Shape(),
		params: []uint32{uint32(n)},
		groups: [3]uint32{groupsFor(n, workgroupSize), 1, 1},
	})
}

// Conv2D performs 2D convolution on the GPU.
// Input [N, C_in, H, W], kernel [C_out, C_in, K_h, K_w].
func (b *Backend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	inShape := input.Shape()
	kShape := kernel.Shape()

	if len(inShape) != 4 {
		panic(fmt.Sprintf("webgpu: conv2d: input must be 4D [N,C,H,W], got %dD %v", len(inShape), inShape))
	}
	if len(kShape) != 4 {
		panic(fmt.Sprintf("webgpu: conv2d: kernel must be 4D, got %dD", len(kShape)))
	}
	if inShape[1] != kShape[1] {
		panic(fmt.Sprintf("webgpu: conv2d: input channels %d != kernel channels %d", inShape[1], kShape[1]))
	}
	if stride <= 0 || padding < 0 {
		panic(fmt.Sprintf("webgpu: conv2d: invalid stride %d / padding %d", stride, padding))
	}

	batch, inC, h, w := inShape[0], inShape[1], inShape[2], inShape[3]
	outC, kh, kw := kShape[0], kShape[2], kShape[3]
	outH := (h+2*padding-kh)/stride + 1
	outW := (w+2*padding-kw)/stride + 1
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("webgpu: conv2d: invalid output dimensions %dx%d", outH, outW))
	}

	//nolint:gosec // G115: dimensions are validated positive
	return b.mustRun(kernelCall{
		name:   "conv2d",
		code:   conv2dShader,
		inputs: []*tensor.RawTensor{input, kernel},
		output: tensor.Shape{batch, outC, outH, outW},
		params: []uint32{
			uint32(batch), uint32(inC), uint32(h), uint32(w),
			uint32(outC), uint32(kh), uint32(kw), uint32(stride), uint32(padding),
		},
		groups: [3]uint32{groupsFor(outW, 8), groupsFor(outH, 8), uint32(batch * outC)},
	})
}

// Reshape copies t under a new shape. No kernel is needed: results already
// live in host memory.
func (b *Backend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("webgpu: reshape: incompatible shapes %v -> %v", t.Shape(), newShape))
	}
	result, err := tensor.NewRaw(newShape, t.DType(), tensor.WebGPU)
	if err != nil {
		panic(fmt.Sprintf("webgpu: reshape: %v", err))
	}
	copy(result.Data(), t.Data())
	return result
}

func (b *Backend) elementwise(name, code string, a, other *tensor.RawTensor) kernelCall {
	n := a.NumElements()
	//nolint:gosec // G115: sizes are non-negative
	return kernelCall{
		name:   name,
		code:   code,
		inputs: []*tensor.RawTensor{a, other},
		output: a.Shape(),
		params: []uint32{uint32(n)},
		groups: [3]uint32{groupsFor(n, workgroupSize), 1, 1},
	}
}

func (b *Backend) mustRun(call kernelCall) *tensor.RawTensor {
	result, err := b.run(call)
	if err != nil {
		panic(fmt.Sprintf("webgpu: %s: %v", call.name, err))
	}
	return result
}

// channelBroadcast reports whether bias has shape [1, C, 1, 1] matching a
// 4D [N, C, H, W] operand, returning C and H*W.
func channelBroadcast(a, bias tensor.Shape) (channels, plane int, ok bool) {
	if len(a) != 4 || len(bias) != 4 {
		return 0, 0, false
	}
	if bias[0] != 1 || bias[1] != a[1] || bias[2] != 1 || bias[3] != 1 {
		return 0, 0, false
	}
	return a[1], a[2] * a[3], true
}
