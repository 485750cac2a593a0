package tensor

// Backend defines the operations a compute device must provide to run the
// denoising network. Backends handle the actual computation; Tensor only
// routes calls.
//
// Implementations:
//   - backend/cpu: pure Go, conv2d fanned out over batch and channels
//   - backend/webgpu: WGSL compute shaders (windows, wgpu_native)
//
// Kernels panic on malformed inputs. Callers that need an error return
// recover at their boundary.
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor

	// Conv2D convolves input [N, C_in, H, W] with kernel [C_out, C_in, K_h, K_w].
	Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor

	// ReLU applies max(0, x) element-wise.
	ReLU(x *RawTensor) *RawTensor

	// Reshape returns a tensor with the same data and a new shape.
	Reshape(t *RawTensor, newShape Shape) *RawTensor

	// Metadata.
	Name() string
	Device() Device
}
