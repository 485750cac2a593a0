package cpu

import (
	"fmt"

	"github.com/navarp/navarp-go/internal/tensor"
)

type float interface {
	~float32 | ~float64
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b, func(x, y float64) float64 { return x + y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b, func(x, y float64) float64 { return x * y })
}

func (cpu *CPUBackend) binary(op string, a, b *tensor.RawTensor, f func(x, y float64) float64) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", op, a.DType(), b.DType()))
	}

	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}

	result, err := tensor.NewRaw(outShape, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}

	switch a.DType() {
	case tensor.Float32:
		binaryOp(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), a.Shape(), b.Shape(), outShape, needsBroadcast, f)
	case tensor.Float64:
		binaryOp(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), a.Shape(), b.Shape(), outShape, needsBroadcast, f)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", op, a.DType()))
	}

	return result
}

func binaryOp[T float](dst, a, b []T, aShape, bShape, outShape tensor.Shape, broadcast bool, f func(x, y float64) float64) {
	if !broadcast {
		for i := range dst {
			dst[i] = T(f(float64(a[i]), float64(b[i])))
		}
		return
	}

	aStrides := broadcastStrides(aShape, outShape)
	bStrides := broadcastStrides(bShape, outShape)
	idx := make([]int, len(outShape))

	for i := range dst {
		aOff, bOff := 0, 0
		for d := range idx {
			aOff += idx[d] * aStrides[d]
			bOff += idx[d] * bStrides[d]
		}
		dst[i] = T(f(float64(a[aOff]), float64(b[bOff])))

		// Advance the multi-dimensional index (row-major).
		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < outShape[d] {
				break
			}
			idx[d] = 0
		}
	}
}

// broadcastStrides returns strides of shape aligned to out, with 0 for
// broadcast dimensions.
func broadcastStrides(shape, out tensor.Shape) []int {
	strides := make([]int, len(out))
	own := shape.ComputeStrides()
	offset := len(out) - len(shape)
	for i := range shape {
		if shape[i] != 1 {
			strides[offset+i] = own[i]
		}
	}
	return strides
}
