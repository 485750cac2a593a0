package cpu

import (
	"fmt"

	"github.com/navarp/navarp-go/internal/tensor"
)

// ReLU applies the rectified linear unit: max(0, x).
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("relu: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		relu(result.AsFloat32(), x.AsFloat32())
	case tensor.Float64:
		relu(result.AsFloat64(), x.AsFloat64())
	default:
		panic(fmt.Sprintf("relu: unsupported dtype %s", x.DType()))
	}

	return result
}

func relu[T float](dst, src []T) {
	for i, v := range src {
		// NaN compares false and is passed through, like torch.relu.
		if v < 0 {
			dst[i] = 0
		} else {
			dst[i] = v
		}
	}
}
