package nn

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/navarp/navarp-go/internal/tensor"
)

// FanInOut returns the fan-in and fan-out of a weight shape.
//
// For a convolution weight [out_channels, in_channels, kernel_h, kernel_w]:
//
//	fan_in  = in_channels * kernel_h * kernel_w
//	fan_out = out_channels * kernel_h * kernel_w
//
// Panics for shapes with fewer than two dimensions.
func FanInOut(shape tensor.Shape) (fanIn, fanOut int) {
	if len(shape) < 2 {
		panic(fmt.Sprintf("fan in/out requires at least 2 dimensions, got %v", shape))
	}
	receptive := 1
	for _, d := range shape[2:] {
		receptive *= d
	}
	return shape[1] * receptive, shape[0] * receptive
}

// XavierUniform fills t in place with Xavier (Glorot) uniform values:
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out))).
//
// Draws come from src, so a seeded source gives reproducible weights.
// A nil src uses a randomly seeded PCG source.
func XavierUniform[B tensor.Backend](t *tensor.Tensor[float32, B], src rand.Source) {
	fanIn, fanOut := FanInOut(t.Shape())
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	dist := distuv.Uniform{Min: -bound, Max: bound, Src: sourceOrRandom(src)}
	data := t.Data()
	for i := range data {
		data[i] = float32(dist.Rand())
	}
}

// Zeros creates a tensor filled with zeros.
//
// This is commonly used for bias initialization.
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Zeros[float32](shape, backend)
}

func sourceOrRandom(src rand.Source) rand.Source {
	if src != nil {
		return src
	}
	//nolint:gosec // weight initialization is not security-critical
	return rand.NewPCG(rand.Uint64(), rand.Uint64())
}
