package nn_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navarp/navarp-go/internal/backend/cpu"
	"github.com/navarp/navarp-go/internal/nn"
	"github.com/navarp/navarp-go/internal/tensor"
)

func TestParameterLoad(t *testing.T) {
	backend := cpu.New()
	p := nn.NewParameter("weight", tensor.Zeros[float32](tensor.Shape{2, 2}, backend))

	raw, err := tensor.FromFloat32([]float32{1, 2, 3, 4}, 2, 2)
	require.NoError(t, err)
	require.NoError(t, p.Load(raw))
	assert.Equal(t, []float32{1, 2, 3, 4}, p.Tensor().Data())

	wrong, err := tensor.FromFloat32([]float32{1, 2, 3, 4}, 4)
	require.NoError(t, err)
	assert.ErrorIs(t, p.Load(wrong), nn.ErrShapeMismatch)

	f64, err := tensor.NewRaw(tensor.Shape{2, 2}, tensor.Float64, tensor.CPU)
	require.NoError(t, err)
	assert.ErrorIs(t, p.Load(f64), nn.ErrUnsupportedDType)
}

func TestFanInOut(t *testing.T) {
	fanIn, fanOut := nn.FanInOut(tensor.Shape{64, 1, 3, 3})
	assert.Equal(t, 9, fanIn)
	assert.Equal(t, 576, fanOut)

	assert.Panics(t, func() { nn.FanInOut(tensor.Shape{5}) })
}

func TestXavierUniformBounds(t *testing.T) {
	backend := cpu.New()
	w := tensor.Zeros[float32](tensor.Shape{64, 64, 3, 3}, backend)

	nn.XavierUniform(w, rand.NewPCG(1, 2))

	bound := float32(math.Sqrt(6.0 / float64(64*9+64*9)))
	nonZero := 0
	for _, v := range w.Data() {
		require.LessOrEqual(t, v, bound)
		require.GreaterOrEqual(t, v, -bound)
		if v != 0 {
			nonZero++
		}
	}
	assert.Greater(t, nonZero, w.NumElements()/2)
}

func TestXavierUniformSeeded(t *testing.T) {
	backend := cpu.New()
	a := tensor.Zeros[float32](tensor.Shape{8, 4, 3, 3}, backend)
	b := tensor.Zeros[float32](tensor.Shape{8, 4, 3, 3}, backend)

	nn.XavierUniform(a, rand.NewPCG(7, 7))
	nn.XavierUniform(b, rand.NewPCG(7, 7))

	assert.Equal(t, a.Data(), b.Data())
}

func TestReLUModule(t *testing.T) {
	backend := cpu.New()
	x, err := tensor.FromSlice([]float32{-1, 0, 2}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	relu := nn.NewReLU[*cpu.CPUBackend]()
	assert.Equal(t, []float32{0, 0, 2}, relu.Forward(x).Data())
	assert.Empty(t, relu.Parameters())
	assert.Empty(t, relu.StateDict())
}

func TestDropoutEvalIsIdentity(t *testing.T) {
	backend := cpu.New()
	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{4}, backend)
	require.NoError(t, err)

	d := nn.NewDropout[*cpu.CPUBackend](0.2, rand.NewPCG(1, 1))
	assert.True(t, d.Training())

	d.SetTraining(false)
	assert.Equal(t, []float32{1, 2, 3, 4}, d.Forward(x).Data())
}

func TestDropoutTrainScalesSurvivors(t *testing.T) {
	backend := cpu.New()
	data := make([]float32, 10000)
	for i := range data {
		data[i] = 1
	}
	x, err := tensor.FromSlice(data, tensor.Shape{len(data)}, backend)
	require.NoError(t, err)

	d := nn.NewDropout[*cpu.CPUBackend](0.2, rand.NewPCG(3, 4))
	out := d.Forward(x).Data()

	dropped := 0
	for _, v := range out {
		if v == 0 {
			dropped++
			continue
		}
		require.InDelta(t, 1.25, v, 1e-6)
	}
	assert.InDelta(t, 0.2, float64(dropped)/float64(len(out)), 0.03)
}

func TestDropoutAllDropped(t *testing.T) {
	backend := cpu.New()
	x, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	d := nn.NewDropout[*cpu.CPUBackend](1, nil)
	assert.Equal(t, []float32{0, 0, 0}, d.Forward(x).Data())

	assert.Panics(t, func() { nn.NewDropout[*cpu.CPUBackend](1.5, nil) })
}

func TestSequentialStateDictKeys(t *testing.T) {
	backend := cpu.New()
	model := nn.NewSequential[*cpu.CPUBackend](
		nn.NewConv2D(1, 4, 3, 3, 1, 1, true, backend),
		nn.NewReLU[*cpu.CPUBackend](),
		nn.NewConv2D(4, 1, 3, 3, 1, 1, true, backend),
	)

	keys := make([]string, 0)
	for k := range model.StateDict() {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"0.weight", "0.bias", "2.weight", "2.bias"}, keys)
	assert.Len(t, model.Parameters(), 4)
}

func TestSequentialLoadStateDict(t *testing.T) {
	backend := cpu.New()
	newModel := func() *nn.Sequential[*cpu.CPUBackend] {
		return nn.NewSequential[*cpu.CPUBackend](
			nn.NewConv2D(1, 2, 3, 3, 1, 1, true, backend),
			nn.NewReLU[*cpu.CPUBackend](),
		)
	}

	src := newModel()
	conv := src.Module(0).(*nn.Conv2D[*cpu.CPUBackend])
	nn.XavierUniform(conv.Weight().Tensor(), rand.NewPCG(5, 6))
	copy(conv.Bias().Tensor().Data(), []float32{0.5, -0.5})

	dst := newModel()
	require.NoError(t, dst.LoadStateDict(src.StateDict()))

	loaded := dst.Module(0).(*nn.Conv2D[*cpu.CPUBackend])
	assert.Equal(t, conv.Weight().Tensor().Data(), loaded.Weight().Tensor().Data())
	assert.Equal(t, []float32{0.5, -0.5}, loaded.Bias().Tensor().Data())

	partial := src.StateDict()
	delete(partial, "0.bias")
	err := newModel().LoadStateDict(partial)
	require.ErrorIs(t, err, nn.ErrMissingParameter)
	assert.Contains(t, err.Error(), "module 0")
}

func TestSequentialSetTraining(t *testing.T) {
	d := nn.NewDropout[*cpu.CPUBackend](0.5, nil)
	model := nn.NewSequential[*cpu.CPUBackend](nn.NewReLU[*cpu.CPUBackend](), d)

	model.SetTraining(false)
	assert.False(t, d.Training())

	nn.SetTraining[*cpu.CPUBackend](model, true)
	assert.True(t, d.Training())
}
