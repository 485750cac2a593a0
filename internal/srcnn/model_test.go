package srcnn_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navarp/navarp-go/internal/backend/cpu"
	"github.com/navarp/navarp-go/internal/srcnn"
	"github.com/navarp/navarp-go/internal/tensor"
)

func randomInput(t *testing.T, backend *cpu.CPUBackend, shape tensor.Shape) *tensor.Tensor[float32, *cpu.CPUBackend] {
	t.Helper()
	data := make([]float32, shape.NumElements())
	for i := range data {
		data[i] = float32(math.Sin(float64(i)*0.37)) * 3
	}
	x, err := tensor.FromSlice(data, shape, backend)
	require.NoError(t, err)
	return x
}

func TestNewModel(t *testing.T) {
	m := srcnn.New(cpu.New(), srcnn.WithSeed(1))

	assert.Equal(t, srcnn.ModeTrain, m.Mode())
	assert.Equal(t, srcnn.ParameterCount(), m.NumParameters())
	assert.Len(t, m.Parameters(), 34)

	for _, p := range m.Parameters() {
		if p.Name() == "bias" {
			for _, v := range p.Tensor().Data() {
				require.Zero(t, v)
			}
		}
	}
}

func TestStateDictKeys(t *testing.T) {
	m := srcnn.New(cpu.New(), srcnn.WithSeed(1))

	sd := m.StateDict()
	require.Len(t, sd, 34)
	for key, shape := range srcnn.StateShapes() {
		raw, ok := sd[key]
		require.True(t, ok, key)
		assert.Equal(t, shape, raw.Shape(), key)
	}
}

func TestSeededConstructionIsReproducible(t *testing.T) {
	a := srcnn.New(cpu.New(), srcnn.WithSeed(42)).StateDict()
	b := srcnn.New(cpu.New(), srcnn.WithSeed(42)).StateDict()
	c := srcnn.New(cpu.New(), srcnn.WithSeed(43)).StateDict()

	assert.Equal(t, a["srcnn.16.weight"].AsFloat32(), b["srcnn.16.weight"].AsFloat32())
	assert.NotEqual(t, a["srcnn.16.weight"].AsFloat32(), c["srcnn.16.weight"].AsFloat32())
}

func TestForwardPreservesShapeAndIsNonNegative(t *testing.T) {
	backend := cpu.New()
	m := srcnn.New(backend, srcnn.WithSeed(3))
	m.Eval()

	for _, shape := range []tensor.Shape{{1, 1, 8, 8}, {2, 1, 5, 11}, {4, 1, 1, 9}} {
		out := m.Forward(randomInput(t, backend, shape))
		require.Equal(t, shape, out.Shape())
		for _, v := range out.Data() {
			require.GreaterOrEqual(t, v, float32(0))
		}
	}
}

func TestEvalIsDeterministic(t *testing.T) {
	backend := cpu.New()
	m := srcnn.New(backend, srcnn.WithSeed(9))
	m.Eval()
	assert.Equal(t, srcnn.ModeEval, m.Mode())

	x := randomInput(t, backend, tensor.Shape{1, 1, 6, 7})
	first := m.Forward(x).Data()
	second := m.Forward(x).Data()
	assert.Equal(t, first, second)
}

func TestForwardRejects5D(t *testing.T) {
	backend := cpu.New()
	m := srcnn.New(backend, srcnn.WithSeed(1))
	m.Eval()

	x := tensor.Zeros[float32](tensor.Shape{3, 1, 1, 8, 8}, backend)
	assert.Panics(t, func() { m.Forward(x) })
}

func TestLoadStateDictRoundTrip(t *testing.T) {
	src := srcnn.New(cpu.New(), srcnn.WithSeed(11))
	dst := srcnn.New(cpu.New(), srcnn.WithSeed(12))

	require.NoError(t, dst.LoadStateDict(src.StateDict()))

	want := src.StateDict()
	for key, raw := range dst.StateDict() {
		assert.Equal(t, want[key].AsFloat32(), raw.AsFloat32(), key)
	}
}

func TestLoadStateDictMissingKey(t *testing.T) {
	src := srcnn.New(cpu.New(), srcnn.WithSeed(11)).StateDict()
	delete(src, "srcnn.30.bias")

	err := srcnn.New(cpu.New(), srcnn.WithSeed(1)).LoadStateDict(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module 30")
}

func TestTrainModeAppliesDropout(t *testing.T) {
	backend := cpu.New()
	m := srcnn.New(backend, srcnn.WithSeed(5), srcnn.WithDropProb(1))

	out := m.Forward(randomInput(t, backend, tensor.Shape{1, 1, 4, 4}))
	for _, v := range out.Data() {
		assert.Zero(t, v)
	}

	m.Train()
	assert.Equal(t, srcnn.ModeTrain, m.Mode())
}
