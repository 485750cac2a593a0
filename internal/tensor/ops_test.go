package tensor_test

import (
	"testing"

	"github.com/navarp/navarp-go/internal/backend/cpu"
	"github.com/navarp/navarp-go/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnsqueezeSqueeze(t *testing.T) {
	backend := cpu.New()
	x := tensor.Zeros[float32](tensor.Shape{5, 7}, backend)

	y := x.Unsqueeze(1).Unsqueeze(1)
	assert.Equal(t, tensor.Shape{5, 1, 1, 7}, y.Shape())

	z := y.Squeeze(1)
	assert.Equal(t, tensor.Shape{5, 1, 7}, z.Shape())

	assert.Panics(t, func() { x.Squeeze(0) })
}

func TestIndexAndStack(t *testing.T) {
	backend := cpu.New()
	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2}, backend)
	require.NoError(t, err)

	row := x.Index(1)
	assert.Equal(t, tensor.Shape{2}, row.Shape())
	assert.Equal(t, []float32{3, 4}, row.Data())

	row.Data()[0] = 42
	assert.Equal(t, float32(3), x.At(1, 0), "Index must copy")

	stacked := tensor.Stack([]*tensor.Tensor[float32, *cpu.CPUBackend]{x.Index(2), x.Index(0)})
	assert.Equal(t, tensor.Shape{2, 2}, stacked.Shape())
	assert.Equal(t, []float32{5, 6, 1, 2}, stacked.Data())

	assert.Panics(t, func() { x.Index(3) })
}

func TestAddBroadcastsBias(t *testing.T) {
	backend := cpu.New()
	x := tensor.Zeros[float32](tensor.Shape{1, 2, 2, 2}, backend)
	bias, err := tensor.FromSlice([]float32{1, -1}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	out := x.Add(bias.Reshape(1, 2, 1, 1))
	assert.Equal(t, []float32{1, 1, 1, 1, -1, -1, -1, -1}, out.Data())
}
