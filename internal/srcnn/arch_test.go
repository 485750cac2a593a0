package srcnn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navarp/navarp-go/internal/tensor"
)

func TestDescriptorLayout(t *testing.T) {
	layers := Descriptor()
	require.Len(t, layers, 35)

	counts := map[LayerKind]int{}
	for i, l := range layers[:34] {
		counts[l.Kind]++
		if i%2 == 0 {
			assert.Equal(t, KindConvolution, l.Kind, "layer %d", i)
		} else {
			assert.Equal(t, KindActivation, l.Kind, "layer %d", i)
		}
	}
	assert.Equal(t, 17, counts[KindConvolution])
	assert.Equal(t, 17, counts[KindActivation])

	last := layers[34]
	assert.Equal(t, KindDropout, last.Kind)
	assert.InDelta(t, 0.2, last.DropProb, 1e-12)
}

func TestDescriptorChannels(t *testing.T) {
	var convs []LayerSpec
	for _, l := range Descriptor() {
		if l.Kind == KindConvolution {
			convs = append(convs, l)
		}
	}
	require.Len(t, convs, NumConvolutions)

	assert.Equal(t, 1, convs[0].InChannels)
	assert.Equal(t, 64, convs[0].OutChannels)
	for _, c := range convs[1:16] {
		assert.Equal(t, 64, c.InChannels)
		assert.Equal(t, 64, c.OutChannels)
	}
	assert.Equal(t, 64, convs[16].InChannels)
	assert.Equal(t, 1, convs[16].OutChannels)

	for _, c := range convs {
		assert.Equal(t, 3, c.KernelSize)
		assert.Equal(t, 1, c.Stride)
		assert.Equal(t, 1, c.Padding)
	}
	assert.Equal(t, "srcnn.0", convs[0].Key)
	assert.Equal(t, "srcnn.32", convs[16].Key)
}

func TestParameterCount(t *testing.T) {
	assert.Equal(t, 555137, ParameterCount())
}

func TestStateShapes(t *testing.T) {
	shapes := StateShapes()
	assert.Len(t, shapes, 34)
	assert.Equal(t, tensor.Shape{64, 1, 3, 3}, shapes["srcnn.0.weight"])
	assert.Equal(t, tensor.Shape{64}, shapes["srcnn.0.bias"])
	assert.Equal(t, tensor.Shape{64, 64, 3, 3}, shapes["srcnn.2.weight"])
	assert.Equal(t, tensor.Shape{1, 64, 3, 3}, shapes["srcnn.32.weight"])
	assert.Equal(t, tensor.Shape{1}, shapes["srcnn.32.bias"])
	assert.NotContains(t, shapes, "srcnn.1.weight")
}

func TestLayerKindString(t *testing.T) {
	assert.Equal(t, "Convolution", KindConvolution.String())
	assert.Equal(t, "Dropout", KindDropout.String())
	assert.Equal(t, "LayerKind(9)", LayerKind(9).String())
}
