// Package srcnn defines the denoising network: a fixed stack of seventeen
// shape-preserving 3x3 convolutions with ReLU activations, followed by
// dropout.
//
// The topology is data (see Descriptor) so checkpoint validation, parameter
// counting and model construction all read the same layer list.
package srcnn

import (
	"fmt"

	"github.com/navarp/navarp-go/internal/tensor"
)

// Network constants.
const (
	NumConvolutions = 17
	HiddenChannels  = 64
	KernelSize      = 3
	Stride          = 1
	Padding         = 1
	DropProb        = 0.2

	// StackKey is the state dict prefix of the convolution stack.
	StackKey = "srcnn"
	// DropoutKey names the dropout layer. It has no parameters.
	DropoutKey = "dropout"
)

// LayerKind identifies a layer type in the descriptor.
type LayerKind int

// Layer kinds.
const (
	KindConvolution LayerKind = iota
	KindActivation
	KindDropout
)

// String returns the layer kind name.
func (k LayerKind) String() string {
	switch k {
	case KindConvolution:
		return "Convolution"
	case KindActivation:
		return "Activation"
	case KindDropout:
		return "Dropout"
	default:
		return fmt.Sprintf("LayerKind(%d)", int(k))
	}
}

// LayerSpec describes one layer of the network.
//
// Convolution fields are set for KindConvolution only, DropProb for
// KindDropout only.
type LayerSpec struct {
	Kind LayerKind
	// Key is the state dict prefix, e.g. "srcnn.4".
	Key string

	InChannels  int
	OutChannels int
	KernelSize  int
	Stride      int
	Padding     int

	DropProb float64
}

// WeightShape returns [out, in, k, k] for a convolution.
func (l LayerSpec) WeightShape() tensor.Shape {
	return tensor.Shape{l.OutChannels, l.InChannels, l.KernelSize, l.KernelSize}
}

// BiasShape returns [out] for a convolution.
func (l LayerSpec) BiasShape() tensor.Shape {
	return tensor.Shape{l.OutChannels}
}

// NumParameters returns k*k*in*out + out for a convolution and 0 otherwise.
func (l LayerSpec) NumParameters() int {
	if l.Kind != KindConvolution {
		return 0
	}
	return l.KernelSize*l.KernelSize*l.InChannels*l.OutChannels + l.OutChannels
}

// Descriptor returns the network topology: for each of the seventeen
// convolutions a KindConvolution entry followed by a KindActivation entry,
// then a single KindDropout entry.
//
// Channels run 1 -> 64 -> ... -> 64 -> 1. Keys follow the position in the
// convolution+activation list (srcnn.0, srcnn.2, ..., srcnn.32).
func Descriptor() []LayerSpec {
	layers := make([]LayerSpec, 0, 2*NumConvolutions+1)

	for i := range NumConvolutions {
		in, out := HiddenChannels, HiddenChannels
		if i == 0 {
			in = 1
		}
		if i == NumConvolutions-1 {
			out = 1
		}

		idx := len(layers)
		layers = append(layers,
			LayerSpec{
				Kind:        KindConvolution,
				Key:         fmt.Sprintf("%s.%d", StackKey, idx),
				InChannels:  in,
				OutChannels: out,
				KernelSize:  KernelSize,
				Stride:      Stride,
				Padding:     Padding,
			},
			LayerSpec{
				Kind: KindActivation,
				Key:  fmt.Sprintf("%s.%d", StackKey, idx+1),
			},
		)
	}

	return append(layers, LayerSpec{Kind: KindDropout, Key: DropoutKey, DropProb: DropProb})
}

// ParameterCount returns the number of scalar parameters (555,137).
func ParameterCount() int {
	total := 0
	for _, l := range Descriptor() {
		total += l.NumParameters()
	}
	return total
}

// StateShapes returns the expected shape of every state dict entry.
func StateShapes() map[string]tensor.Shape {
	shapes := make(map[string]tensor.Shape, 2*NumConvolutions)
	for _, l := range Descriptor() {
		if l.Kind != KindConvolution {
			continue
		}
		shapes[l.Key+".weight"] = l.WeightShape()
		shapes[l.Key+".bias"] = l.BiasShape()
	}
	return shapes
}
