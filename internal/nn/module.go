// Package nn implements the neural network modules the denoiser is built from.
//
// This package provides building blocks for constructing networks:
//   - Module interface: Base interface for all NN components
//   - Parameter: Named parameter tensors
//   - Conv2D: 2D convolution with optional bias
//   - ReLU: Rectified linear activation
//   - Dropout: Inverted dropout with an explicit train/eval mode
//   - Sequential: Container for stacking layers
//
// Modules are generic over the compute backend, so the same network runs on
// the host CPU or an accelerator.
package nn

import (
	"github.com/navarp/navarp-go/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Modules can be composed to build complex architectures:
//
//	model := nn.NewSequential[Backend](
//	    nn.NewConv2D(1, 64, 3, 3, 1, 1, true, backend),
//	    nn.NewReLU[Backend](),
//	)
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all parameters of this module, including those of
	// nested modules. Returns nil for modules without parameters.
	Parameters() []*Parameter[B]

	// StateDict returns the module's parameters keyed by name.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict copies values from stateDict into the module's parameters.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// Trainable is implemented by modules whose behaviour depends on the
// training mode (Dropout, and containers that hold such modules).
type Trainable interface {
	SetTraining(training bool)
}

// SetTraining switches m into training or evaluation mode if it has one.
func SetTraining[B tensor.Backend](m Module[B], training bool) {
	if t, ok := m.(Trainable); ok {
		t.SetTraining(training)
	}
}
