package nn

import (
	"fmt"

	"github.com/navarp/navarp-go/internal/tensor"
)

// Parameter is a named tensor owned by a layer, such as a weight or bias.
//
// Example:
//
//	weight := nn.NewParameter("weight", weightTensor)
//	w := weight.Tensor()
type Parameter[B tensor.Backend] struct {
	name   string                     // Parameter name (e.g., "weight", "bias")
	tensor *tensor.Tensor[float32, B] // The parameter tensor
}

// NewParameter creates a new parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{
		name:   name,
		tensor: t,
	}
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	return p.tensor
}

// NumElements returns the number of scalar values held by the parameter.
func (p *Parameter[B]) NumElements() int {
	return p.tensor.NumElements()
}

// Load copies raw into the parameter. The shape must match exactly and
// raw must hold float32 values.
func (p *Parameter[B]) Load(raw *tensor.RawTensor) error {
	if !raw.Shape().Equal(p.tensor.Shape()) {
		return fmt.Errorf("%w: %s: expected %v, got %v", ErrShapeMismatch, p.name, p.tensor.Shape(), raw.Shape())
	}
	if raw.DType() != tensor.Float32 {
		return fmt.Errorf("%w: %s: %s", ErrUnsupportedDType, p.name, raw.DType())
	}
	copy(p.tensor.Raw().Data(), raw.Data())
	return nil
}
