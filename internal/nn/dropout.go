package nn

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/navarp/navarp-go/internal/tensor"
)

// Dropout zeroes each element with probability p during training and scales
// the survivors by 1/(1-p) (inverted dropout). In evaluation mode it is the
// identity.
//
// New modules start in training mode, like torch.nn.Dropout.
type Dropout[B tensor.Backend] struct {
	p        float64
	training bool
	src      rand.Source
}

// NewDropout creates a dropout module with drop probability p.
// A nil src uses a randomly seeded PCG source.
//
// Panics if p is outside [0, 1].
func NewDropout[B tensor.Backend](p float64, src rand.Source) *Dropout[B] {
	if p < 0 || p > 1 {
		panic(fmt.Sprintf("dropout: probability must be in [0, 1], got %g", p))
	}
	return &Dropout[B]{
		p:        p,
		training: true,
		src:      sourceOrRandom(src),
	}
}

// Forward applies the dropout mask in training mode and returns the input
// unchanged in evaluation mode.
func (d *Dropout[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !d.training || d.p == 0 {
		return input
	}

	mask := tensor.Zeros[float32](input.Shape(), input.Backend())
	if d.p < 1 {
		keep := distuv.Bernoulli{P: 1 - d.p, Src: d.src}
		scale := float32(1 / (1 - d.p))
		data := mask.Data()
		for i := range data {
			data[i] = float32(keep.Rand()) * scale
		}
	}

	return input.Mul(mask)
}

// SetTraining switches between training (mask applied) and evaluation
// (identity) mode.
func (d *Dropout[B]) SetTraining(training bool) {
	d.training = training
}

// Training reports whether the module is in training mode.
func (d *Dropout[B]) Training() bool {
	return d.training
}

// P returns the drop probability.
func (d *Dropout[B]) P() float64 {
	return d.p
}

// Parameters returns nil (Dropout has no parameters).
func (d *Dropout[B]) Parameters() []*Parameter[B] {
	return nil
}

// StateDict returns an empty map.
func (d *Dropout[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict is a no-op.
func (d *Dropout[B]) LoadStateDict(map[string]*tensor.RawTensor) error {
	return nil
}

// String returns a string representation of the layer.
func (d *Dropout[B]) String() string {
	return fmt.Sprintf("Dropout(p=%g)", d.p)
}
