package srcnn

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/navarp/navarp-go/internal/nn"
	"github.com/navarp/navarp-go/internal/tensor"
)

// Mode is the model's execution mode.
type Mode int

// Modes. ModeEval makes the forward pass deterministic.
const (
	ModeTrain Mode = iota
	ModeEval
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeEval {
		return "eval"
	}
	return "train"
}

type options struct {
	src      rand.Source
	dropProb float64
}

// Option configures model construction.
type Option func(*options)

// WithSeed makes construction and dropout masks reproducible.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.src = rand.NewPCG(seed, seed)
	}
}

// WithSource sets the random source used for initialization and dropout.
func WithSource(src rand.Source) Option {
	return func(o *options) {
		o.src = src
	}
}

// WithDropProb overrides the dropout probability.
func WithDropProb(p float64) Option {
	return func(o *options) {
		o.dropProb = p
	}
}

// Model is the denoising network bound to a backend.
//
// A new model is in ModeTrain with Xavier-uniform convolution weights and
// zero biases. Call Eval (or load a checkpoint) before inference.
type Model[B tensor.Backend] struct {
	stack   *nn.Sequential[B]
	dropout *nn.Dropout[B]
	backend B
	mode    Mode
}

// New builds the network described by Descriptor on backend.
func New[B tensor.Backend](backend B, opts ...Option) *Model[B] {
	o := options{dropProb: DropProb}
	for _, opt := range opts {
		opt(&o)
	}
	if o.src == nil {
		//nolint:gosec // weight initialization is not security-critical
		o.src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	m := &Model[B]{
		stack:   nn.NewSequential[B](),
		backend: backend,
		mode:    ModeTrain,
	}

	for _, l := range Descriptor() {
		switch l.Kind {
		case KindConvolution:
			conv := nn.NewConv2D(l.InChannels, l.OutChannels, l.KernelSize, l.KernelSize, l.Stride, l.Padding, true, backend)
			nn.XavierUniform(conv.Weight().Tensor(), o.src)
			m.stack.Add(conv)
		case KindActivation:
			m.stack.Add(nn.NewReLU[B]())
		case KindDropout:
			m.dropout = nn.NewDropout[B](o.dropProb, o.src)
		}
	}

	return m
}

// Forward runs the convolution stack and then dropout.
//
// Input must be [N, 1, H, W]; the output has the same shape. The backend
// panics on any other rank.
func (m *Model[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return m.dropout.Forward(m.stack.Forward(input))
}

// Eval switches to evaluation mode: dropout becomes the identity.
func (m *Model[B]) Eval() {
	m.setMode(ModeEval)
}

// Train switches to training mode.
func (m *Model[B]) Train() {
	m.setMode(ModeTrain)
}

func (m *Model[B]) setMode(mode Mode) {
	m.mode = mode
	training := mode == ModeTrain
	m.stack.SetTraining(training)
	m.dropout.SetTraining(training)
}

// Mode returns the current mode.
func (m *Model[B]) Mode() Mode {
	return m.mode
}

// Backend returns the backend the model's parameters live on.
func (m *Model[B]) Backend() B {
	return m.backend
}

// Parameters returns the convolution weights and biases in layer order.
func (m *Model[B]) Parameters() []*nn.Parameter[B] {
	return m.stack.Parameters()
}

// NumParameters returns the number of scalar parameters held by the model.
func (m *Model[B]) NumParameters() int {
	total := 0
	for _, p := range m.Parameters() {
		total += p.NumElements()
	}
	return total
}

// StateDict returns the parameters keyed "srcnn.<index>.weight|bias".
func (m *Model[B]) StateDict() map[string]*tensor.RawTensor {
	inner := m.stack.StateDict()
	stateDict := make(map[string]*tensor.RawTensor, len(inner))
	for name, raw := range inner {
		stateDict[StackKey+"."+name] = raw
	}
	return stateDict
}

// LoadStateDict copies parameters keyed like StateDict into the model.
// Keys outside the convolution stack are ignored.
func (m *Model[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	inner := make(map[string]*tensor.RawTensor, len(stateDict))
	for key, raw := range stateDict {
		if name, ok := strings.CutPrefix(key, StackKey+"."); ok {
			inner[name] = raw
		}
	}
	if err := m.stack.LoadStateDict(inner); err != nil {
		return fmt.Errorf("srcnn: %w", err)
	}
	return nil
}

// String returns a short summary.
func (m *Model[B]) String() string {
	return fmt.Sprintf("SRCNN(convolutions=%d, parameters=%d, mode=%s)", NumConvolutions, m.NumParameters(), m.mode)
}
