// Package denoise applies the trained network to stacks of ARPES detector
// slices.
//
// A Processor selects a device, loads the checkpoint and runs one of two
// strategies over the stack. Literal reproduces the established behaviour
// (a single whole-stack pass); PerSlice denoises each slice independently.
package denoise

import (
	"fmt"
	"log"

	"github.com/navarp/navarp-go/internal/checkpoint"
	"github.com/navarp/navarp-go/internal/srcnn"
	"github.com/navarp/navarp-go/internal/tensor"
)

type (
	backendTensor = tensor.Tensor[float32, tensor.Backend]
	network       = srcnn.Model[tensor.Backend]
)

// Processor denoises slice stacks.
type Processor struct {
	cfg    Config
	logger *log.Logger
}

// New creates a Processor. Nothing is loaded until the first Denoise call.
func New(cfg Config) *Processor {
	return &Processor{
		cfg:    cfg,
		logger: cfg.logger(),
	}
}

// Config returns the processor's configuration.
func (p *Processor) Config() Config {
	return p.cfg
}

// Denoise runs the network over stack, a rank-3 [N, H, W] or rank-2
// [H, W] float tensor, and returns a host tensor tagged with the device the
// computation ran on. The input is not modified.
//
// Checkpoint errors are returned as-is (ErrMissingCheckpoint,
// ErrShapeMismatch, ErrCorruptCheckpoint). A failing backend is reported
// as ErrBackend; there is no retry and no fallback to another device.
func (p *Processor) Denoise(stack *tensor.RawTensor) (*tensor.RawTensor, error) {
	if err := validateStack(stack); err != nil {
		return nil, err
	}

	path, err := p.weightsPath()
	if err != nil {
		return nil, err
	}

	var result *tensor.RawTensor
	run := func(inst *instance) error {
		var runErr error
		result, runErr = p.run(inst.model, stack)
		return runErr
	}

	if p.cfg.Reuse {
		err = withShared(path, p.cfg.selector(), p.logger, run)
	} else {
		var inst *instance
		inst, err = acquire(path, p.cfg.selector(), p.logger)
		if err != nil {
			return nil, err
		}
		defer inst.release()
		err = run(inst)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Processor) weightsPath() (string, error) {
	if p.cfg.WeightsPath != "" {
		return p.cfg.WeightsPath, nil
	}
	path, err := checkpoint.DefaultPath()
	if err != nil {
		return "", fmt.Errorf("failed to resolve weights path: %w", err)
	}
	return path, nil
}

// run executes the configured strategy. Backend panics outside the
// forward pass are reported as ErrBackend.
func (p *Processor) run(m *network, stack *tensor.RawTensor) (out *tensor.RawTensor, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %v", ErrBackend, r)
		}
	}()

	p.logger.Printf("data shape: %v", stack.Shape())

	switch p.cfg.Strategy {
	case Literal:
		return p.literal(m, stack)
	case PerSlice:
		return p.perSlice(m, stack)
	default:
		return nil, fmt.Errorf("denoise: unknown strategy %s", p.cfg.Strategy)
	}
}

// literal submits the whole stack once: two singleton axes are inserted
// at position 1, the batch goes through the network, axis 1 is dropped and
// entry 0 of the collected passes is returned with its singleton axis
// removed. Only the first of the N nominal iterations ever runs.
func (p *Processor) literal(m *network, stack *tensor.RawTensor) (*tensor.RawTensor, error) {
	p.logger.Printf("denoising slice: %d", 0)

	noise := upload(m.Backend(), stack)
	out, err := forward(m, noise.Unsqueeze(1).Unsqueeze(1))
	if err != nil {
		return nil, err
	}

	denoised := tensor.Stack([]*backendTensor{out.Squeeze(1)})
	result := denoised.Index(0).Squeeze(1)

	p.logger.Printf("output shape: %v", result.Shape())
	return result.Raw(), nil
}

// perSlice runs one [1, 1, H, W] pass per slice and stacks the results.
func (p *Processor) perSlice(m *network, stack *tensor.RawTensor) (*tensor.RawTensor, error) {
	rank2 := len(stack.Shape()) == 2

	noise := upload(m.Backend(), stack)
	if rank2 {
		noise = noise.Unsqueeze(0)
	}

	n := noise.Shape()[0]
	outputs := make([]*backendTensor, n)
	for i := range n {
		p.logger.Printf("denoising slice: %d", i)

		out, err := forward(m, noise.Index(i).Unsqueeze(0).Unsqueeze(0))
		if err != nil {
			return nil, fmt.Errorf("slice %d: %w", i, err)
		}
		outputs[i] = out.Squeeze(0).Squeeze(0)
	}

	result := tensor.Stack(outputs)
	if rank2 {
		result = result.Index(0)
	}

	p.logger.Printf("output shape: %v", result.Shape())
	return result.Raw(), nil
}

// forward runs the network, turning kernel panics into errors. A model
// input that is not 4D is reported as ErrMalformedBatch.
func forward(m *network, x *backendTensor) (out *backendTensor, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			if len(x.Shape()) != 4 {
				err = fmt.Errorf("%w: model input %v: %v", ErrMalformedBatch, x.Shape(), r)
				return
			}
			err = fmt.Errorf("%w: %v", ErrBackend, r)
		}
	}()

	return m.Forward(x), nil
}

// upload copies stack onto backend as float32.
func upload(backend tensor.Backend, stack *tensor.RawTensor) *backendTensor {
	host := stack
	if stack.DType() == tensor.Float64 {
		narrowed, err := tensor.NewRaw(stack.Shape(), tensor.Float32, tensor.CPU)
		if err != nil {
			panic(fmt.Sprintf("upload: %v", err))
		}
		dst := narrowed.AsFloat32()
		for i, v := range stack.AsFloat64() {
			dst[i] = float32(v)
		}
		host = narrowed
	}
	return tensor.New[float32](backend.Reshape(host, host.Shape()), backend)
}

func validateStack(stack *tensor.RawTensor) error {
	if stack == nil {
		return fmt.Errorf("%w: nil stack", ErrInvalidStack)
	}
	shape := stack.Shape()
	if len(shape) != 2 && len(shape) != 3 {
		return fmt.Errorf("%w: expected [N, H, W] or [H, W], got %dD %v", ErrInvalidStack, len(shape), shape)
	}
	if err := shape.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidStack, err)
	}
	if stack.DType() != tensor.Float32 && stack.DType() != tensor.Float64 {
		return fmt.Errorf("%w: unsupported dtype %s", ErrInvalidStack, stack.DType())
	}
	return nil
}
