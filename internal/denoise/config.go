package denoise

import (
	"fmt"
	"io"
	"log"

	"github.com/navarp/navarp-go/internal/device"
)

// Strategy selects how a stack is pushed through the network.
type Strategy int

const (
	// Literal submits the whole stack as one batch and returns the result
	// of that single pass. A [H, W] input yields [H, W]; a [N, H, W] input
	// forms a 5D batch and fails with ErrMalformedBatch.
	Literal Strategy = iota

	// PerSlice denoises every [H, W] slice on its own and returns
	// [N, H, W] ([H, W] for rank-2 input).
	PerSlice
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case Literal:
		return "literal"
	case PerSlice:
		return "per-slice"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Config configures a Processor.
type Config struct {
	// WeightsPath is the checkpoint file. Empty means
	// <executable dir>/extras/weights.safetensors.
	WeightsPath string

	// Strategy selects the batching behaviour. Default Literal.
	Strategy Strategy

	// Logger receives diagnostic lines (data shape, slice index, output
	// shape). Nil discards them.
	Logger *log.Logger

	// Reuse keeps one loaded model per process instead of rebuilding it on
	// every call. See ResetShared.
	Reuse bool

	// Selector picks the compute device. Nil means device.Default().
	Selector *device.Selector
}

// DefaultConfig returns the configuration reproducing the original
// behaviour: literal strategy, fresh model per call, default device
// selection and weights location.
func DefaultConfig() Config {
	return Config{
		Strategy: Literal,
	}
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.New(io.Discard, "", 0)
}

func (c Config) selector() *device.Selector {
	if c.Selector != nil {
		return c.Selector
	}
	return device.Default()
}
