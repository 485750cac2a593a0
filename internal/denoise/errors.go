package denoise

import (
	"errors"

	"github.com/navarp/navarp-go/internal/checkpoint"
)

// Errors returned by Processor.Denoise.
var (
	// ErrInvalidStack is returned for nil input, ranks other than 2 or 3,
	// or an empty dimension.
	ErrInvalidStack = errors.New("denoise: invalid input stack")

	// ErrMalformedBatch is returned when the model input is not a 4D
	// [N, C, H, W] batch. The literal strategy produces one for every
	// rank-3 stack.
	ErrMalformedBatch = errors.New("denoise: malformed batch")

	// ErrBackend is returned when the compute backend fails during
	// inference.
	ErrBackend = errors.New("denoise: backend failure")

	// Checkpoint errors, re-exported for callers of this package.
	ErrMissingCheckpoint = checkpoint.ErrMissingCheckpoint
	ErrShapeMismatch     = checkpoint.ErrShapeMismatch
	ErrCorruptCheckpoint = checkpoint.ErrCorruptCheckpoint
)
