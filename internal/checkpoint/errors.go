package checkpoint

import (
	"errors"
	"fmt"

	"github.com/navarp/navarp-go/internal/tensor"
)

// Errors returned by Load and the Reader.
var (
	ErrMissingCheckpoint = errors.New("checkpoint not found")
	ErrCorruptCheckpoint = errors.New("checkpoint is corrupt")
	ErrShapeMismatch     = errors.New("checkpoint does not match the network")
	ErrUnsupportedDType  = errors.New("unsupported checkpoint dtype")
	ErrChecksumMismatch  = errors.New("checksum mismatch")
)

// MismatchError reports a state dict entry whose shape differs from the
// network's. Got is nil when the entry is absent.
type MismatchError struct {
	Key  string
	Want tensor.Shape
	Got  tensor.Shape
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	if e.Got == nil {
		return fmt.Sprintf("%s: missing (want %v)", e.Key, e.Want)
	}
	return fmt.Sprintf("%s: want %v, got %v", e.Key, e.Want, e.Got)
}

// Unwrap returns ErrShapeMismatch.
func (e *MismatchError) Unwrap() error {
	return ErrShapeMismatch
}

// ValidationError describes a malformed SafeTensors header.
type ValidationError struct {
	Type    string // e.g. "out_of_bounds", "offset_overlap"
	Tensor  string // Primary tensor name involved
	Tensor2 string // Secondary tensor name (for overlap errors)
	Details string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Tensor2 != "" {
		return fmt.Sprintf("%s: tensors %q and %q: %s", e.Type, e.Tensor, e.Tensor2, e.Details)
	}
	if e.Tensor != "" {
		return fmt.Sprintf("%s: tensor %q: %s", e.Type, e.Tensor, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}

// Unwrap returns ErrCorruptCheckpoint.
func (e *ValidationError) Unwrap() error {
	return ErrCorruptCheckpoint
}
