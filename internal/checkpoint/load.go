// Package checkpoint loads trained network parameters from SafeTensors
// files and validates them against the network topology.
//
// The trained weights ship as extras/weights.safetensors next to the
// executable. Key names follow the PyTorch state dict of the network
// ("srcnn.0.weight", "srcnn.0.bias", ..., "srcnn.32.bias").
package checkpoint

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/navarp/navarp-go/internal/srcnn"
	"github.com/navarp/navarp-go/internal/tensor"
)

// Default checkpoint location relative to the root directory.
const (
	ExtrasDir   = "extras"
	WeightsFile = "weights.safetensors"
)

// DefaultPath returns <dir of the executable>/extras/weights.safetensors.
func DefaultPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	return PathIn(filepath.Dir(exe)), nil
}

// PathIn returns <root>/extras/weights.safetensors.
func PathIn(root string) string {
	return filepath.Join(root, ExtrasDir, WeightsFile)
}

// Load binds the checkpoint at path onto model and switches it to eval
// mode.
//
// Errors, in the order they are checked:
//   - ErrMissingCheckpoint (also matching fs.ErrNotExist) if path is absent
//   - ErrCorruptCheckpoint if the header or checksum is invalid
//   - ErrShapeMismatch (as *MismatchError) if any entry is missing or
//     differs in shape
//   - ErrUnsupportedDType for entries that are neither F32 nor F64
//
// The model is not modified unless every check passes.
func Load[B tensor.Backend](path string, model *srcnn.Model[B]) error {
	stateDict, err := ReadStateDict(path)
	if err != nil {
		return err
	}

	if err := model.LoadStateDict(stateDict); err != nil {
		return fmt.Errorf("failed to bind checkpoint: %w", err)
	}
	model.Eval()
	return nil
}

// ReadStateDict reads and validates the network state dict at path
// without binding it.
func ReadStateDict(path string) (map[string]*tensor.RawTensor, error) {
	if err := Stat(path); err != nil {
		return nil, err
	}

	r, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer func() {
		_ = r.Close() // Read-only file
	}()

	if err := r.VerifyChecksum(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := Validate(r); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	shapes := srcnn.StateShapes()
	stateDict := make(map[string]*tensor.RawTensor, len(shapes))
	for key := range shapes {
		raw, err := r.LoadTensor(key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		stateDict[key] = raw
	}
	return stateDict, nil
}

// Stat returns an error wrapping ErrMissingCheckpoint and fs.ErrNotExist
// if nothing exists at path.
func Stat(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s: %w", ErrMissingCheckpoint, path, fs.ErrNotExist)
		}
		return fmt.Errorf("failed to stat checkpoint: %w", err)
	}
	return nil
}

// Validate checks that the file holds every parameter of the network with
// the right shape and a loadable dtype. Extra entries are ignored.
func Validate(r *Reader) error {
	shapes := srcnn.StateShapes()

	// Deterministic order so the first reported mismatch is stable.
	for _, key := range sortedKeys(shapes) {
		want := shapes[key]
		info, ok := r.TensorInfo(key)
		if !ok {
			return &MismatchError{Key: key, Want: want}
		}
		if got := tensor.Shape(info.Shape); !got.Equal(want) {
			return &MismatchError{Key: key, Want: want, Got: got}
		}
		if info.DType != F32 && info.DType != F64 {
			return fmt.Errorf("%w: tensor %s has dtype %s", ErrUnsupportedDType, key, info.DType)
		}
	}
	return nil
}

// Mismatches returns every entry of the network that is missing from r or
// has the wrong shape.
func Mismatches(r *Reader) []*MismatchError {
	shapes := srcnn.StateShapes()

	var out []*MismatchError
	for _, key := range sortedKeys(shapes) {
		want := shapes[key]
		info, ok := r.TensorInfo(key)
		switch {
		case !ok:
			out = append(out, &MismatchError{Key: key, Want: want})
		case !tensor.Shape(info.Shape).Equal(want):
			out = append(out, &MismatchError{Key: key, Want: want, Got: tensor.Shape(info.Shape)})
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
