//go:build !windows

package webgpu

import (
	"fmt"
	"runtime"

	"github.com/navarp/navarp-go/internal/tensor"
)

// IsAvailable reports whether a WebGPU adapter can be opened.
func IsAvailable() bool {
	return false
}

// Open always fails on this platform.
func Open() (tensor.Backend, error) {
	return nil, fmt.Errorf("%w: not supported on %s", ErrUnavailable, runtime.GOOS)
}
