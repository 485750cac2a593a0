// Package webgpu implements the accelerator backend on WebGPU compute shaders.
//
// The backend is built on windows, where go-webgpu loads wgpu_native at run
// time. On other platforms Open reports ErrUnavailable and callers select the
// host CPU.
package webgpu

import "errors"

// ErrUnavailable is returned by Open when no WebGPU adapter can be used.
var ErrUnavailable = errors.New("webgpu: accelerator not available")
