// Copyright 2025 The navarp-go Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package webgpu provides the accelerator backend on WebGPU compute shaders.
//
// The backend is available on windows with wgpu_native installed. On other
// platforms Open returns ErrUnavailable and the denoiser runs on the CPU.
package webgpu

import (
	internalwebgpu "github.com/navarp/navarp-go/internal/backend/webgpu"
	"github.com/navarp/navarp-go/tensor"
)

// ErrUnavailable is returned by Open when no WebGPU adapter can be used.
var ErrUnavailable = internalwebgpu.ErrUnavailable

// Open returns a ready WebGPU backend. Backends that hold GPU resources
// implement Release() and should be released after use.
func Open() (tensor.Backend, error) {
	return internalwebgpu.Open()
}

// IsAvailable reports whether a WebGPU adapter can be opened.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
