// Copyright 2025 The navarp-go Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package denoise removes noise from ARPES detector slices with a
// pretrained convolutional network.
//
// Basic usage:
//
//	stack, _ := tensor.FromFloat32(data, h, w)
//	out, err := denoise.Denoise(stack)
//
// Denoise uses DefaultConfig: the weights next to the executable
// (extras/weights.safetensors), the best available device and the literal
// batching strategy. For per-slice output on [N, H, W] stacks:
//
//	cfg := denoise.DefaultConfig()
//	cfg.Strategy = denoise.PerSlice
//	out, err := denoise.New(cfg).Denoise(stack)
package denoise

import (
	"github.com/navarp/navarp-go/internal/denoise"
	"github.com/navarp/navarp-go/internal/device"
	"github.com/navarp/navarp-go/tensor"
)

// Processor denoises slice stacks.
type Processor = denoise.Processor

// Config configures a Processor.
type Config = denoise.Config

// Selector chooses the compute device. Set OpenAccelerator to nil to
// force the host CPU.
type Selector = device.Selector

// Strategy selects how a stack is pushed through the network.
type Strategy = denoise.Strategy

// Strategies.
const (
	Literal  Strategy = denoise.Literal
	PerSlice Strategy = denoise.PerSlice
)

// Errors.
var (
	ErrInvalidStack      = denoise.ErrInvalidStack
	ErrMalformedBatch    = denoise.ErrMalformedBatch
	ErrBackend           = denoise.ErrBackend
	ErrMissingCheckpoint = denoise.ErrMissingCheckpoint
	ErrShapeMismatch     = denoise.ErrShapeMismatch
	ErrCorruptCheckpoint = denoise.ErrCorruptCheckpoint
)

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return denoise.DefaultConfig()
}

// New creates a Processor.
func New(cfg Config) *Processor {
	return denoise.New(cfg)
}

// Denoise runs a default Processor over stack.
func Denoise(stack *tensor.RawTensor) (*tensor.RawTensor, error) {
	return denoise.New(denoise.DefaultConfig()).Denoise(stack)
}

// ResetShared releases the model kept by processors with Config.Reuse.
func ResetShared() {
	denoise.ResetShared()
}
