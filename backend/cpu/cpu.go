// Copyright 2025 The navarp-go Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package cpu provides the pure Go host backend.
//
// Convolutions are computed by direct accumulation and spread over a
// worker pool, one (batch, output channel) plane per task.
package cpu

import (
	internalcpu "github.com/navarp/navarp-go/internal/backend/cpu"
	"github.com/navarp/navarp-go/internal/parallel"
	"github.com/navarp/navarp-go/tensor"
)

// Backend is the CPU backend.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// Config controls the worker pool used by convolutions.
type Config = parallel.Config

// DefaultConfig uses one worker per CPU.
func DefaultConfig() Config {
	return parallel.DefaultConfig()
}

// New creates a CPU backend using all available cores.
func New() *Backend {
	return internalcpu.New()
}

// NewWithConfig creates a CPU backend with an explicit worker configuration.
func NewWithConfig(cfg Config) *Backend {
	return internalcpu.NewWithConfig(cfg)
}
