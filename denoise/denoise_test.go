// Copyright 2025 The navarp-go Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package denoise_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navarp/navarp-go/denoise"
	"github.com/navarp/navarp-go/internal/backend/cpu"
	"github.com/navarp/navarp-go/internal/checkpoint"
	"github.com/navarp/navarp-go/internal/srcnn"
	"github.com/navarp/navarp-go/tensor"
)

func TestDenoisePerSlice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.safetensors")
	require.NoError(t, checkpoint.Save(path, srcnn.New(cpu.New(), srcnn.WithSeed(2)).StateDict(), nil))

	cfg := denoise.DefaultConfig()
	cfg.WeightsPath = path
	cfg.Strategy = denoise.PerSlice
	cfg.Selector = &denoise.Selector{OpenAccelerator: func() (tensor.Backend, error) {
		return nil, errors.New("none")
	}}

	stack, err := tensor.FromFloat32(make([]float32, 2*6*6), 2, 6, 6)
	require.NoError(t, err)

	out, err := denoise.New(cfg).Denoise(stack)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 6, 6}, out.Shape())
	assert.Equal(t, tensor.CPU, out.Device())
}

func TestDenoiseDefaultMissingWeights(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)
	if _, err := os.Stat(checkpoint.PathIn(filepath.Dir(exe))); err == nil {
		t.Skip("weights installed next to the test binary")
	}

	stack, err := tensor.FromFloat32(make([]float32, 64), 8, 8)
	require.NoError(t, err)

	_, err = denoise.Denoise(stack)
	assert.ErrorIs(t, err, denoise.ErrMissingCheckpoint)
}
