// Copyright 2025 The navarp-go Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package tensor is the public tensor API of navarp-go.
//
// It exposes the types needed to hand spectral slice stacks to the
// denoiser and to read its output:
//   - RawTensor: host tensor with shape, dtype and device tag
//   - Tensor[T, B]: generic tensor bound to a compute backend
//   - Backend: interface implemented by the CPU and WebGPU backends
//   - Shape, DataType, Device: core type definitions
//
// Example:
//
//	stack, err := tensor.FromFloat32(data, n, h, w)
//	if err != nil {
//	    return err
//	}
//	out, err := denoise.Denoise(stack)
package tensor

import (
	"fmt"

	"github.com/navarp/navarp-go/internal/tensor"
)

// DType is a constraint for tensor element types (float32, float64).
type DType = tensor.DType

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
)

// Device identifies where a tensor was computed.
type Device = tensor.Device

// Device constants.
const (
	CPU    Device = tensor.CPU
	WebGPU Device = tensor.WebGPU
)

// Shape represents the dimensions of a tensor.
type Shape = tensor.Shape

// Tensor is a generic tensor with element type T on backend B.
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// Backend is the set of kernels a compute device provides.
type Backend = tensor.Backend

// RawTensor is the low-level tensor representation: a row-major byte
// buffer plus shape, dtype and device tag.
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
//	data := raw.AsFloat32()
type RawTensor = tensor.RawTensor

// NewRaw creates a zero-filled RawTensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// FromFloat32 copies data into a new host float32 tensor of the given shape.
func FromFloat32(data []float32, shape ...int) (*RawTensor, error) {
	return tensor.FromFloat32(data, shape...)
}

// FromFloat64 copies data into a new host float64 tensor of the given shape.
func FromFloat64(data []float64, shape ...int) (*RawTensor, error) {
	raw, err := tensor.NewRaw(Shape(shape), Float64, CPU)
	if err != nil {
		return nil, err
	}
	if raw.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, raw.NumElements(), len(data))
	}
	copy(raw.AsFloat64(), data)
	return raw, nil
}
