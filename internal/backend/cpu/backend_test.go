package cpu

import (
	"testing"

	"github.com/navarp/navarp-go/internal/parallel"
	"github.com/navarp/navarp-go/internal/tensor"
)

// float32SliceEqual checks float32 slices are equal within epsilon.
func float32SliceEqual(a, b []float32) bool {
	const epsilon = 1e-5
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		diff := a[i] - b[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > epsilon {
			return false
		}
	}
	return true
}

func mustRaw(t *testing.T, data []float32, shape ...int) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.FromFloat32(data, shape...)
	if err != nil {
		t.Fatalf("FromFloat32: %v", err)
	}
	return raw
}

func TestCPUBackend_New(t *testing.T) {
	backend := New()
	if backend.Name() != "CPU" {
		t.Errorf("Expected name 'CPU', got '%s'", backend.Name())
	}
	if backend.Device() != tensor.CPU {
		t.Errorf("Expected device CPU, got %v", backend.Device())
	}

	var _ tensor.Backend = backend
}

func TestCPUBackend_Add(t *testing.T) {
	backend := New()

	t.Run("SameShape", func(t *testing.T) {
		a := mustRaw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
		b := mustRaw(t, []float32{10, 11, 12, 13, 14, 15}, 2, 3)

		result := backend.Add(a, b)
		expected := []float32{11, 13, 15, 17, 19, 21}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Expected %v, got %v", expected, result.AsFloat32())
		}
		if !float32SliceEqual(a.AsFloat32(), []float32{1, 2, 3, 4, 5, 6}) {
			t.Error("Add must not modify its inputs")
		}
	})

	t.Run("ChannelBias", func(t *testing.T) {
		a := mustRaw(t, make([]float32, 2*3*1*2), 2, 3, 1, 2)
		bias := mustRaw(t, []float32{1, 2, 3}, 1, 3, 1, 1)

		result := backend.Add(a, bias)
		expected := []float32{1, 1, 2, 2, 3, 3, 1, 1, 2, 2, 3, 3}
		if !result.Shape().Equal(tensor.Shape{2, 3, 1, 2}) {
			t.Fatalf("Expected shape [2 3 1 2], got %v", result.Shape())
		}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Expected %v, got %v", expected, result.AsFloat32())
		}
	})

	t.Run("Incompatible", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("Expected panic for incompatible shapes")
			}
		}()
		backend.Add(mustRaw(t, make([]float32, 6), 2, 3), mustRaw(t, make([]float32, 4), 2, 2))
	})
}

func TestCPUBackend_Mul(t *testing.T) {
	backend := New()

	a := mustRaw(t, []float32{1, 2, 3, 4}, 2, 2)
	mask := mustRaw(t, []float32{0, 1.25, 1.25, 0}, 2, 2)

	result := backend.Mul(a, mask)
	expected := []float32{0, 2.5, 3.75, 0}
	if !float32SliceEqual(result.AsFloat32(), expected) {
		t.Errorf("Expected %v, got %v", expected, result.AsFloat32())
	}
}

func TestCPUBackend_ReLU(t *testing.T) {
	backend := New()

	x := mustRaw(t, []float32{-2, -0.5, 0, 0.5, 2}, 5)
	result := backend.ReLU(x)

	expected := []float32{0, 0, 0, 0.5, 2}
	if !float32SliceEqual(result.AsFloat32(), expected) {
		t.Errorf("Expected %v, got %v", expected, result.AsFloat32())
	}
}

func TestCPUBackend_Reshape(t *testing.T) {
	backend := New()

	x := mustRaw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	result := backend.Reshape(x, tensor.Shape{3, 1, 2})

	if !result.Shape().Equal(tensor.Shape{3, 1, 2}) {
		t.Errorf("Expected shape [3 1 2], got %v", result.Shape())
	}
	if !float32SliceEqual(result.AsFloat32(), x.AsFloat32()) {
		t.Error("Reshape must preserve row-major order")
	}

	defer func() {
		if recover() == nil {
			t.Error("Expected panic for element count mismatch")
		}
	}()
	backend.Reshape(x, tensor.Shape{4})
}

func TestCPUBackend_SequentialMatchesParallel(t *testing.T) {
	input := make([]float32, 2*3*5*4)
	for i := range input {
		input[i] = float32(i%7) - 3
	}
	kernel := make([]float32, 4*3*3*3)
	for i := range kernel {
		kernel[i] = float32(i%5)*0.1 - 0.2
	}

	seq := NewWithConfig(parallel.Sequential()).Conv2D(mustRaw(t, input, 2, 3, 5, 4), mustRaw(t, kernel, 4, 3, 3, 3), 1, 1)
	par := NewWithConfig(parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}).
		Conv2D(mustRaw(t, input, 2, 3, 5, 4), mustRaw(t, kernel, 4, 3, 3, 3), 1, 1)

	if !float32SliceEqual(seq.AsFloat32(), par.AsFloat32()) {
		t.Error("parallel conv2d differs from sequential conv2d")
	}
}
