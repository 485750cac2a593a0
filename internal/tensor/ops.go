package tensor

import "fmt"

// Add performs element-wise addition with broadcasting.
//
// Example:
//
//	out := conv.Add(bias.Reshape(1, c, 1, 1)) // per-channel bias
func (t *Tensor[T, B]) Add(other *Tensor[T, B]) *Tensor[T, B] {
	result := t.backend.Add(t.raw, other.raw)
	return New[T, B](result, t.backend)
}

// Mul performs element-wise multiplication with broadcasting.
func (t *Tensor[T, B]) Mul(other *Tensor[T, B]) *Tensor[T, B] {
	result := t.backend.Mul(t.raw, other.raw)
	return New[T, B](result, t.backend)
}

// Reshape returns a tensor with the same data but different shape.
// The new shape must have the same number of elements.
func (t *Tensor[T, B]) Reshape(newShape ...int) *Tensor[T, B] {
	result := t.backend.Reshape(t.raw, Shape(newShape))
	return New[T, B](result, t.backend)
}

// Unsqueeze inserts a dimension of size 1 at dim.
//
// Example:
//
//	x := tensor.Zeros[float32](Shape{5, 7}, backend)
//	y := x.Unsqueeze(1) // [5, 1, 7]
func (t *Tensor[T, B]) Unsqueeze(dim int) *Tensor[T, B] {
	return t.Reshape(t.Shape().Insert(dim, 1)...)
}

// Squeeze removes dim, which must have size 1.
func (t *Tensor[T, B]) Squeeze(dim int) *Tensor[T, B] {
	shape := t.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("squeeze: dim %d out of range for %dD tensor", dim, len(shape)))
	}
	if shape[dim] != 1 {
		panic(fmt.Sprintf("squeeze: dim %d has size %d, expected 1", dim, shape[dim]))
	}
	return t.Reshape(shape.Remove(dim)...)
}

// Index returns a copy of the i-th sub-tensor along the first axis.
//
// Example:
//
//	stack := tensor.Zeros[float32](Shape{3, 8, 8}, backend)
//	slice := stack.Index(1) // [8, 8]
func (t *Tensor[T, B]) Index(i int) *Tensor[T, B] {
	shape := t.Shape()
	if len(shape) == 0 {
		panic("index: cannot index a scalar tensor")
	}
	if i < 0 || i >= shape[0] {
		panic(fmt.Sprintf("index: %d out of bounds for dimension 0 (size %d)", i, shape[0]))
	}

	sub := shape[1:]
	if len(sub) == 0 {
		sub = Shape{1}
	}
	raw, err := NewRaw(sub, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("index: %v", err))
	}

	n := sub.NumElements() * t.DType().Size()
	copy(raw.Data(), t.raw.Data()[i*n:(i+1)*n])
	return New[T, B](raw, t.backend)
}

// Stack joins equally shaped tensors along a new leading axis.
func Stack[T DType, B Backend](tensors []*Tensor[T, B]) *Tensor[T, B] {
	if len(tensors) == 0 {
		panic("stack: no tensors")
	}

	first := tensors[0]
	for i, t := range tensors[1:] {
		if !t.Shape().Equal(first.Shape()) {
			panic(fmt.Sprintf("stack: tensor %d has shape %v, expected %v", i+1, t.Shape(), first.Shape()))
		}
	}

	raw, err := NewRaw(first.Shape().Insert(0, len(tensors)), first.DType(), first.Device())
	if err != nil {
		panic(fmt.Sprintf("stack: %v", err))
	}

	n := first.raw.ByteSize()
	for i, t := range tensors {
		copy(raw.Data()[i*n:], t.raw.Data())
	}
	return New[T, B](raw, first.backend)
}
