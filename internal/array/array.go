// Package array implements the host-side n-dimensional array: a flat buffer in row-major
// order plus its shape and strides. It is what tensors are uploaded from and downloaded to.
package array

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/born-ml/gpuarray/internal/dtype"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/born-ml/gpuarray/internal/shape"
	"github.com/pkg/errors"
)

// Array is a host array of element type T.
type Array[T dtype.Num] struct {
	shape   shape.Shape
	strides []int // the 'volume' of one unit step in each dimension
	data    []T
}

// New creates an array of the given shape with every element set to initial.
func New[T dtype.Num](s shape.Shape, initial T) (*Array[T], error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	data := make([]T, s.NumElements())
	for i := range data {
		data[i] = initial
	}
	return &Array[T]{shape: s.Clone(), strides: s.MustStrides(), data: data}, nil
}

// Zeros creates a zero-filled array of the given shape.
func Zeros[T dtype.Num](s shape.Shape) (*Array[T], error) {
	var zero T
	return New(s, zero)
}

// FromSlice wraps data (without copying) as an array of the given shape.
// len(data) must equal the number of elements of the shape.
func FromSlice[T dtype.Num](s shape.Shape, data []T) (*Array[T], error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.NumElements() != len(data) {
		return nil, errors.Wrapf(errs.ErrShapeMismatch, "shape %v requires %d elements, got %d",
			s, s.NumElements(), len(data))
	}
	return &Array[T]{shape: s.Clone(), strides: s.MustStrides(), data: data}, nil
}

// Shape returns the array's shape.
func (a *Array[T]) Shape() shape.Shape {
	return a.shape
}

// Strides returns the array's row-major strides.
func (a *Array[T]) Strides() []int {
	return a.strides
}

// ElementType returns the runtime tag of T.
func (a *Array[T]) ElementType() dtype.ElementType {
	return dtype.Of[T]()
}

// Len returns the number of elements.
func (a *Array[T]) Len() int {
	return len(a.data)
}

// Data returns the flat row-major buffer. It is not a copy.
func (a *Array[T]) Data() []T {
	return a.data
}

// At returns the element at the given coordinates.
func (a *Array[T]) At(coords ...int) T {
	return a.data[shape.FlatIndex(coords, a.strides)]
}

// Set stores value at the given coordinates.
func (a *Array[T]) Set(value T, coords ...int) {
	a.data[shape.FlatIndex(coords, a.strides)] = value
}

// Bytes returns the buffer reinterpreted as little-endian bytes, without copying.
func (a *Array[T]) Bytes() []byte {
	if len(a.data) == 0 {
		return nil
	}
	size := len(a.data) * dtype.Of[T]().Size()
	//nolint:gosec // unsafe.Slice for zero-copy host transfers, bounded by len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&a.data[0])), size)
}

// Equal reports whether both arrays have the same shape and elements.
func (a *Array[T]) Equal(other *Array[T]) bool {
	if !a.shape.Equal(other.shape) {
		return false
	}
	for i := range a.data {
		if a.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

// String renders rank-2 arrays as a grid, one row per line; other ranks print flat.
func (a *Array[T]) String() string {
	if len(a.shape) != 2 {
		return fmt.Sprintf("%v%v", a.shape, a.data)
	}
	var sb strings.Builder
	sb.WriteString("[\n")
	for row := 0; row < a.shape[0]; row++ {
		sb.WriteString("[")
		for col := 0; col < a.shape[1]; col++ {
			if col > 0 {
				sb.WriteString("\t")
			}
			fmt.Fprint(&sb, a.At(row, col))
		}
		sb.WriteString("]\n")
	}
	sb.WriteString("]\n")
	return sb.String()
}
