// Package shape holds tensor shapes and the row-major stride arithmetic shared by
// host arrays, device tensors and kernel argument packing.
package shape

import (
	"fmt"

	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/pkg/errors"
)

// VectorWidth is the number of lanes in the fixed-width stride/offset/extent vectors
// that slice kernels receive. Views of higher rank cannot be addressed.
const VectorWidth = 4

// Shape is the size of each dimension of a tensor, outermost first.
type Shape []int

// Validate checks that the shape has at least one dimension and that every dimension is positive.
func (s Shape) Validate() error {
	if len(s) == 0 {
		return errors.Wrap(errs.ErrInvalidShape, "shape has no dimensions")
	}
	for i, dim := range s {
		if dim <= 0 {
			return errors.Wrapf(errs.ErrInvalidShape, "dimension %d of %v is %d (must be > 0)", i, s, dim)
		}
	}
	return nil
}

// NumElements returns the product of all dimensions.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int {
	return len(s)
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// String implements fmt.Stringer.
func (s Shape) String() string {
	return fmt.Sprint([]int(s))
}

// Strides returns the row-major stride of each dimension: the number of flat buffer
// positions spanned by one step along that axis.
// strides[rank-1] is 1 and strides[i] = s[i+1] * strides[i+1].
func (s Shape) Strides() ([]int, error) {
	if len(s) == 0 {
		return nil, errors.Wrap(errs.ErrInvalidShape, "strides of an empty shape")
	}
	strides := make([]int, len(s))
	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides, nil
}

// MustStrides is Strides for shapes already validated by the caller.
func (s Shape) MustStrides() []int {
	strides, err := s.Strides()
	if err != nil {
		panic(err)
	}
	return strides
}

// FlatIndex returns sum(coords[i] * strides[i]).
// Coordinates beyond len(strides) are ignored.
func FlatIndex(coords []int, strides []int) int {
	index := 0
	for i := 0; i < len(coords) && i < len(strides); i++ {
		index += coords[i] * strides[i]
	}
	return index
}

// Vector is a fixed-width, right-aligned packing of per-dimension values:
// the last dimension lands in lane VectorWidth-1.
type Vector [VectorWidth]uint64

// PackStrides packs strides right-aligned. Unused leading lanes are padded with strides[0]
// so a kernel can treat the operand as full-width with degenerate outer axes.
func PackStrides(strides []int) (Vector, error) {
	var v Vector
	if len(strides) > VectorWidth {
		return v, errors.Wrapf(errs.ErrRankLimitExceeded, "rank %d exceeds %d", len(strides), VectorWidth)
	}
	for i := range strides {
		v[VectorWidth-1-i] = uint64(strides[len(strides)-1-i]) //nolint:gosec // G115: strides are positive
	}
	for i := len(strides); i < VectorWidth; i++ {
		v[VectorWidth-1-i] = uint64(strides[0]) //nolint:gosec // G115: strides are positive
	}
	return v, nil
}

// PackRightAligned packs values right-aligned, filling unused leading lanes with pad.
func PackRightAligned(values []int, pad uint64) (Vector, error) {
	var v Vector
	if len(values) > VectorWidth {
		return v, errors.Wrapf(errs.ErrRankLimitExceeded, "rank %d exceeds %d", len(values), VectorWidth)
	}
	for i := range v {
		v[i] = pad
	}
	for i := range values {
		v[VectorWidth-1-i] = uint64(values[len(values)-1-i]) //nolint:gosec // G115: values are non-negative
	}
	return v, nil
}
