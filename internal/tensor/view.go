package tensor

import (
	"fmt"
	"strings"

	"github.com/born-ml/gpuarray/internal/dtype"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/born-ml/gpuarray/internal/shape"
	"github.com/pkg/errors"
)

// View is a window into a Tensor restricted to one Range per leading axis; trailing axes are
// taken whole. It doesn't own memory: it addresses the tensor's buffer through the tensor's
// strides plus its own offsets, and shares the tensor's pending-event slot.
//
// A View must not be used after its tensor is released.
type View[T dtype.Num] struct {
	tensor  *Tensor[T]
	ranges  []Range
	offsets []int
	extent  shape.Shape
}

// Slice returns a view of the tensor. Each range must fit its axis: out of bounds ranges fail
// with errs.ErrRangeOutOfBounds, they are never clamped.
func (t *Tensor[T]) Slice(ranges ...Range) (*View[T], error) {
	if len(ranges) > t.Rank() {
		return nil, errors.Wrapf(errs.ErrRangeOutOfBounds, "%d ranges for tensor of shape %s", len(ranges), t.shape)
	}
	v := &View[T]{
		tensor:  t,
		ranges:  append([]Range(nil), ranges...),
		offsets: make([]int, t.Rank()),
		extent:  t.shape.Clone(),
	}
	for dim, r := range ranges {
		length, err := r.Len(t.shape[dim])
		if err != nil {
			return nil, errors.WithMessagef(err, "axis %d of tensor %s", dim, t.shape)
		}
		if r.Start()+length > t.shape[dim] {
			return nil, errors.Wrapf(errs.ErrRangeOutOfBounds, "range %s on axis %d of tensor %s", r, dim, t.shape)
		}
		v.offsets[dim] = r.Start()
		v.extent[dim] = length
	}
	return v, nil
}

// Tensor returns the viewed tensor.
func (v *View[T]) Tensor() *Tensor[T] { return v.tensor }

// Offset returns the first index of the view along dim.
func (v *View[T]) Offset(dim int) int { return v.offsets[dim] }

// Extent returns the length of the view along dim.
func (v *View[T]) Extent(dim int) int { return v.extent[dim] }

// Shape returns the lengths of the view along every axis. The caller must not modify it.
func (v *View[T]) Shape() shape.Shape { return v.extent }

// Rank returns the rank of the viewed tensor.
func (v *View[T]) Rank() int { return len(v.extent) }

// Wait blocks until the pending operation of the viewed tensor completed.
func (v *View[T]) Wait() error { return v.tensor.Wait() }

// String implements fmt.Stringer.
func (v *View[T]) String() string {
	parts := make([]string, len(v.ranges))
	for i, r := range v.ranges {
		parts[i] = r.String()
	}
	return fmt.Sprintf("%s[%s]", v.tensor, strings.Join(parts, ", "))
}
