// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/gpuarray/internal/array"
	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/dtype"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/born-ml/gpuarray/internal/shape"
	"github.com/born-ml/gpuarray/internal/tensor"
)

// Type aliases for public API

// Num is the constraint of the supported element types:
// float32, float64, int32, int64 and float16.Float16.
type Num = dtype.Num

// ElementType is the runtime tag of an element type.
type ElementType = dtype.ElementType

// Element type constants.
const (
	Float32 ElementType = dtype.Float32
	Float64 ElementType = dtype.Float64
	Int32   ElementType = dtype.Int32
	Int64   ElementType = dtype.Int64
	Float16 ElementType = dtype.Float16
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = shape.Shape

// Array is a host-side row-major array, the source and destination of uploads and downloads.
type Array[T Num] = array.Array[T]

// Context owns a compute device and the kernels compiled for it.
type Context = tensor.Context

// Config of a Context.
type Config = tensor.Config

// Tensor is a device-resident n-dimensional array.
type Tensor[T Num] = tensor.Tensor[T]

// View is a rectangular window into a Tensor.
type View[T Num] = tensor.View[T]

// Range selects the indices of one axis of a view.
type Range = tensor.Range

// Axis selects how the second operand of Add and Multiply is broadcast.
type Axis = tensor.Axis

// Axis constants.
const (
	Elementwise   Axis = tensor.Elementwise
	BroadcastRows Axis = tensor.BroadcastRows
	BroadcastCols Axis = tensor.BroadcastCols
)

// AccessMode restricts how kernels may use a tensor.
type AccessMode = device.AccessMode

// Errors returned by the package. Match them with errors.Is.
var (
	ErrInvalidShape      = errs.ErrInvalidShape
	ErrRangeOutOfBounds  = errs.ErrRangeOutOfBounds
	ErrShapeMismatch     = errs.ErrShapeMismatch
	ErrUnsupportedType   = errs.ErrUnsupportedType
	ErrRankLimitExceeded = errs.ErrRankLimitExceeded
	ErrDeviceAllocation  = errs.ErrDeviceAllocation
	ErrDeviceExecution   = errs.ErrDeviceExecution
	ErrAccessMode        = errs.ErrAccessMode
	ErrPendingEvent      = errs.ErrPendingEvent
	ErrReleased          = errs.ErrReleased
	ErrInvalidAxis       = errs.ErrInvalidAxis
	ErrForeignTensor     = errs.ErrForeignTensor
)

// Contexts

// NewContext creates the device described by cfg and a context over it.
//
// Example:
//
//	ctx, err := tensor.NewContext(tensor.Config{Device: "emulated:workers=4"})
func NewContext(cfg Config) (*Context, error) {
	return tensor.NewContext(cfg)
}

// NewContextWithDevice creates a context over an existing device, taking ownership of it.
func NewContextWithDevice(dev device.Device) *Context {
	return tensor.NewContextWithDevice(dev)
}

// Creation functions

// New allocates a tensor with undefined content.
//
// Example:
//
//	x, err := tensor.New[float32](ctx, tensor.Shape{2, 3}, device.ReadWrite)
func New[T Num](ctx *Context, s Shape, mode AccessMode) (*Tensor[T], error) {
	return tensor.New[T](ctx, s, mode)
}

// Upload allocates a tensor with the shape of a and copies a into it.
func Upload[T Num](ctx *Context, a *Array[T], mode AccessMode) (*Tensor[T], error) {
	return tensor.Upload(ctx, a, mode)
}

// FromSlice allocates a tensor of shape s holding data, in row-major order.
//
// Example:
//
//	x, err := tensor.FromSlice(ctx, tensor.Shape{2, 2}, []int32{1, 2, 3, 4}, device.ReadOnly)
func FromSlice[T Num](ctx *Context, s Shape, data []T, mode AccessMode) (*Tensor[T], error) {
	a, err := array.FromSlice(s, data)
	if err != nil {
		return nil, err
	}
	return tensor.Upload(ctx, a, mode)
}

// Full allocates a tensor of shape s with every element set to value.
func Full[T Num](ctx *Context, s Shape, value T, mode AccessMode) (*Tensor[T], error) {
	a, err := array.New(s, value)
	if err != nil {
		return nil, err
	}
	return tensor.Upload(ctx, a, mode)
}

// Zeros allocates a tensor of shape s filled with zeros.
func Zeros[T Num](ctx *Context, s Shape, mode AccessMode) (*Tensor[T], error) {
	var zero T
	return Full(ctx, s, zero, mode)
}

// Ranges

// Span selects [start, end).
func Span(start, end int) Range { return tensor.Span(start, end) }

// From selects from start to the end of the axis.
func From(start int) Range { return tensor.From(start) }

// To selects [0, end).
func To(end int) Range { return tensor.To(end) }

// All selects the whole axis.
func All() Range { return tensor.All() }

// Index selects the single index i, keeping the axis with length 1.
func Index(i int) Range { return tensor.Index(i) }

// ParseRanges parses ranges written as "1:3, 2, :".
func ParseRanges(text string) ([]Range, error) { return tensor.ParseRanges(text) }
