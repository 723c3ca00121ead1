// Package kernels holds the table of kernels a device may provide and the per-context
// Registry that resolves (operation, element type) pairs to compiled kernels.
//
// Kernel names follow "<category>_<operation>[_slice]_<element-type-tag>", e.g. "array_add_f32"
// or "array_add_slice_f32". The argument layout of each operation is fixed and shared by every
// device implementation; it is documented on the Op constants below. Buffers are listed as
// device.Buffer, sizes as int, strided addressing as shape.Vector and scalars with the kernel's
// element type.
//
// Slice kernels address each view with a (strides, offsets) pair of right-aligned 4-wide vectors
// and share one extent vector. Work-item w decomposes over the extent into coordinates c0..c3,
// and the element it touches in a view is Σ (offsets[k] + c[k]) * strides[k].
package kernels

import (
	"fmt"

	"github.com/born-ml/gpuarray/internal/dtype"
)

// Category is the kernel-name prefix of every array kernel.
const Category = "array"

// Op is the name of an operation.
type Op string

const (
	// CopyTo args: src, dst. Slice: src, srcStrides, srcOffsets, dst, dstStrides, dstOffsets, extent.
	CopyTo Op = "copy_to"
	// Fill args: dst, value. Slice: dst, dstStrides, dstOffsets, extent, value.
	Fill Op = "fill"
	// Sum args: src, dst, rows, cols, axis. One work-item per retained element.
	Sum Op = "sum"
	// Add args: a, b, out, cols, axis. Slice: a, aStrides, aOffsets, b, ..., out, ..., extent.
	Add Op = "add"
	// Sub args: a, b, out. Slice as Add.
	Sub Op = "sub"
	// Multiply args: a, b, out, cols, axis. Slice as Add.
	Multiply Op = "multiply"
	// Transpose args: src, dst, rows, cols. Geometry (rows, cols).
	Transpose Op = "transpose"
	// Matmul args: a, b, out, inner, cols. Geometry (rows, cols).
	Matmul Op = "matmul"

	// Max and the other threshold ops take: src, dst, threshold.
	// Slice: src, srcStrides, srcOffsets, dst, dstStrides, dstOffsets, extent, threshold.
	Max  Op = "max"
	Min  Op = "min"
	DMax Op = "dmax"
	DMin Op = "dmin"

	// MSE args: a, target, out, rows, cols. Geometry (cols).
	MSE Op = "mse"
	// DMSE args: a, target, out, rows, cols. Geometry (rows, cols).
	DMSE Op = "dmse"

	// Tanh and the other unary ops take: src, dst.
	// Slice: src, srcStrides, srcOffsets, dst, dstStrides, dstOffsets, extent.
	Tanh     Op = "tanh"
	DTanh    Op = "dtanh"
	Sigmoid  Op = "sigmoid"
	DSigmoid Op = "dsigmoid"
	Log      Op = "log"
	Exp      Op = "exp"
)

// Entry is one row of the kernel table: an operation, whether it is the slice-addressed
// variant, the element types it is defined for and the argument index of its output buffer.
type Entry struct {
	Op     Op
	Slice  bool
	Types  []dtype.ElementType
	Output int
}

// Name returns the kernel name for the entry and element type.
func (e Entry) Name(et dtype.ElementType) string { return Name(e.Op, e.Slice, et) }

// Name returns the kernel name for an operation and element type.
func Name(op Op, slice bool, et dtype.ElementType) string {
	if slice {
		return fmt.Sprintf("%s_%s_slice_%s", Category, op, et.Tag())
	}
	return fmt.Sprintf("%s_%s_%s", Category, op, et.Tag())
}

var (
	allTypes   = dtype.All
	floatTypes = []dtype.ElementType{dtype.Float32, dtype.Float64, dtype.Float16}
)

// Table lists every kernel a device may provide.
var Table = []Entry{
	{Op: CopyTo, Types: allTypes, Output: 1},
	{Op: Fill, Types: allTypes, Output: 0},
	{Op: Sum, Types: allTypes, Output: 1},
	{Op: Add, Types: allTypes, Output: 2},
	{Op: Sub, Types: allTypes, Output: 2},
	{Op: Multiply, Types: allTypes, Output: 2},
	{Op: Transpose, Types: allTypes, Output: 1},
	{Op: Matmul, Types: allTypes, Output: 2},

	{Op: Max, Types: floatTypes, Output: 1},
	{Op: Min, Types: floatTypes, Output: 1},
	{Op: DMax, Types: floatTypes, Output: 1},
	{Op: DMin, Types: floatTypes, Output: 1},
	{Op: MSE, Types: floatTypes, Output: 2},
	{Op: DMSE, Types: floatTypes, Output: 2},
	{Op: Tanh, Types: floatTypes, Output: 1},
	{Op: DTanh, Types: floatTypes, Output: 1},
	{Op: Sigmoid, Types: floatTypes, Output: 1},
	{Op: DSigmoid, Types: floatTypes, Output: 1},
	{Op: Log, Types: floatTypes, Output: 1},
	{Op: Exp, Types: floatTypes, Output: 1},

	{Op: CopyTo, Slice: true, Types: allTypes, Output: 3},
	{Op: Fill, Slice: true, Types: allTypes, Output: 0},
	{Op: Add, Slice: true, Types: allTypes, Output: 6},
	{Op: Sub, Slice: true, Types: allTypes, Output: 6},
	{Op: Multiply, Slice: true, Types: allTypes, Output: 6},

	{Op: Max, Slice: true, Types: floatTypes, Output: 3},
	{Op: Min, Slice: true, Types: floatTypes, Output: 3},
	{Op: DMax, Slice: true, Types: floatTypes, Output: 3},
	{Op: DMin, Slice: true, Types: floatTypes, Output: 3},
	{Op: Tanh, Slice: true, Types: floatTypes, Output: 3},
	{Op: DTanh, Slice: true, Types: floatTypes, Output: 3},
	{Op: Sigmoid, Slice: true, Types: floatTypes, Output: 3},
	{Op: DSigmoid, Slice: true, Types: floatTypes, Output: 3},
	{Op: Log, Slice: true, Types: floatTypes, Output: 3},
	{Op: Exp, Slice: true, Types: floatTypes, Output: 3},
}

// Find returns the table entry of an operation.
func Find(op Op, slice bool) (Entry, bool) {
	for _, e := range Table {
		if e.Op == op && e.Slice == slice {
			return e, true
		}
	}
	return Entry{}, false
}
