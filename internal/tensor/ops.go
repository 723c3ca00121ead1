package tensor

import (
	"fmt"

	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/dtype"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/born-ml/gpuarray/internal/kernels"
	"github.com/born-ml/gpuarray/internal/shape"
	"github.com/pkg/errors"
)

// Axis selects how the second operand of Add and Multiply is combined with the first.
type Axis int

const (
	// Elementwise combines operands of identical shapes.
	Elementwise Axis = -1
	// BroadcastRows combines a [R, C] operand with a [1, C] one, repeated for every row.
	BroadcastRows Axis = 0
	// BroadcastCols combines a [R, C] operand with a [R, 1] one, repeated for every column.
	BroadcastCols Axis = 1
)

// String implements fmt.Stringer.
func (a Axis) String() string {
	switch a {
	case Elementwise:
		return "Elementwise"
	case BroadcastRows:
		return "BroadcastRows"
	case BroadcastCols:
		return "BroadcastCols"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

func checkShape(op kernels.Op, role string, want, got shape.Shape) error {
	if !want.Equal(got) {
		return errors.Wrapf(errs.ErrShapeMismatch, "%s: %s has shape %s, expected %s", op, role, got, want)
	}
	return nil
}

func checkRank2(op kernels.Op, role string, s shape.Shape) error {
	if s.Rank() != 2 {
		return errors.Wrapf(errs.ErrShapeMismatch, "%s: %s has shape %s, expected a rank-2 shape", op, role, s)
	}
	return nil
}

// CopyTo copies src into dst, which must hold as many elements as src.
func CopyTo[T dtype.Num](src, dst *Tensor[T]) error {
	if src.Len() != dst.Len() {
		return errors.Wrapf(errs.ErrShapeMismatch, "%s: copying %s into %s", kernels.CopyTo, src.shape, dst.shape)
	}
	return dispatch(launch{
		op:     kernels.CopyTo,
		et:     dtype.Of[T](),
		inputs: []operand{src.operand()},
		output: dst.operand(),
		args:   device.Args{src.buf, dst.buf},
		global: geometryOf(src.shape),
	})
}

// Fill sets every element of dst to value.
func Fill[T dtype.Num](dst *Tensor[T], value T) error {
	return dispatch(launch{
		op:     kernels.Fill,
		et:     dtype.Of[T](),
		output: dst.operand(),
		args:   device.Args{dst.buf, value},
		global: geometryOf(dst.shape),
	})
}

// Sum reduces the rank-2 tensor a along axis (0 or 1) into out, of shape [1, C] or [R, 1].
func Sum[T dtype.Num](a *Tensor[T], axis int, out *Tensor[T]) error {
	if err := checkRank2(kernels.Sum, "input", a.shape); err != nil {
		return err
	}
	rows, cols := a.shape[0], a.shape[1]
	var want shape.Shape
	var keep int
	switch axis {
	case 0:
		want, keep = shape.Shape{1, cols}, cols
	case 1:
		want, keep = shape.Shape{rows, 1}, rows
	default:
		return errors.Wrapf(errs.ErrInvalidAxis, "%s: axis %d of a rank-2 tensor", kernels.Sum, axis)
	}
	if err := checkShape(kernels.Sum, "output", want, out.shape); err != nil {
		return err
	}
	return dispatch(launch{
		op:     kernels.Sum,
		et:     dtype.Of[T](),
		inputs: []operand{a.operand()},
		output: out.operand(),
		args:   device.Args{a.buf, out.buf, rows, cols, axis},
		global: device.Geometry{keep, 1, 1},
	})
}

// broadcastBinary validates and dispatches Add and Multiply.
func broadcastBinary[T dtype.Num](op kernels.Op, a *Tensor[T], axis Axis, b, out *Tensor[T]) error {
	cols := a.shape[a.Rank()-1]
	switch axis {
	case Elementwise:
		if err := checkShape(op, "second operand", a.shape, b.shape); err != nil {
			return err
		}
	case BroadcastRows, BroadcastCols:
		if err := checkRank2(op, "first operand", a.shape); err != nil {
			return err
		}
		want := shape.Shape{1, cols}
		if axis == BroadcastCols {
			want = shape.Shape{a.shape[0], 1}
		}
		if err := checkShape(op, "second operand", want, b.shape); err != nil {
			return err
		}
	default:
		return errors.Wrapf(errs.ErrInvalidAxis, "%s: %s", op, axis)
	}
	if err := checkShape(op, "output", a.shape, out.shape); err != nil {
		return err
	}
	return dispatch(launch{
		op:     op,
		et:     dtype.Of[T](),
		inputs: []operand{a.operand(), b.operand()},
		output: out.operand(),
		args:   device.Args{a.buf, b.buf, out.buf, cols, int(axis)},
		global: geometryOf(a.shape),
	})
}

// Add computes out = a + b, broadcasting b according to axis.
// a and out may be the same tensor.
func Add[T dtype.Num](a *Tensor[T], axis Axis, b, out *Tensor[T]) error {
	return broadcastBinary(kernels.Add, a, axis, b, out)
}

// Multiply computes out = a * b elementwise, broadcasting b according to axis.
func Multiply[T dtype.Num](a *Tensor[T], axis Axis, b, out *Tensor[T]) error {
	return broadcastBinary(kernels.Multiply, a, axis, b, out)
}

// Sub computes out = a - b for tensors of identical shapes.
func Sub[T dtype.Num](a, b, out *Tensor[T]) error {
	if err := checkShape(kernels.Sub, "second operand", a.shape, b.shape); err != nil {
		return err
	}
	if err := checkShape(kernels.Sub, "output", a.shape, out.shape); err != nil {
		return err
	}
	return dispatch(launch{
		op:     kernels.Sub,
		et:     dtype.Of[T](),
		inputs: []operand{a.operand(), b.operand()},
		output: out.operand(),
		args:   device.Args{a.buf, b.buf, out.buf},
		global: geometryOf(a.shape),
	})
}

// Transpose writes the transpose of the rank-2 tensor a into out.
func Transpose[T dtype.Num](a, out *Tensor[T]) error {
	if err := checkRank2(kernels.Transpose, "input", a.shape); err != nil {
		return err
	}
	rows, cols := a.shape[0], a.shape[1]
	if err := checkShape(kernels.Transpose, "output", shape.Shape{cols, rows}, out.shape); err != nil {
		return err
	}
	return dispatch(launch{
		op:     kernels.Transpose,
		et:     dtype.Of[T](),
		inputs: []operand{a.operand()},
		output: out.operand(),
		args:   device.Args{a.buf, out.buf, rows, cols},
		global: device.Geometry{rows, cols, 1},
	})
}

// Matmul computes the matrix product out = a × b.
func Matmul[T dtype.Num](a, b, out *Tensor[T]) error {
	if err := checkRank2(kernels.Matmul, "first operand", a.shape); err != nil {
		return err
	}
	if err := checkRank2(kernels.Matmul, "second operand", b.shape); err != nil {
		return err
	}
	if a.shape[1] != b.shape[0] {
		return errors.Wrapf(errs.ErrShapeMismatch, "%s: inner dimensions of %s and %s differ", kernels.Matmul, a.shape, b.shape)
	}
	rows, inner, cols := a.shape[0], a.shape[1], b.shape[1]
	if err := checkShape(kernels.Matmul, "output", shape.Shape{rows, cols}, out.shape); err != nil {
		return err
	}
	return dispatch(launch{
		op:     kernels.Matmul,
		et:     dtype.Of[T](),
		inputs: []operand{a.operand(), b.operand()},
		output: out.operand(),
		args:   device.Args{a.buf, b.buf, out.buf, inner, cols},
		global: device.Geometry{rows, cols, 1},
	})
}

func thresholdOp[T dtype.Num](op kernels.Op, a *Tensor[T], threshold T, out *Tensor[T]) error {
	if err := checkShape(op, "output", a.shape, out.shape); err != nil {
		return err
	}
	return dispatch(launch{
		op:     op,
		et:     dtype.Of[T](),
		inputs: []operand{a.operand()},
		output: out.operand(),
		args:   device.Args{a.buf, out.buf, threshold},
		global: geometryOf(a.shape),
	})
}

// Max computes out = max(a, threshold) elementwise.
func Max[T dtype.Num](a *Tensor[T], threshold T, out *Tensor[T]) error {
	return thresholdOp(kernels.Max, a, threshold, out)
}

// Min computes out = min(a, threshold) elementwise.
func Min[T dtype.Num](a *Tensor[T], threshold T, out *Tensor[T]) error {
	return thresholdOp(kernels.Min, a, threshold, out)
}

// DMax is the derivative of Max: 1 where a > threshold, 0 elsewhere.
func DMax[T dtype.Num](a *Tensor[T], threshold T, out *Tensor[T]) error {
	return thresholdOp(kernels.DMax, a, threshold, out)
}

// DMin is the derivative of Min: 1 where a < threshold, 0 elsewhere.
func DMin[T dtype.Num](a *Tensor[T], threshold T, out *Tensor[T]) error {
	return thresholdOp(kernels.DMin, a, threshold, out)
}

func errorOp[T dtype.Num](op kernels.Op, a, target, out *Tensor[T], want shape.Shape, global func(rows, cols int) device.Geometry) error {
	if err := checkRank2(op, "input", a.shape); err != nil {
		return err
	}
	if err := checkShape(op, "target", a.shape, target.shape); err != nil {
		return err
	}
	if err := checkShape(op, "output", want, out.shape); err != nil {
		return err
	}
	rows, cols := a.shape[0], a.shape[1]
	return dispatch(launch{
		op:     op,
		et:     dtype.Of[T](),
		inputs: []operand{a.operand(), target.operand()},
		output: out.operand(),
		args:   device.Args{a.buf, target.buf, out.buf, rows, cols},
		global: global(rows, cols),
	})
}

// MSE computes the mean squared error of every column of a against target, into out of shape [1, C]:
// out[j] = Σ_i (a[i, j] - target[i, j])² / R.
func MSE[T dtype.Num](a, target, out *Tensor[T]) error {
	if err := checkRank2(kernels.MSE, "input", a.shape); err != nil {
		return err
	}
	return errorOp(kernels.MSE, a, target, out, shape.Shape{1, a.shape[1]},
		func(_, cols int) device.Geometry { return device.Geometry{cols, 1, 1} })
}

// DMSE is the derivative of MSE with respect to a: out = 2 (a - target) / R.
func DMSE[T dtype.Num](a, target, out *Tensor[T]) error {
	return errorOp(kernels.DMSE, a, target, out, a.shape,
		func(rows, cols int) device.Geometry { return device.Geometry{rows, cols, 1} })
}

func unaryOp[T dtype.Num](op kernels.Op, a, out *Tensor[T]) error {
	if err := checkShape(op, "output", a.shape, out.shape); err != nil {
		return err
	}
	return dispatch(launch{
		op:     op,
		et:     dtype.Of[T](),
		inputs: []operand{a.operand()},
		output: out.operand(),
		args:   device.Args{a.buf, out.buf},
		global: geometryOf(a.shape),
	})
}

// Tanh computes out = tanh(a).
func Tanh[T dtype.Num](a, out *Tensor[T]) error { return unaryOp(kernels.Tanh, a, out) }

// DTanh computes the derivative of tanh: out = 1 - tanh²(a).
func DTanh[T dtype.Num](a, out *Tensor[T]) error { return unaryOp(kernels.DTanh, a, out) }

// Sigmoid computes out = 1 / (1 + e^-a).
func Sigmoid[T dtype.Num](a, out *Tensor[T]) error { return unaryOp(kernels.Sigmoid, a, out) }

// DSigmoid computes the derivative of the sigmoid: out = σ(a) (1 - σ(a)).
func DSigmoid[T dtype.Num](a, out *Tensor[T]) error { return unaryOp(kernels.DSigmoid, a, out) }

// Log computes the natural logarithm out = ln(a).
func Log[T dtype.Num](a, out *Tensor[T]) error { return unaryOp(kernels.Log, a, out) }

// Exp computes out = e^a.
func Exp[T dtype.Num](a, out *Tensor[T]) error { return unaryOp(kernels.Exp, a, out) }
