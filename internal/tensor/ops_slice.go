package tensor

import (
	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/dtype"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/born-ml/gpuarray/internal/kernels"
	"github.com/born-ml/gpuarray/internal/shape"
	"github.com/pkg/errors"
)

// Slice operations address their operands through views. Views of different ranks are
// compatible when their extents agree once right-aligned, with missing leading axes taken
// as 1: a [1, 2, 1] view combines with a [2, 1] one.

// sliceArgs packs the buffers, strides and offsets of views, followed by their common extent.
type sliceArgs struct {
	op     kernels.Op
	args   device.Args
	extent shape.Vector
	first  bool
}

func (s *sliceArgs) add(o operand) error {
	strides, offsets, err := o.packed()
	if err != nil {
		return errors.WithMessagef(err, "%s", kernels.Name(s.op, true, o.buf.ElementType()))
	}
	extent, err := shape.PackRightAligned(o.extent, 1)
	if err != nil {
		return errors.WithMessagef(err, "%s", kernels.Name(s.op, true, o.buf.ElementType()))
	}
	if !s.first {
		s.extent, s.first = extent, true
	} else if extent != s.extent {
		return errors.Wrapf(errs.ErrShapeMismatch, "%s: view extents %v and %v differ",
			kernels.Name(s.op, true, o.buf.ElementType()), s.extent, extent)
	}
	s.args = append(s.args, o.buf, strides, offsets)
	return nil
}

func packViews(op kernels.Op, views ...operand) (*sliceArgs, error) {
	s := &sliceArgs{op: op, args: make(device.Args, 0, 3*len(views)+2)}
	for _, v := range views {
		if err := s.add(v); err != nil {
			return nil, err
		}
	}
	s.args = append(s.args, s.extent)
	return s, nil
}

func dispatchSlice(op kernels.Op, et dtype.ElementType, inputs []operand, output operand, scalar any) error {
	s, err := packViews(op, append(inputs[:len(inputs):len(inputs)], output)...)
	if err != nil {
		return err
	}
	if scalar != nil {
		s.args = append(s.args, scalar)
	}
	return dispatch(launch{
		op:     op,
		slice:  true,
		et:     et,
		inputs: inputs,
		output: output,
		args:   s.args,
		global: sliceGeometry(s.extent),
	})
}

// CopyToSlice copies the elements of src into the elements of dst.
func CopyToSlice[T dtype.Num](src, dst *View[T]) error {
	return dispatchSlice(kernels.CopyTo, dtype.Of[T](), []operand{src.operand()}, dst.operand(), nil)
}

// FillSlice sets every element of dst to value.
func FillSlice[T dtype.Num](dst *View[T], value T) error {
	return dispatchSlice(kernels.Fill, dtype.Of[T](), nil, dst.operand(), value)
}

// AddSlice computes out = a + b over views.
func AddSlice[T dtype.Num](a, b, out *View[T]) error {
	return dispatchSlice(kernels.Add, dtype.Of[T](), []operand{a.operand(), b.operand()}, out.operand(), nil)
}

// SubSlice computes out = a - b over views.
func SubSlice[T dtype.Num](a, b, out *View[T]) error {
	return dispatchSlice(kernels.Sub, dtype.Of[T](), []operand{a.operand(), b.operand()}, out.operand(), nil)
}

// MultiplySlice computes out = a * b elementwise over views.
func MultiplySlice[T dtype.Num](a, b, out *View[T]) error {
	return dispatchSlice(kernels.Multiply, dtype.Of[T](), []operand{a.operand(), b.operand()}, out.operand(), nil)
}

// MaxSlice computes out = max(a, threshold) over views.
func MaxSlice[T dtype.Num](a *View[T], threshold T, out *View[T]) error {
	return dispatchSlice(kernels.Max, dtype.Of[T](), []operand{a.operand()}, out.operand(), threshold)
}

// MinSlice computes out = min(a, threshold) over views.
func MinSlice[T dtype.Num](a *View[T], threshold T, out *View[T]) error {
	return dispatchSlice(kernels.Min, dtype.Of[T](), []operand{a.operand()}, out.operand(), threshold)
}

// DMaxSlice is the view form of DMax.
func DMaxSlice[T dtype.Num](a *View[T], threshold T, out *View[T]) error {
	return dispatchSlice(kernels.DMax, dtype.Of[T](), []operand{a.operand()}, out.operand(), threshold)
}

// DMinSlice is the view form of DMin.
func DMinSlice[T dtype.Num](a *View[T], threshold T, out *View[T]) error {
	return dispatchSlice(kernels.DMin, dtype.Of[T](), []operand{a.operand()}, out.operand(), threshold)
}

func unarySlice[T dtype.Num](op kernels.Op, a, out *View[T]) error {
	return dispatchSlice(op, dtype.Of[T](), []operand{a.operand()}, out.operand(), nil)
}

// TanhSlice computes out = tanh(a) over views.
func TanhSlice[T dtype.Num](a, out *View[T]) error { return unarySlice(kernels.Tanh, a, out) }

// DTanhSlice computes out = 1 - tanh²(a) over views.
func DTanhSlice[T dtype.Num](a, out *View[T]) error { return unarySlice(kernels.DTanh, a, out) }

// SigmoidSlice computes out = σ(a) over views.
func SigmoidSlice[T dtype.Num](a, out *View[T]) error { return unarySlice(kernels.Sigmoid, a, out) }

// DSigmoidSlice computes out = σ(a) (1 - σ(a)) over views.
func DSigmoidSlice[T dtype.Num](a, out *View[T]) error { return unarySlice(kernels.DSigmoid, a, out) }

// LogSlice computes out = ln(a) over views.
func LogSlice[T dtype.Num](a, out *View[T]) error { return unarySlice(kernels.Log, a, out) }

// ExpSlice computes out = e^a over views.
func ExpSlice[T dtype.Num](a, out *View[T]) error { return unarySlice(kernels.Exp, a, out) }
