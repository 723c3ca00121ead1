package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/born-ml/gpuarray/device"
	"github.com/born-ml/gpuarray/internal/array"
	"github.com/born-ml/gpuarray/internal/dtype"
	"github.com/born-ml/gpuarray/tensor"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"k8s.io/klog/v2"
)

type runFlags struct {
	in, out   string
	op        string
	a, b      string
	axis      int
	value     float64
	timeout   time.Duration
	showStats bool
}

func run(args []string) error {
	var f runFlags
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.StringVar(&f.in, "in", "", "safetensors file with the input tensors")
	fs.StringVar(&f.out, "out", "", "safetensors file to write the result to, as tensor \"result\". Prints it if empty")
	fs.StringVar(&f.op, "op", "", "operation: add, sub, multiply, matmul, transpose, sum, fill, copy_to, max, min, dmax, dmin, mse, dmse, tanh, dtanh, sigmoid, dsigmoid, log, exp")
	fs.StringVar(&f.a, "a", "a", "name of the first operand")
	fs.StringVar(&f.b, "b", "b", "name of the second operand, for binary operations")
	fs.IntVar(&f.axis, "axis", -1, "broadcast axis of add and multiply (-1, 0 or 1), reduction axis of sum")
	fs.Float64Var(&f.value, "value", 0, "scalar of fill and the threshold operations")
	fs.DurationVar(&f.timeout, "timeout", time.Minute, "maximum time to wait for the result")
	fs.BoolVar(&f.showStats, "stats", false, "print device memory statistics")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if f.in == "" || f.op == "" {
		fs.Usage()
		return errors.New("run: -in and -op are required")
	}

	data, err := os.ReadFile(f.in)
	if err != nil {
		return errors.Wrapf(err, "reading %s", f.in)
	}
	et, err := array.ElementTypeOf(data, f.a)
	if err != nil {
		return err
	}
	klog.V(1).Infof("run %s on %s tensor %q of %s (%s)", f.op, et, f.a, f.in, humanize.IBytes(uint64(len(data))))

	ctx, err := newContext()
	if err != nil {
		return err
	}
	defer func() { _ = ctx.Release() }()

	switch et {
	case dtype.Float32:
		err = runTyped[float32](ctx, data, f)
	case dtype.Float64:
		err = runTyped[float64](ctx, data, f)
	case dtype.Int32:
		err = runTyped[int32](ctx, data, f)
	case dtype.Int64:
		err = runTyped[int64](ctx, data, f)
	case dtype.Float16:
		err = runTyped[float16.Float16](ctx, data, f)
	default:
		err = errors.Wrapf(tensor.ErrUnsupportedType, "tensor %q has type %s", f.a, et)
	}
	if err != nil {
		return err
	}
	if f.showStats {
		fmt.Println(ctx.MemoryStats())
	}
	return nil
}

func scalar[T dtype.Num](v float64) T {
	var zero T
	switch any(zero).(type) {
	case float16.Float16:
		return any(float16.Fromfloat32(float32(v))).(T)
	case float32:
		return any(float32(v)).(T)
	case float64:
		return any(v).(T)
	case int32:
		return any(int32(v)).(T)
	default:
		return any(int64(v)).(T)
	}
}

func upload[T dtype.Num](ctx *tensor.Context, data []byte, name string) (*tensor.Tensor[T], error) {
	a, err := array.ReadSafetensors[T](data, name)
	if err != nil {
		return nil, err
	}
	return tensor.Upload(ctx, a, device.ReadOnly)
}

func runTyped[T dtype.Num](ctx *tensor.Context, data []byte, f runFlags) error {
	a, err := upload[T](ctx, data, f.a)
	if err != nil {
		return err
	}
	second := func() (*tensor.Tensor[T], error) { return upload[T](ctx, data, f.b) }

	s := a.Shape()
	outShape := s.Clone()
	switch f.op {
	case "matmul":
		b, err := array.ReadSafetensors[T](data, f.b)
		if err != nil {
			return err
		}
		if s.Rank() != 2 || b.Shape().Rank() != 2 {
			return errors.Wrapf(tensor.ErrShapeMismatch, "matmul of %s and %s", s, b.Shape())
		}
		outShape = tensor.Shape{s[0], b.Shape()[1]}
	case "transpose":
		if s.Rank() != 2 {
			return errors.Wrapf(tensor.ErrShapeMismatch, "transpose of %s", s)
		}
		outShape = tensor.Shape{s[1], s[0]}
	case "sum", "mse":
		if s.Rank() != 2 {
			return errors.Wrapf(tensor.ErrShapeMismatch, "%s of %s", f.op, s)
		}
		outShape = tensor.Shape{1, s[1]}
		if f.op == "sum" && f.axis == 1 {
			outShape = tensor.Shape{s[0], 1}
		}
	}
	out, err := tensor.New[T](ctx, outShape, device.ReadWrite)
	if err != nil {
		return err
	}

	if err := dispatchOp(f, a, second, out); err != nil {
		return err
	}
	result, err := out.DownloadWithTimeout(f.timeout)
	if err != nil {
		return err
	}
	if f.out == "" {
		fmt.Println(result)
		return nil
	}
	var buf bytes.Buffer
	if err := array.WriteSafetensors(&buf, map[string]*tensor.Array[T]{"result": result},
		map[string]string{"op": f.op, "source": f.in}); err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(f.out, buf.Bytes(), 0o644), "writing %s", f.out)
}

func dispatchOp[T dtype.Num](f runFlags, a *tensor.Tensor[T], second func() (*tensor.Tensor[T], error), out *tensor.Tensor[T]) error {
	binary := func(op func(a, b, out *tensor.Tensor[T]) error) error {
		b, err := second()
		if err != nil {
			return err
		}
		return op(a, b, out)
	}
	broadcast := func(op func(a *tensor.Tensor[T], axis tensor.Axis, b, out *tensor.Tensor[T]) error) error {
		return binary(func(a, b, out *tensor.Tensor[T]) error { return op(a, tensor.Axis(f.axis), b, out) })
	}
	threshold := func(op func(a *tensor.Tensor[T], threshold T, out *tensor.Tensor[T]) error) error {
		return op(a, scalar[T](f.value), out)
	}
	unary := map[string]func(a, out *tensor.Tensor[T]) error{
		"tanh":      tensor.Tanh[T],
		"dtanh":     tensor.DTanh[T],
		"sigmoid":   tensor.Sigmoid[T],
		"dsigmoid":  tensor.DSigmoid[T],
		"log":       tensor.Log[T],
		"exp":       tensor.Exp[T],
		"transpose": tensor.Transpose[T],
		"copy_to":   tensor.CopyTo[T],
	}
	if op, found := unary[f.op]; found {
		return op(a, out)
	}
	switch f.op {
	case "add":
		return broadcast(tensor.Add[T])
	case "multiply":
		return broadcast(tensor.Multiply[T])
	case "sub":
		return binary(tensor.Sub[T])
	case "matmul":
		return binary(tensor.Matmul[T])
	case "mse":
		return binary(tensor.MSE[T])
	case "dmse":
		return binary(tensor.DMSE[T])
	case "sum":
		return tensor.Sum(a, f.axis, out)
	case "fill":
		return tensor.Fill(out, scalar[T](f.value))
	case "max":
		return threshold(tensor.Max[T])
	case "min":
		return threshold(tensor.Min[T])
	case "dmax":
		return threshold(tensor.DMax[T])
	case "dmin":
		return threshold(tensor.DMin[T])
	}
	return errors.Errorf("unknown operation %q", f.op)
}
