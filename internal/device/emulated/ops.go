package emulated

import (
	"math"

	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/kernels"
	"github.com/gomlx/exceptions"
)

type number interface {
	float32 | float64 | int32 | int64
}

type float interface {
	float32 | float64
}

// flat returns the row-major index of work-item (x, y, z).
func flat(global device.Geometry, x, y, z int) int {
	return (x*global[1]+y)*global[2] + z
}

func scalar[T number](args device.Args, i int) T {
	v, ok := args[i].(T)
	if !ok {
		var zero T
		exceptions.Panicf("kernel argument #%d is %T, not %T", i, args[i], zero)
	}
	return v
}

func numberBinders[T number]() map[opKey]binder {
	return map[opKey]binder{
		{kernels.CopyTo, false}:    copyTo[T],
		{kernels.Fill, false}:      fill[T],
		{kernels.Sum, false}:       sum[T],
		{kernels.Add, false}:       broadcast(func(a, b T) T { return a + b }),
		{kernels.Sub, false}:       elementwise(func(a, b T) T { return a - b }),
		{kernels.Multiply, false}:  broadcast(func(a, b T) T { return a * b }),
		{kernels.Transpose, false}: transpose[T],
		{kernels.Matmul, false}:    matmul[T],

		{kernels.CopyTo, true}:   copyToSlice[T],
		{kernels.Fill, true}:     fillSlice[T],
		{kernels.Add, true}:      binarySlice(func(a, b T) T { return a + b }),
		{kernels.Sub, true}:      binarySlice(func(a, b T) T { return a - b }),
		{kernels.Multiply, true}: binarySlice(func(a, b T) T { return a * b }),
	}
}

func floatBinders[T float]() map[opKey]binder {
	m := map[opKey]binder{
		{kernels.MSE, false}:  mse[T],
		{kernels.DMSE, false}: dmse[T],
	}
	thresholds := map[kernels.Op]func(x, t T) T{
		kernels.Max:  func(x, t T) T { return max(x, t) },
		kernels.Min:  func(x, t T) T { return min(x, t) },
		kernels.DMax: func(x, t T) T { return indicator[T](x > t) },
		kernels.DMin: func(x, t T) T { return indicator[T](x < t) },
	}
	for op, fn := range thresholds {
		m[opKey{op, false}] = threshold(fn)
		m[opKey{op, true}] = thresholdSlice(fn)
	}
	unaries := map[kernels.Op]func(x T) T{
		kernels.Tanh:     tanh[T],
		kernels.DTanh:    dtanh[T],
		kernels.Sigmoid:  sigmoid[T],
		kernels.DSigmoid: dsigmoid[T],
		kernels.Log:      func(x T) T { return T(math.Log(float64(x))) },
		kernels.Exp:      func(x T) T { return T(math.Exp(float64(x))) },
	}
	for op, fn := range unaries {
		m[opKey{op, false}] = unary(fn)
		m[opKey{op, true}] = unarySlice(fn)
	}
	return m
}

func tanh[T float](x T) T { return T(math.Tanh(float64(x))) }

func dtanh[T float](x T) T {
	t := tanh(x)
	return 1 - t*t
}

func sigmoid[T float](x T) T {
	return T(1 / (1 + math.Exp(-float64(x))))
}

func dsigmoid[T float](x T) T {
	s := sigmoid(x)
	return s * (1 - s)
}

func indicator[T float](b bool) T {
	if b {
		return 1
	}
	return 0
}

func copyTo[T number](args device.Args, global device.Geometry) func(x, y, z int) {
	src, dst := elements[T](args.Buffer(0)), elements[T](args.Buffer(1))
	return func(x, y, z int) {
		i := flat(global, x, y, z)
		dst[i] = src[i]
	}
}

func fill[T number](args device.Args, global device.Geometry) func(x, y, z int) {
	dst, value := elements[T](args.Buffer(0)), scalar[T](args, 1)
	return func(x, y, z int) {
		dst[flat(global, x, y, z)] = value
	}
}

func sum[T number](args device.Args, _ device.Geometry) func(x, y, z int) {
	src, dst := elements[T](args.Buffer(0)), elements[T](args.Buffer(1))
	rows, cols, axis := args.Int(2), args.Int(3), args.Int(4)
	if axis == 0 {
		return func(x, _, _ int) {
			var acc T
			for i := range rows {
				acc += src[i*cols+x]
			}
			dst[x] = acc
		}
	}
	return func(x, _, _ int) {
		var acc T
		for j := range cols {
			acc += src[x*cols+j]
		}
		dst[x] = acc
	}
}

// broadcast applies fn elementwise, or broadcasts b along rows (axis 0, b is [1, cols])
// or columns (axis 1, b is [rows, 1]).
func broadcast[T number](fn func(a, b T) T) binder {
	return func(args device.Args, global device.Geometry) func(x, y, z int) {
		a, b, out := elements[T](args.Buffer(0)), elements[T](args.Buffer(1)), elements[T](args.Buffer(2))
		cols, axis := args.Int(3), args.Int(4)
		bIndex := func(i int) int { return i }
		switch axis {
		case 0:
			bIndex = func(i int) int { return i % cols }
		case 1:
			bIndex = func(i int) int { return i / cols }
		}
		return func(x, y, z int) {
			i := flat(global, x, y, z)
			out[i] = fn(a[i], b[bIndex(i)])
		}
	}
}

func elementwise[T number](fn func(a, b T) T) binder {
	return func(args device.Args, global device.Geometry) func(x, y, z int) {
		a, b, out := elements[T](args.Buffer(0)), elements[T](args.Buffer(1)), elements[T](args.Buffer(2))
		return func(x, y, z int) {
			i := flat(global, x, y, z)
			out[i] = fn(a[i], b[i])
		}
	}
}

func transpose[T number](args device.Args, _ device.Geometry) func(x, y, z int) {
	src, dst := elements[T](args.Buffer(0)), elements[T](args.Buffer(1))
	rows, cols := args.Int(2), args.Int(3)
	return func(x, y, _ int) {
		dst[y*rows+x] = src[x*cols+y]
	}
}

func matmul[T number](args device.Args, _ device.Geometry) func(x, y, z int) {
	a, b, out := elements[T](args.Buffer(0)), elements[T](args.Buffer(1)), elements[T](args.Buffer(2))
	inner, cols := args.Int(3), args.Int(4)
	return func(x, y, _ int) {
		var acc T
		for k := range inner {
			acc += a[x*inner+k] * b[k*cols+y]
		}
		out[x*cols+y] = acc
	}
}

func threshold[T float](fn func(x, t T) T) binder {
	return func(args device.Args, global device.Geometry) func(x, y, z int) {
		src, dst, t := elements[T](args.Buffer(0)), elements[T](args.Buffer(1)), scalar[T](args, 2)
		return func(x, y, z int) {
			i := flat(global, x, y, z)
			dst[i] = fn(src[i], t)
		}
	}
}

func unary[T float](fn func(x T) T) binder {
	return func(args device.Args, global device.Geometry) func(x, y, z int) {
		src, dst := elements[T](args.Buffer(0)), elements[T](args.Buffer(1))
		return func(x, y, z int) {
			i := flat(global, x, y, z)
			dst[i] = fn(src[i])
		}
	}
}

// mse reduces over rows: out[j] = Σ_i (a[i,j]-t[i,j])² / rows.
func mse[T float](args device.Args, _ device.Geometry) func(x, y, z int) {
	a, target, out := elements[T](args.Buffer(0)), elements[T](args.Buffer(1)), elements[T](args.Buffer(2))
	rows, cols := args.Int(3), args.Int(4)
	return func(x, _, _ int) {
		var acc T
		for i := range rows {
			d := a[i*cols+x] - target[i*cols+x]
			acc += d * d
		}
		out[x] = acc / T(rows)
	}
}

func dmse[T float](args device.Args, _ device.Geometry) func(x, y, z int) {
	a, target, out := elements[T](args.Buffer(0)), elements[T](args.Buffer(1)), elements[T](args.Buffer(2))
	rows, cols := args.Int(3), args.Int(4)
	return func(x, y, _ int) {
		i := x*cols + y
		out[i] = 2 * (a[i] - target[i]) / T(rows)
	}
}
