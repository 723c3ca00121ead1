package emulated

import (
	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/shape"
)

// strided addresses the elements of a view through its packed strides and offsets.
type strided struct {
	strides, offsets shape.Vector
}

func stridedArg(args device.Args, i int) strided {
	return strided{strides: args.Vector(i), offsets: args.Vector(i + 1)}
}

func (s strided) at(c [shape.VectorWidth]int) int {
	idx := 0
	for k := range c {
		idx += (int(s.offsets[k]) + c[k]) * int(s.strides[k])
	}
	return idx
}

// coords maps work-item (x, y, z) of a slice launch back to view coordinates.
// Slice launches fold the two outermost extents into x.
func coords(extent shape.Vector, x, y, z int) [shape.VectorWidth]int {
	e1 := int(extent[1])
	return [shape.VectorWidth]int{x / e1, x % e1, y, z}
}

func copyToSlice[T number](args device.Args, _ device.Geometry) func(x, y, z int) {
	src, srcView := elements[T](args.Buffer(0)), stridedArg(args, 1)
	dst, dstView := elements[T](args.Buffer(3)), stridedArg(args, 4)
	extent := args.Vector(6)
	return func(x, y, z int) {
		c := coords(extent, x, y, z)
		dst[dstView.at(c)] = src[srcView.at(c)]
	}
}

func fillSlice[T number](args device.Args, _ device.Geometry) func(x, y, z int) {
	dst, dstView := elements[T](args.Buffer(0)), stridedArg(args, 1)
	extent, value := args.Vector(3), scalar[T](args, 4)
	return func(x, y, z int) {
		dst[dstView.at(coords(extent, x, y, z))] = value
	}
}

func binarySlice[T number](fn func(a, b T) T) binder {
	return func(args device.Args, _ device.Geometry) func(x, y, z int) {
		a, aView := elements[T](args.Buffer(0)), stridedArg(args, 1)
		b, bView := elements[T](args.Buffer(3)), stridedArg(args, 4)
		out, outView := elements[T](args.Buffer(6)), stridedArg(args, 7)
		extent := args.Vector(9)
		return func(x, y, z int) {
			c := coords(extent, x, y, z)
			out[outView.at(c)] = fn(a[aView.at(c)], b[bView.at(c)])
		}
	}
}

func unarySlice[T float](fn func(x T) T) binder {
	return func(args device.Args, _ device.Geometry) func(x, y, z int) {
		src, srcView := elements[T](args.Buffer(0)), stridedArg(args, 1)
		dst, dstView := elements[T](args.Buffer(3)), stridedArg(args, 4)
		extent := args.Vector(6)
		return func(x, y, z int) {
			c := coords(extent, x, y, z)
			dst[dstView.at(c)] = fn(src[srcView.at(c)])
		}
	}
}

func thresholdSlice[T float](fn func(x, t T) T) binder {
	return func(args device.Args, _ device.Geometry) func(x, y, z int) {
		src, srcView := elements[T](args.Buffer(0)), stridedArg(args, 1)
		dst, dstView := elements[T](args.Buffer(3)), stridedArg(args, 4)
		extent, t := args.Vector(6), scalar[T](args, 7)
		return func(x, y, z int) {
			c := coords(extent, x, y, z)
			dst[dstView.at(c)] = fn(src[srcView.at(c)], t)
		}
	}
}
