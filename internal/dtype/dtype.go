// Package dtype enumerates the element types a device tensor can hold.
package dtype

import (
	"github.com/gomlx/exceptions"
	"github.com/x448/float16"
)

// Num is the constraint satisfied by every host element type.
// Float16 values are stored as their IEEE 754 half-precision bits.
type Num interface {
	~float32 | ~float64 | ~int32 | ~int64 | float16.Float16
}

// ElementType is the runtime tag of a tensor's element type.
// It selects kernels from the registry together with the operation name.
type ElementType int

// Supported element types.
const (
	Invalid ElementType = iota
	Float32
	Float64
	Int32
	Int64
	Float16
)

// All lists every valid element type, in registry order.
var All = []ElementType{Float32, Float64, Int32, Int64, Float16}

// Size returns the byte size of one element.
func (et ElementType) Size() int {
	switch et {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Float16:
		return 2
	default:
		exceptions.Panicf("dtype: Size of unknown element type %d", int(et))
		return 0
	}
}

// Tag returns the short suffix used in kernel names, e.g. "f32" in "array_add_f32".
func (et ElementType) Tag() string {
	switch et {
	case Float32:
		return "f32"
	case Float64:
		return "f64"
	case Int32:
		return "i32"
	case Int64:
		return "i64"
	case Float16:
		return "f16"
	default:
		return "invalid"
	}
}

// String returns a human-readable name for the element type.
func (et ElementType) String() string {
	switch et {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float16:
		return "float16"
	default:
		return "invalid"
	}
}

// IsFloat reports whether the element type is a floating point type.
func (et ElementType) IsFloat() bool {
	return et == Float32 || et == Float64 || et == Float16
}

// FromTag is the inverse of Tag. It returns Invalid for unknown tags.
func FromTag(tag string) ElementType {
	for _, et := range All {
		if et.Tag() == tag {
			return et
		}
	}
	return Invalid
}

// Of returns the element type of T.
func Of[T Num]() ElementType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int32:
		return Int32
	case int64:
		return Int64
	case float16.Float16:
		return Float16
	default:
		exceptions.Panicf("dtype: unsupported Go type %T", zero)
		return Invalid
	}
}
