// Package device defines the API a compute device has to implement to hold tensor buffers
// and run kernels against them.
//
// Launches are asynchronous: Enqueue returns an Event as soon as the work is queued, and the
// device is free to run independent launches in any order. Data ordering between launches is
// expressed only through the wait-list of each Launch.
package device

import (
	"fmt"

	"github.com/born-ml/gpuarray/internal/dtype"
	"github.com/born-ml/gpuarray/internal/shape"
	"github.com/gomlx/exceptions"
)

// AccessMode is the host-visible protection of a buffer.
type AccessMode int

const (
	// ReadOnly buffers are written by the host and only read by kernels.
	ReadOnly AccessMode = iota
	// WriteOnly buffers are written by kernels and only read back by the host.
	WriteOnly
	// ReadWrite buffers may be read and written by both.
	ReadWrite
)

// String implements fmt.Stringer.
func (m AccessMode) String() string {
	switch m {
	case ReadOnly:
		return "ReadOnly"
	case WriteOnly:
		return "WriteOnly"
	case ReadWrite:
		return "ReadWrite"
	default:
		return fmt.Sprintf("AccessMode(%d)", int(m))
	}
}

// KernelReadable reports whether kernels may read a buffer of this mode.
func (m AccessMode) KernelReadable() bool { return m != WriteOnly }

// KernelWritable reports whether kernels may write a buffer of this mode.
func (m AccessMode) KernelWritable() bool { return m != ReadOnly }

// Buffer is a device memory allocation of Len elements of one element type.
type Buffer interface {
	Len() int
	ElementType() dtype.ElementType
	Mode() AccessMode
	// Release frees the device memory. Further use of the buffer is an error.
	Release() error
}

// Event is the completion handle of one enqueued launch.
type Event interface {
	// Wait blocks until the launch completed and returns its execution error, if any.
	// It can be called any number of times, from any goroutine.
	Wait() error
	// Done reports whether the launch has already finished, without blocking.
	Done() bool
}

// Kernel is a compiled kernel ready to be launched.
type Kernel interface {
	Name() string
}

// Geometry is the number of work-items along each of the three launch axes.
type Geometry [3]int

// Size returns the total number of work-items.
func (g Geometry) Size() int { return g[0] * g[1] * g[2] }

// String implements fmt.Stringer.
func (g Geometry) String() string { return fmt.Sprintf("(%d,%d,%d)", g[0], g[1], g[2]) }

// Args is the positional argument list of a launch.
//
// Entries are Buffer values, int scalars, shape.Vector values, or a scalar of the kernel's
// element type (float32, float64, int32, int64 or float16.Float16).
type Args []any

// Buffer returns the i-th argument as a Buffer; it panics if the argument has another type.
func (a Args) Buffer(i int) Buffer {
	b, ok := a[i].(Buffer)
	if !ok {
		exceptions.Panicf("kernel argument #%d is %T, not a device.Buffer", i, a[i])
	}
	return b
}

// Int returns the i-th argument as an int; it panics if the argument has another type.
func (a Args) Int(i int) int {
	v, ok := a[i].(int)
	if !ok {
		exceptions.Panicf("kernel argument #%d is %T, not an int", i, a[i])
	}
	return v
}

// Vector returns the i-th argument as a shape.Vector; it panics if the argument has another type.
func (a Args) Vector(i int) shape.Vector {
	v, ok := a[i].(shape.Vector)
	if !ok {
		exceptions.Panicf("kernel argument #%d is %T, not a shape.Vector", i, a[i])
	}
	return v
}

// Launch describes one kernel invocation.
type Launch struct {
	Kernel Kernel
	Args   Args
	Global Geometry
	// WaitList holds the events that must complete before the kernel starts.
	WaitList []Event
}

// Device is the API that needs to be implemented by a compute device.
type Device interface {
	// Name returns the short name of the device, the one used for registration. E.g.: "webgpu".
	Name() string
	// Description is a longer description of the device that can be used to pretty-print.
	Description() string

	// Alloc reserves device memory for n elements of the given type. The content is undefined.
	Alloc(et dtype.ElementType, n int, mode AccessMode) (Buffer, error)
	// Write synchronously copies src into buf. len(src) must equal the buffer size in bytes.
	Write(buf Buffer, src []byte) error
	// Read waits for the events in wait and then copies buf into dst.
	Read(buf Buffer, dst []byte, wait []Event) error

	// Kernel returns the compiled kernel with the given name, if the device provides it.
	Kernel(name string) (Kernel, bool)
	// Enqueue queues a launch and returns immediately with its completion event.
	Enqueue(launch Launch) (Event, error)
	// Finish blocks until every launch enqueued so far has completed.
	Finish() error

	MemoryStats() MemoryStats
	// Release frees all the device resources immediately, and makes the device invalid.
	Release() error
}
