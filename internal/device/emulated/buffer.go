package emulated

import (
	"sync/atomic"
	"unsafe"

	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/dtype"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/pkg/errors"
)

// buffer holds its elements in host memory, 8-byte aligned so it can be viewed as any element type.
type buffer struct {
	dev      *Device
	et       dtype.ElementType
	n        int
	mode     device.AccessMode
	data     []byte
	released atomic.Bool
}

func newBuffer(d *Device, et dtype.ElementType, n int, mode device.AccessMode) *buffer {
	size := n * et.Size()
	words := make([]uint64, (size+7)/8)
	return &buffer{
		dev:  d,
		et:   et,
		n:    n,
		mode: mode,
		data: unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), size),
	}
}

// Len implements device.Buffer.
func (b *buffer) Len() int { return b.n }

// ElementType implements device.Buffer.
func (b *buffer) ElementType() dtype.ElementType { return b.et }

// Mode implements device.Buffer.
func (b *buffer) Mode() device.AccessMode { return b.mode }

// Release implements device.Buffer.
// Launches already holding the buffer keep their reference to its memory.
func (b *buffer) Release() error {
	if b.released.Swap(true) {
		return errors.Wrap(errs.ErrReleased, "emulated buffer released twice")
	}
	if b.dev != nil {
		b.dev.memory.TrackRelease(uint64(len(b.data)))
	}
	return nil
}

// elements views the buffer memory as a []T.
func elements[T any](buf device.Buffer) []T {
	b := mustOwn(buf)
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b.data))), b.n)
}
