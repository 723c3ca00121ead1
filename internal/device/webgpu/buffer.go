//go:build windows

package webgpu

import (
	"sync/atomic"

	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/dtype"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/pkg/errors"
)

// buffer is a storage buffer; size is the element bytes rounded up to 4.
type buffer struct {
	dev      *Device
	gpu      *wgpu.Buffer
	et       dtype.ElementType
	n        int
	mode     device.AccessMode
	size     uint64
	released atomic.Bool
}

// Len implements device.Buffer.
func (b *buffer) Len() int { return b.n }

// ElementType implements device.Buffer.
func (b *buffer) ElementType() dtype.ElementType { return b.et }

// Mode implements device.Buffer.
func (b *buffer) Mode() device.AccessMode { return b.mode }

// Release implements device.Buffer.
func (b *buffer) Release() error {
	if b.released.Swap(true) {
		return errors.Wrap(errs.ErrReleased, "webgpu buffer released twice")
	}
	b.gpu.Release()
	b.dev.memory.TrackRelease(b.size)
	return nil
}
