//go:build windows

package webgpu

import (
	"sync"
	"sync/atomic"

	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/pkg/errors"
)

// fenceSize is the number of bytes copied after each launch to observe its completion.
const fenceSize = 4

// maxRetiring bounds the fences handed to the retire loop before Enqueue blocks.
const maxRetiring = 256

// fence is the device.Event of a WebGPU launch: a tiny staging buffer written by a copy
// submitted right after the kernel. Mapping it returns once the kernel completed.
//
// The queue runs submissions in order, so once a fence completes every fence submitted
// before it is complete too, and is retired without mapping its own staging buffer.
type fence struct {
	dev     *Device
	name    string
	seq     uint64
	staging *wgpu.Buffer
	cleanup func()
	deps    []device.Event

	once sync.Once
	done atomic.Bool
	err  error
}

func (d *Device) newFence(name string, deps []device.Event, cleanup func()) *fence {
	return &fence{
		dev:     d,
		name:    name,
		staging: d.staging.Acquire(fenceSize, wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst),
		cleanup: cleanup,
		deps:    deps,
	}
}

// Wait implements device.Event.
// It fails if the launch or any of its prerequisites failed.
func (f *fence) Wait() error {
	f.complete(true)
	return f.err
}

// Done implements device.Event. Fences are completed by the device's retire loop shortly
// after the GPU reaches them, or earlier by a Wait.
func (f *fence) Done() bool { return f.done.Load() }

// complete frees the launch resources once. With observe set, it first maps the staging buffer
// to wait for the GPU; otherwise the caller knows a later fence already completed.
func (f *fence) complete(observe bool) {
	f.once.Do(func() {
		if observe {
			if err := f.staging.MapAsync(f.dev.device, wgpu.MapModeRead, 0, fenceSize); err != nil {
				f.err = errors.Wrapf(errs.ErrDeviceExecution, "webgpu: %s: %v", f.name, err)
			} else {
				f.staging.Unmap()
			}
		}
		for _, dep := range f.deps {
			if err := dep.Wait(); err != nil && f.err == nil {
				f.err = errors.WithMessagef(err, "prerequisite of %s failed", f.name)
			}
		}
		f.deps = nil
		f.dev.staging.Release(f.staging, fenceSize, wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst)
		f.cleanup()
		f.done.Store(true)
		if observe {
			f.dev.retireThrough(f.seq)
		}
	})
}

// track registers a submitted fence. Must be called with queueMu held, in submission order.
func (d *Device) track(f *fence) {
	d.fenceMu.Lock()
	d.nextSeq++
	f.seq = d.nextSeq
	d.outstanding = append(d.outstanding, f)
	d.fenceMu.Unlock()
	d.retiring <- f
}

// retireThrough completes every outstanding fence submitted up to seq.
func (d *Device) retireThrough(seq uint64) {
	d.fenceMu.Lock()
	n := 0
	for n < len(d.outstanding) && d.outstanding[n].seq <= seq {
		n++
	}
	retired := make([]*fence, n)
	copy(retired, d.outstanding[:n])
	d.outstanding = d.outstanding[n:]
	d.fenceMu.Unlock()
	for _, f := range retired {
		if f.seq != seq {
			f.complete(false)
		}
	}
}

// retireLoop waits on every fence in submission order, until retiring is closed.
func (d *Device) retireLoop() {
	defer d.retired.Done()
	for f := range d.retiring {
		_ = f.Wait()
	}
}

// pendingFences returns the number of submitted fences not yet completed.
func (d *Device) pendingFences() int {
	d.fenceMu.Lock()
	defer d.fenceMu.Unlock()
	return len(d.outstanding)
}
