//go:build windows

package webgpu

import (
	"testing"
	"time"

	"github.com/born-ml/gpuarray/internal/array"
	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/dtype"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/born-ml/gpuarray/internal/shape"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T) *Device {
	t.Helper()
	if !IsAvailable() {
		t.Skip("WebGPU not available")
	}
	d, err := New(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Release() })
	return d
}

func TestAddOnGPU(t *testing.T) {
	d := newTestDevice(t)
	a, err := array.FromSlice(shape.Shape{5, 3}, []float32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14})
	require.NoError(t, err)
	b, err := array.FromSlice(shape.Shape{1, 3}, []float32{0, 1, 2})
	require.NoError(t, err)

	bufA, err := d.Alloc(dtype.Float32, a.Len(), device.ReadWrite)
	require.NoError(t, err)
	bufB, err := d.Alloc(dtype.Float32, b.Len(), device.ReadOnly)
	require.NoError(t, err)
	require.NoError(t, d.Write(bufA, a.Bytes()))
	require.NoError(t, d.Write(bufB, b.Bytes()))

	k, ok := d.Kernel("array_add_f32")
	require.True(t, ok)
	ev, err := d.Enqueue(device.Launch{Kernel: k, Args: device.Args{bufA, bufB, bufA, 3, 0}, Global: device.Geometry{5, 3, 1}})
	require.NoError(t, err)

	out, err := array.Zeros[float32](shape.Shape{5, 3})
	require.NoError(t, err)
	require.NoError(t, d.Read(bufA, out.Bytes(), []device.Event{ev}))
	assert.Equal(t, []float32{0, 2, 4, 3, 5, 7, 6, 8, 10, 9, 11, 13, 12, 14, 16}, out.Data())
	assert.True(t, ev.Done())

	assert.Equal(t, int64(2), d.MemoryStats().ActiveBuffers)
	require.NoError(t, bufB.Release())
	assert.ErrorIs(t, bufB.Release(), errs.ErrReleased)
}

func TestNoFloat64Kernels(t *testing.T) {
	d := newTestDevice(t)
	_, ok := d.Kernel("array_add_f64")
	assert.False(t, ok)
}

// failedEvent is a prerequisite that failed; done reports whether it was already known to.
type failedEvent struct {
	done bool
}

func (e failedEvent) Wait() error { return errors.Wrap(errs.ErrDeviceExecution, "lost") }
func (e failedEvent) Done() bool  { return e.done }

func fillLaunch(t *testing.T, d *Device, n int) device.Launch {
	t.Helper()
	buf, err := d.Alloc(dtype.Float32, n, device.ReadWrite)
	require.NoError(t, err)
	k, ok := d.Kernel("array_fill_f32")
	require.True(t, ok)
	return device.Launch{Kernel: k, Args: device.Args{buf, float32(1)}, Global: device.Geometry{n, 1, 1}}
}

func TestUnwaitedLaunchesRetire(t *testing.T) {
	d := newTestDevice(t)
	launch := fillLaunch(t, d, 64)
	var events []device.Event
	for range 20 {
		launch.WaitList = nil
		if len(events) > 0 {
			launch.WaitList = events[len(events)-1:]
		}
		ev, err := d.Enqueue(launch)
		require.NoError(t, err)
		events = append(events, ev)
	}
	require.NoError(t, d.Finish())
	assert.Zero(t, d.pendingFences())
	for _, ev := range events {
		assert.True(t, ev.Done())
	}
}

func TestFencesCompleteWithoutWait(t *testing.T) {
	d := newTestDevice(t)
	ev, err := d.Enqueue(fillLaunch(t, d, 16))
	require.NoError(t, err)
	assert.Eventually(t, ev.Done, 5*time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return d.pendingFences() == 0 }, 5*time.Second, time.Millisecond)
}

func TestFailedPrerequisite(t *testing.T) {
	d := newTestDevice(t)
	launch := fillLaunch(t, d, 16)

	launch.WaitList = []device.Event{failedEvent{done: true}}
	_, err := d.Enqueue(launch)
	assert.ErrorIs(t, err, errs.ErrDeviceExecution)

	launch.WaitList = []device.Event{failedEvent{}}
	ev, err := d.Enqueue(launch)
	require.NoError(t, err)
	assert.ErrorIs(t, ev.Wait(), errs.ErrDeviceExecution)
	assert.True(t, ev.Done())
}
