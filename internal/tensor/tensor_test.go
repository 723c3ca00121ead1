package tensor

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/born-ml/gpuarray/internal/array"
	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/device/emulated"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/born-ml/gpuarray/internal/shape"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadDownload(t *testing.T) {
	ctx := newTestContext(t)
	x := upload(t, ctx, shape.Shape{2, 3}, []float64{1, 2, 3, 4, 5, 6}, device.ReadWrite)

	assert.Equal(t, shape.Shape{2, 3}, x.Shape())
	assert.Equal(t, []int{3, 1}, x.Strides())
	assert.Equal(t, 2, x.Rank())
	assert.Equal(t, 6, x.Len())
	assert.Equal(t, device.ReadWrite, x.Mode())
	assert.Same(t, ctx, x.Context())
	assert.Equal(t, "Tensor[f64][2 3](ReadWrite)", x.String())
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, download(t, x))

	dst, err := array.Zeros[float64](shape.Shape{2, 3})
	require.NoError(t, err)
	require.NoError(t, x.Read(dst))
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, dst.Data())

	wrong, err := array.Zeros[float64](shape.Shape{3, 2})
	require.NoError(t, err)
	assert.ErrorIs(t, x.Read(wrong), errs.ErrShapeMismatch)
	assert.ErrorIs(t, x.Set(wrong), errs.ErrShapeMismatch)

	require.NoError(t, x.Release())
	assert.ErrorIs(t, x.Release(), errs.ErrReleased)
	_, err = x.Download()
	assert.ErrorIs(t, err, errs.ErrReleased)
}

func TestNewValidation(t *testing.T) {
	ctx := newTestContext(t)
	_, err := New[float32](ctx, shape.Shape{}, device.ReadWrite)
	assert.ErrorIs(t, err, errs.ErrInvalidShape)
	_, err = New[float32](ctx, shape.Shape{3, 0}, device.ReadWrite)
	assert.ErrorIs(t, err, errs.ErrInvalidShape)
	_, err = New[float32](ctx, shape.Shape{3}, device.AccessMode(7))
	assert.ErrorIs(t, err, errs.ErrAccessMode)
}

// TestOrderedChain enqueues a long chain of dependent operations without waiting in between.
func TestOrderedChain(t *testing.T) {
	ctx := newTestContext(t)
	s := shape.Shape{64, 64}
	acc := zeros[int64](t, ctx, s)
	one := upload(t, ctx, s, iota[int64](s.NumElements(), 0), device.ReadWrite)
	require.NoError(t, Fill(one, 1))

	const steps = 50
	for range steps {
		require.NoError(t, Add(acc, Elementwise, one, acc))
	}
	for _, v := range download(t, acc) {
		require.Equal(t, int64(steps), v)
	}
}

// TestOrderedThroughViews mixes tensor and view operations on the same tensor.
func TestOrderedThroughViews(t *testing.T) {
	ctx := newTestContext(t)
	x := zeros[int32](t, ctx, shape.Shape{4, 4})
	require.NoError(t, Fill(x, 1))
	require.NoError(t, FillSlice(mustSlice(t, x, Span(1, 3), Span(1, 3)), 5))
	require.NoError(t, Multiply(x, Elementwise, x, x))
	require.NoError(t, AddSlice(mustSlice(t, x, Index(0)), mustSlice(t, x, Index(3)), mustSlice(t, x, Index(0))))
	assert.Equal(t, []int32{
		2, 2, 2, 2,
		1, 25, 25, 1,
		1, 25, 25, 1,
		1, 1, 1, 1,
	}, download(t, x))
}

func TestWriteWaitsForEarlierReaders(t *testing.T) {
	s := shape.Shape{32, 32}
	want := iota[float32](s.NumElements(), 0.01)
	for seed := range uint64(8) {
		ctx := NewContextWithDevice(emulated.New(emulated.Config{Workers: 4, Jitter: 300 * time.Microsecond, Seed: seed}))
		a := upload(t, ctx, s, want, device.ReadWrite)
		c := zeros[float32](t, ctx, s)
		require.NoError(t, Tanh(a, c))
		require.NoError(t, CopyTo(a, c))
		require.NoError(t, Fill(a, -7))
		require.Equal(t, want, download(t, c), "seed %d", seed)
		for _, v := range download(t, a) {
			require.Equal(t, float32(-7), v)
		}
		require.NoError(t, ctx.Release())
	}
}

func TestInputsShareThePendingEvent(t *testing.T) {
	ctx, g := newGatedContext(t)
	a := zeros[float32](t, ctx, shape.Shape{4})
	b := zeros[float32](t, ctx, shape.Shape{4})
	require.NoError(t, CopyTo(a, b))
	require.Same(t, a.slot.load(), b.slot.load())

	assert.ErrorIs(t, a.Release(), errs.ErrPendingEvent)
	g.open(nil)
	require.NoError(t, b.Wait())
	require.NoError(t, a.Release())
}

func TestAccessModes(t *testing.T) {
	ctx := newTestContext(t)
	ro := upload(t, ctx, shape.Shape{3}, []float32{1, 2, 3}, device.ReadOnly)
	wo, err := New[float32](ctx, shape.Shape{3}, device.WriteOnly)
	require.NoError(t, err)

	assert.ErrorIs(t, Fill(ro, 1), errs.ErrAccessMode)
	assert.ErrorIs(t, Tanh(wo, ro), errs.ErrAccessMode)
	assert.ErrorIs(t, CopyToSlice(mustSlice(t, wo), mustSlice(t, ro)), errs.ErrAccessMode)
	require.NoError(t, Tanh(ro, wo))
	require.NoError(t, wo.Wait())
}

func TestForeignTensor(t *testing.T) {
	ctx := newTestContext(t)
	other := newTestContext(t)
	a := zeros[float32](t, ctx, shape.Shape{3})
	b := zeros[float32](t, other, shape.Shape{3})

	assert.ErrorIs(t, Add(a, Elementwise, b, a), errs.ErrForeignTensor)
	assert.ErrorIs(t, CopyTo(a, b), errs.ErrForeignTensor)
	assert.Nil(t, a.slot.load())
	assert.Nil(t, b.slot.load())
}

func TestReleasedOperand(t *testing.T) {
	ctx := newTestContext(t)
	a := zeros[float32](t, ctx, shape.Shape{3})
	b := zeros[float32](t, ctx, shape.Shape{3})
	v := mustSlice(t, b, All())
	require.NoError(t, b.Release())

	assert.ErrorIs(t, CopyTo(a, b), errs.ErrReleased)
	assert.ErrorIs(t, CopyTo(b, a), errs.ErrReleased)
	assert.ErrorIs(t, FillSlice(v, 1), errs.ErrReleased)
	assert.ErrorIs(t, b.Wait(), errs.ErrReleased)
	assert.Nil(t, a.slot.load())
}

func TestReleasedContext(t *testing.T) {
	ctx := NewContextWithDevice(emulated.New(emulated.DefaultConfig()))
	a := zeros[float32](t, ctx, shape.Shape{3})
	require.NoError(t, ctx.Release())

	assert.ErrorIs(t, Fill(a, 1), errs.ErrReleased)
	assert.ErrorIs(t, ctx.Finish(), errs.ErrReleased)
	_, err := New[float32](ctx, shape.Shape{3}, device.ReadWrite)
	assert.ErrorIs(t, err, errs.ErrReleased)
}

func TestReleasePendingEvent(t *testing.T) {
	ctx, g := newGatedContext(t)
	x := zeros[float32](t, ctx, shape.Shape{8})
	require.NoError(t, Fill(x, 3))

	assert.ErrorIs(t, x.Release(), errs.ErrPendingEvent)
	g.open(nil)
	require.NoError(t, x.Wait())
	require.NoError(t, x.Release())
}

func TestReleaseAfterCompletionWithoutWait(t *testing.T) {
	ctx := newTestContext(t)
	x := zeros[float32](t, ctx, shape.Shape{8})
	require.NoError(t, Fill(x, 3))
	require.NoError(t, ctx.Finish())
	require.NoError(t, x.Release())
}

func TestExecutionFailurePropagates(t *testing.T) {
	ctx, g := newGatedContext(t)
	a := zeros[float32](t, ctx, shape.Shape{4})
	b := zeros[float32](t, ctx, shape.Shape{4})
	require.NoError(t, Fill(a, 1))
	require.NoError(t, CopyTo(a, b))
	require.NoError(t, Exp(b, b))

	lost := errors.Wrap(errs.ErrDeviceExecution, "device lost")
	g.open(lost)
	require.NoError(t, ctx.Finish())

	// b's last operation never waited on by the host: Release frees it and reports the failure.
	err := b.Release()
	assert.ErrorIs(t, err, errs.ErrDeviceExecution)
	assert.ErrorIs(t, a.Wait(), errs.ErrDeviceExecution)
	_, err = a.Download()
	assert.ErrorIs(t, err, errs.ErrDeviceExecution)
	require.NoError(t, a.Release())
}

func TestSetClearsCompletedFailure(t *testing.T) {
	ctx, g := newGatedContext(t)
	x := zeros[float32](t, ctx, shape.Shape{4})
	require.NoError(t, Fill(x, 1))
	g.open(errors.Wrap(errs.ErrDeviceExecution, "device lost"))
	require.ErrorIs(t, x.Wait(), errs.ErrDeviceExecution)

	healthy := newGate()
	healthy.open(nil)
	ctx.dev.(*gatedDevice).gate = healthy

	a, err := array.FromSlice(shape.Shape{4}, []float32{1, 2, 3, 4})
	require.NoError(t, err)
	require.NoError(t, x.Set(a))
	assert.Nil(t, x.slot.load())
	require.NoError(t, Add(x, Elementwise, x, x))
	assert.Equal(t, []float32{2, 4, 6, 8}, download(t, x))
}

func TestSetKeepsRunningEvent(t *testing.T) {
	ctx, g := newGatedContext(t)
	x := zeros[float32](t, ctx, shape.Shape{4})
	require.NoError(t, Fill(x, 1))
	pending := x.slot.load()
	a, err := array.FromSlice(shape.Shape{4}, []float32{1, 2, 3, 4})
	require.NoError(t, err)
	require.NoError(t, x.Set(a))
	assert.Same(t, pending, x.slot.load())
	g.open(nil)
	require.NoError(t, x.Wait())
}

func TestFailedDispatchKeepsEvent(t *testing.T) {
	ctx, _ := newGatedContext(t)
	a := zeros[float32](t, ctx, shape.Shape{4})
	gone := zeros[float32](t, ctx, shape.Shape{4})
	ro := upload(t, ctx, shape.Shape{4}, []float32{1, 2, 3, 4}, device.ReadOnly)
	require.NoError(t, gone.Release())
	require.NoError(t, Fill(a, 1))
	before := a.slot.load()
	require.NotNil(t, before)

	assert.ErrorIs(t, Add(a, Elementwise, gone, a), errs.ErrReleased)
	assert.ErrorIs(t, CopyTo(a, ro), errs.ErrAccessMode)
	assert.ErrorIs(t, Log(a, zeros[float32](t, ctx, shape.Shape{5})), errs.ErrShapeMismatch)
	assert.Same(t, before, a.slot.load())
	assert.Nil(t, ro.slot.load())
}

func TestDownloadWithTimeout(t *testing.T) {
	ctx, g := newGatedContext(t)
	x := zeros[int32](t, ctx, shape.Shape{4})
	require.NoError(t, Fill(x, 7))

	_, err := x.DownloadWithTimeout(10 * time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	g.open(nil)
	got, err := x.DownloadWithTimeout(time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []int32{7, 7, 7, 7}, got.Data())
}

func TestFinalizerReleasesBuffer(t *testing.T) {
	ctx := newTestContext(t)
	for range 8 {
		_ = zeros[float32](t, ctx, shape.Shape{256})
	}
	require.Eventually(t, func() bool {
		runtime.GC()
		return ctx.MemoryStats().ActiveBuffers == 0
	}, 5*time.Second, 10*time.Millisecond)
}
