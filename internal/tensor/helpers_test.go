package tensor

import (
	"sync"
	"testing"
	"time"

	"github.com/born-ml/gpuarray/internal/array"
	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/device/emulated"
	"github.com/born-ml/gpuarray/internal/dtype"
	"github.com/born-ml/gpuarray/internal/shape"
	"github.com/stretchr/testify/require"
)

// newTestContext returns a context over an emulated device whose launches start after a random
// delay, so missing ordering shows up as wrong results.
func newTestContext(t *testing.T) *Context {
	t.Helper()
	ctx := NewContextWithDevice(emulated.New(emulated.Config{Workers: 4, Jitter: 300 * time.Microsecond, Seed: 42}))
	t.Cleanup(func() { _ = ctx.Release() })
	return ctx
}

func upload[T dtype.Num](t *testing.T, ctx *Context, s shape.Shape, values []T, mode device.AccessMode) *Tensor[T] {
	t.Helper()
	a, err := array.FromSlice(s, values)
	require.NoError(t, err)
	x, err := Upload(ctx, a, mode)
	require.NoError(t, err)
	return x
}

func zeros[T dtype.Num](t *testing.T, ctx *Context, s shape.Shape) *Tensor[T] {
	t.Helper()
	return upload(t, ctx, s, make([]T, s.NumElements()), device.ReadWrite)
}

func download[T dtype.Num](t *testing.T, x *Tensor[T]) []T {
	t.Helper()
	a, err := x.Download()
	require.NoError(t, err)
	return a.Data()
}

func iota[T dtype.Num](n int, scale T) []T {
	values := make([]T, n)
	for i := range values {
		values[i] = T(i) * scale
	}
	return values
}

func mustSlice[T dtype.Num](t *testing.T, x *Tensor[T], ranges ...Range) *View[T] {
	t.Helper()
	v, err := x.Slice(ranges...)
	require.NoError(t, err)
	return v
}

// gate is an event the test completes by hand.
type gate struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newGate() *gate { return &gate{done: make(chan struct{})} }

func (g *gate) open(err error) {
	g.once.Do(func() {
		g.err = err
		close(g.done)
	})
}

func (g *gate) Wait() error {
	<-g.done
	return g.err
}

func (g *gate) Done() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

// gatedDevice holds every launch until its gate opens. Opening the gate with an error fails
// the launches, and everything that depends on them.
type gatedDevice struct {
	*emulated.Device
	gate *gate
}

func (d *gatedDevice) Enqueue(launch device.Launch) (device.Event, error) {
	launch.WaitList = append(launch.WaitList, d.gate)
	return d.Device.Enqueue(launch)
}

func newGatedContext(t *testing.T) (*Context, *gate) {
	t.Helper()
	g := newGate()
	ctx := NewContextWithDevice(&gatedDevice{Device: emulated.New(emulated.Config{Workers: 2}), gate: g})
	t.Cleanup(func() {
		g.open(nil)
		_ = ctx.Release()
	})
	return ctx, g
}
