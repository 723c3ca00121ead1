package tensor

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/born-ml/gpuarray/internal/array"
	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/dtype"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/born-ml/gpuarray/internal/shape"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Tensor is a device-resident n-dimensional array of T.
// It owns its device buffer and the pending-event slot shared with its views.
//
// Example:
//
//	a, _ := tensor.Upload(ctx, hostArray, device.ReadOnly)
//	c, _ := tensor.New[float32](ctx, a.Shape(), device.ReadWrite)
//	_ = tensor.Add(a, tensor.Elementwise, b, c)
//	result, err := c.Download()
type Tensor[T dtype.Num] struct {
	ctx      *Context
	shape    shape.Shape
	strides  []int
	mode     device.AccessMode
	buf      device.Buffer
	slot     *eventSlot
	released atomic.Bool
}

// New allocates an uninitialized tensor.
// The access mode decides which operations may read or write it: ReadOnly tensors can't be
// the output of an operation and WriteOnly tensors can't be an input.
func New[T dtype.Num](ctx *Context, s shape.Shape, mode device.AccessMode) (*Tensor[T], error) {
	if err := ctx.checkAlive(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if mode < device.ReadOnly || mode > device.ReadWrite {
		return nil, errors.Wrapf(errs.ErrAccessMode, "unknown access mode %s", mode)
	}
	et := dtype.Of[T]()
	buf, err := ctx.dev.Alloc(et, s.NumElements(), mode)
	if err != nil {
		return nil, errors.WithMessagef(err, "allocating %s tensor of shape %s", et, s)
	}
	t := &Tensor[T]{
		ctx:     ctx,
		shape:   s.Clone(),
		strides: s.MustStrides(),
		mode:    mode,
		buf:     buf,
		slot:    &eventSlot{},
	}
	runtime.SetFinalizer(t, finalizeTensor[T])
	return t, nil
}

// Upload allocates a tensor of the shape of a and synchronously copies a into it.
func Upload[T dtype.Num](ctx *Context, a *array.Array[T], mode device.AccessMode) (*Tensor[T], error) {
	t, err := New[T](ctx, a.Shape(), mode)
	if err != nil {
		return nil, err
	}
	if err := t.Set(a); err != nil {
		_ = t.Release()
		return nil, err
	}
	return t, nil
}

// finalizeTensor releases the buffer of a tensor that was garbage collected without Release.
func finalizeTensor[T dtype.Num](t *Tensor[T]) {
	if t.released.Load() {
		return
	}
	if p := t.slot.unobserved(); p != nil && !p.event.Done() {
		klog.Errorf("tensor %s of %s was garbage collected with an operation still pending that was never waited on",
			t.shape, t.ctx)
	}
	t.released.Store(true)
	if err := t.buf.Release(); err != nil {
		klog.Errorf("releasing garbage collected tensor %s: %+v", t.shape, err)
	}
}

// Context returns the context the tensor was allocated on.
func (t *Tensor[T]) Context() *Context { return t.ctx }

// Shape returns the tensor's shape. The caller must not modify it.
func (t *Tensor[T]) Shape() shape.Shape { return t.shape }

// Strides returns the row-major strides of the tensor.
func (t *Tensor[T]) Strides() []int { return t.strides }

// Rank returns the number of dimensions.
func (t *Tensor[T]) Rank() int { return len(t.shape) }

// Len returns the number of elements.
func (t *Tensor[T]) Len() int { return t.buf.Len() }

// Mode returns the access mode of the tensor.
func (t *Tensor[T]) Mode() device.AccessMode { return t.mode }

// ElementType returns the element type of the tensor.
func (t *Tensor[T]) ElementType() dtype.ElementType { return t.buf.ElementType() }

// String implements fmt.Stringer.
func (t *Tensor[T]) String() string {
	return fmt.Sprintf("Tensor[%s]%s(%s)", t.ElementType(), t.shape, t.mode)
}

func (t *Tensor[T]) checkAlive() error {
	if t.released.Load() {
		return errors.Wrapf(errs.ErrReleased, "tensor %s", t.shape)
	}
	return t.ctx.checkAlive()
}

// Set synchronously overwrites the tensor with a.
// It bypasses event tracking: the caller must make sure no enqueued operation is using the tensor.
// If the pending operation already completed, it is dropped along with its failure, so later
// operations on the tensor no longer depend on it.
func (t *Tensor[T]) Set(a *array.Array[T]) error {
	if err := t.checkAlive(); err != nil {
		return err
	}
	if !a.Shape().Equal(t.shape) {
		return errors.Wrapf(errs.ErrShapeMismatch, "set: array of shape %s into tensor of shape %s", a.Shape(), t.shape)
	}
	if err := t.ctx.dev.Write(t.buf, a.Bytes()); err != nil {
		return err
	}
	if !t.slot.reset() {
		klog.V(1).Infof("set: tensor %s of %s overwritten while an operation is still pending", t.shape, t.ctx)
	}
	return nil
}

// Wait blocks until the pending operation on the tensor, if any, completed.
// It returns the execution error of that operation, or of any operation it depended on.
func (t *Tensor[T]) Wait() error {
	if err := t.checkAlive(); err != nil {
		return err
	}
	return t.slot.wait()
}

// Download waits for the pending operation and copies the tensor into a new host array.
func (t *Tensor[T]) Download() (*array.Array[T], error) {
	a, err := array.Zeros[T](t.shape)
	if err != nil {
		return nil, err
	}
	if err := t.Read(a); err != nil {
		return nil, err
	}
	return a, nil
}

// Read waits for the pending operation and copies the tensor into dst, which must have the
// tensor's shape.
func (t *Tensor[T]) Read(dst *array.Array[T]) error {
	if !dst.Shape().Equal(t.shape) {
		return errors.Wrapf(errs.ErrShapeMismatch, "read: tensor of shape %s into array of shape %s", t.shape, dst.Shape())
	}
	if err := t.Wait(); err != nil {
		return err
	}
	return t.ctx.dev.Read(t.buf, dst.Bytes(), nil)
}

// DownloadContext is Download bounded by ctx. Cancellation only stops the host-side wait:
// the pending operation keeps running on the device.
func (t *Tensor[T]) DownloadContext(ctx context.Context) (*array.Array[T], error) {
	if err := t.checkAlive(); err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() { done <- t.slot.wait() }()
	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
		return t.Download()
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "download of tensor %s", t.shape)
	}
}

// DownloadWithTimeout is Download with a host-side timeout, see DownloadContext.
func (t *Tensor[T]) DownloadWithTimeout(timeout time.Duration) (*array.Array[T], error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return t.DownloadContext(ctx)
}

// Release frees the device buffer.
//
// It fails with errs.ErrPendingEvent, keeping the buffer, if an operation using the tensor
// is still running and was never waited on. A completed operation whose failure was never
// observed is reported by the returned error, after the buffer is freed.
func (t *Tensor[T]) Release() error {
	if t.released.Load() {
		return errors.Wrapf(errs.ErrReleased, "tensor %s", t.shape)
	}
	var unobserved error
	if p := t.slot.unobserved(); p != nil {
		if !p.event.Done() {
			return errors.Wrapf(errs.ErrPendingEvent, "release of tensor %s: call Wait or Download first", t.shape)
		}
		unobserved = p.event.Wait()
	}
	if t.released.Swap(true) {
		return errors.Wrapf(errs.ErrReleased, "tensor %s", t.shape)
	}
	runtime.SetFinalizer(t, nil)
	if err := t.buf.Release(); err != nil {
		return err
	}
	if unobserved != nil {
		return errors.WithMessagef(unobserved, "release of tensor %s: unobserved failure", t.shape)
	}
	return nil
}
