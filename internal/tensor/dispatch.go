package tensor

import (
	"slices"

	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/dtype"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/born-ml/gpuarray/internal/kernels"
	"github.com/born-ml/gpuarray/internal/shape"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// operand is a tensor or a view as seen by the dispatcher.
type operand struct {
	ctx      *Context
	buf      device.Buffer
	mode     device.AccessMode
	slot     *eventSlot
	shape    shape.Shape
	strides  []int
	offsets  []int
	extent   shape.Shape
	released bool
}

func (t *Tensor[T]) operand() operand {
	return operand{
		ctx:      t.ctx,
		buf:      t.buf,
		mode:     t.mode,
		slot:     t.slot,
		shape:    t.shape,
		strides:  t.strides,
		offsets:  make([]int, len(t.shape)),
		extent:   t.shape,
		released: t.released.Load(),
	}
}

func (v *View[T]) operand() operand {
	op := v.tensor.operand()
	op.offsets = v.offsets
	op.extent = v.extent
	return op
}

// packed returns the strides and offsets of the operand as kernel vectors.
func (o operand) packed() (strides, offsets shape.Vector, err error) {
	if strides, err = shape.PackStrides(o.strides); err != nil {
		return
	}
	offsets, err = shape.PackRightAligned(o.offsets, 0)
	return
}

// launch is one operation ready to be dispatched.
type launch struct {
	op     kernels.Op
	slice  bool
	et     dtype.ElementType
	inputs []operand
	output operand
	args   device.Args
	global device.Geometry
}

// dispatch enqueues l and installs its event on every operand.
//
// Every check happens before the enqueue, so a failed dispatch leaves all event slots untouched.
// The wait-list holds the pending event of every distinct operand, output included: a tensor
// that is both input and output is waited on once.
func dispatch(l launch) error {
	ctx := l.output.ctx
	name := kernels.Name(l.op, l.slice, l.et)
	if err := ctx.checkAlive(); err != nil {
		return errors.WithMessage(err, name)
	}
	for _, in := range l.inputs {
		if err := checkOperand(ctx, name, in); err != nil {
			return err
		}
		if !in.mode.KernelReadable() {
			return errors.Wrapf(errs.ErrAccessMode, "%s: input tensor %s is %s", name, in.shape, in.mode)
		}
	}
	if err := checkOperand(ctx, name, l.output); err != nil {
		return err
	}
	if !l.output.mode.KernelWritable() {
		return errors.Wrapf(errs.ErrAccessMode, "%s: output tensor %s is %s", name, l.output.shape, l.output.mode)
	}

	kernel, err := ctx.registry.Lookup(l.op, l.slice, l.et)
	if err != nil {
		return err
	}

	var (
		waitList []device.Event
		slots    = make([]*eventSlot, 0, len(l.inputs)+1)
	)
	operands := append(l.inputs[:len(l.inputs):len(l.inputs)], l.output)
	for _, o := range operands {
		if slices.Contains(slots, o.slot) {
			continue
		}
		slots = append(slots, o.slot)
		if p := o.slot.load(); p != nil {
			waitList = append(waitList, p.event)
		}
	}

	ev, err := ctx.dev.Enqueue(device.Launch{
		Kernel:   kernel,
		Args:     l.args,
		Global:   l.global,
		WaitList: waitList,
	})
	if err != nil {
		return errors.WithMessagef(err, "enqueue %s", name)
	}
	// Inputs get the event too: a later write to an input must wait for this read.
	p := &pendingEvent{event: ev}
	for _, slot := range slots {
		slot.install(p)
	}
	klog.V(2).Infof("%s: enqueued %s, geometry %s, waiting on %d events", ctx.label, name, l.global, len(waitList))
	return nil
}

func checkOperand(ctx *Context, name string, o operand) error {
	if o.ctx != ctx {
		return errors.Wrapf(errs.ErrForeignTensor, "%s: tensor %s belongs to %s, not %s", name, o.shape, o.ctx, ctx)
	}
	if o.released {
		return errors.Wrapf(errs.ErrReleased, "%s: tensor %s", name, o.shape)
	}
	return nil
}

// geometryOf maps one work-item per element of s onto the three launch axes.
// Ranks above 3 fold their leading axes into the first launch axis.
func geometryOf(s shape.Shape) device.Geometry {
	switch len(s) {
	case 1:
		return device.Geometry{s[0], 1, 1}
	case 2:
		return device.Geometry{s[0], s[1], 1}
	}
	outer := 1
	for _, d := range s[:len(s)-2] {
		outer *= d
	}
	return device.Geometry{outer, s[len(s)-2], s[len(s)-1]}
}

// sliceGeometry maps one work-item per element of a packed extent onto the launch axes,
// folding the two outermost lanes into the first one.
func sliceGeometry(extent shape.Vector) device.Geometry {
	return device.Geometry{int(extent[0] * extent[1]), int(extent[2]), int(extent[3])}
}
