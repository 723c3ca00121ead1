// Package tensor implements device-resident tensors, borrowing views into them, and the
// operation dispatcher that enqueues kernels against them.
//
// Every operation returns as soon as its kernel is enqueued. Ordering between operations is
// carried by a single pending-event slot per tensor: an operation waits on the pending event of
// each tensor it reads or writes, and installs its own event on all of them. Operations touching
// the same tensor therefore run in dispatch order. Only Download, Read, Wait and the
// Context.Finish drain block the calling goroutine.
//
// Views share the event slot of their tensor, so ordering is tracked per tensor, never per
// region: two operations through views on disjoint regions of one tensor are still ordered.
package tensor

import (
	"fmt"
	"sync/atomic"

	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/born-ml/gpuarray/internal/kernels"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Config of a Context.
type Config struct {
	// Device configuration, "<device_name>:<device_configuration>".
	// Empty selects the default device, see device.New.
	Device string
	// Label names the context in logs. Defaults to its ID.
	Label string
}

// DefaultConfig returns the configuration of the default device.
func DefaultConfig() Config {
	return Config{}
}

// Context owns a device and the kernel registry built for it.
// Tensors are allocated on one context and can only be combined with tensors of the same context.
type Context struct {
	id       uuid.UUID
	label    string
	dev      device.Device
	registry *kernels.Registry
	released atomic.Bool
}

// NewContext creates the device described by cfg and a context over it.
func NewContext(cfg Config) (*Context, error) {
	var (
		dev device.Device
		err error
	)
	if cfg.Device == "" {
		dev, err = device.New()
	} else {
		dev, err = device.NewWithConfig(cfg.Device)
	}
	if err != nil {
		return nil, err
	}
	ctx := NewContextWithDevice(dev)
	if cfg.Label != "" {
		ctx.label = cfg.Label
	}
	return ctx, nil
}

// NewContextWithDevice creates a context over an existing device. The context takes ownership
// of the device and releases it on Release.
func NewContextWithDevice(dev device.Device) *Context {
	id := uuid.New()
	ctx := &Context{
		id:       id,
		label:    id.String(),
		dev:      dev,
		registry: kernels.Build(dev),
	}
	klog.V(1).Infof("context %s on %s: %d kernels", ctx.label, dev.Description(), ctx.registry.Len())
	return ctx
}

// ID returns the unique identifier of the context.
func (c *Context) ID() uuid.UUID { return c.id }

// Device returns the device of the context.
func (c *Context) Device() device.Device { return c.dev }

// Kernels returns the kernel registry of the context.
func (c *Context) Kernels() *kernels.Registry { return c.registry }

// MemoryStats returns the memory statistics of the device.
func (c *Context) MemoryStats() device.MemoryStats { return c.dev.MemoryStats() }

// String implements fmt.Stringer.
func (c *Context) String() string {
	return fmt.Sprintf("Context(%s, %s)", c.label, c.dev.Name())
}

// Finish blocks until every operation enqueued on the context completed.
// Failures of individual operations are reported by waiting on their tensors, not here.
func (c *Context) Finish() error {
	if c.released.Load() {
		return errors.Wrapf(errs.ErrReleased, "context %s", c.label)
	}
	return c.dev.Finish()
}

// Release waits for in-flight operations and releases the device.
// Tensors of the context can't be used afterwards.
func (c *Context) Release() error {
	if c.released.Swap(true) {
		return nil
	}
	klog.V(1).Infof("context %s released: %s", c.label, c.dev.MemoryStats())
	return c.dev.Release()
}

func (c *Context) checkAlive() error {
	if c.released.Load() {
		return errors.Wrapf(errs.ErrReleased, "context %s", c.label)
	}
	return nil
}
