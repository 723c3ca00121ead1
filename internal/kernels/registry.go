package kernels

import (
	"slices"

	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/dtype"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Registry maps kernel names to the compiled kernels of one device.
// It is built once and is read-only afterwards.
type Registry struct {
	device  string
	kernels map[string]device.Kernel
}

// Build resolves every table entry the device provides.
// Missing pairs are not an error here: they fail with errs.ErrUnsupportedType on Lookup.
func Build(dev device.Device) *Registry {
	r := &Registry{
		device:  dev.Name(),
		kernels: make(map[string]device.Kernel),
	}
	for _, e := range Table {
		for _, et := range e.Types {
			name := e.Name(et)
			if k, ok := dev.Kernel(name); ok {
				r.kernels[name] = k
			}
		}
	}
	klog.V(1).Infof("kernel registry for %q: %d kernels", r.device, len(r.kernels))
	return r
}

// Lookup returns the kernel for an operation and element type.
func (r *Registry) Lookup(op Op, slice bool, et dtype.ElementType) (device.Kernel, error) {
	name := Name(op, slice, et)
	k, ok := r.kernels[name]
	if !ok {
		return nil, errors.Wrapf(errs.ErrUnsupportedType, "device %q has no kernel %q", r.device, name)
	}
	return k, nil
}

// Len returns the number of kernels in the registry.
func (r *Registry) Len() int { return len(r.kernels) }

// Names returns the sorted kernel names in the registry.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.kernels))
	for name := range r.kernels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
