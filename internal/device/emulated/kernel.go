package emulated

import (
	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/dtype"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/born-ml/gpuarray/internal/kernels"
	"github.com/born-ml/gpuarray/internal/parallel"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// binder binds the arguments of a launch and returns the body of one work-item.
type binder func(args device.Args, global device.Geometry) func(x, y, z int)

// runner executes a whole launch.
type runner func(args device.Args, global device.Geometry, par parallel.Config) error

type kernel struct {
	name string
	run  runner
}

// Name implements device.Kernel.
func (k *kernel) Name() string { return k.name }

// String implements fmt.Stringer.
func (k *kernel) String() string { return k.name }

// execute runs the kernel, reporting argument errors and work-item panics as errs.ErrDeviceExecution.
func (k *kernel) execute(args device.Args, global device.Geometry, par parallel.Config) error {
	var runErr error
	err := exceptions.TryCatch[error](func() {
		runErr = k.run(args, global, par)
	})
	if err == nil {
		err = runErr
	}
	if err != nil {
		return errors.Wrapf(errs.ErrDeviceExecution, "%s: %v", k.name, err)
	}
	return nil
}

func run(bind binder) runner {
	return func(args device.Args, global device.Geometry, par parallel.Config) error {
		return parallel.ForGrid(global, bind(args, global), par)
	}
}

type opKey struct {
	op    kernels.Op
	slice bool
}

// buildKernels instantiates every table entry for the element types the emulated device supports.
func buildKernels() map[string]*kernel {
	byType := map[dtype.ElementType]map[opKey]binder{
		dtype.Float32: merge(numberBinders[float32](), floatBinders[float32]()),
		dtype.Float64: merge(numberBinders[float64](), floatBinders[float64]()),
		dtype.Int32:   numberBinders[int32](),
		dtype.Int64:   numberBinders[int64](),
	}
	ks := make(map[string]*kernel)
	for _, e := range kernels.Table {
		key := opKey{e.Op, e.Slice}
		for _, et := range e.Types {
			name := e.Name(et)
			if et == dtype.Float16 {
				if bind, ok := byType[dtype.Float32][key]; ok {
					ks[name] = &kernel{name: name, run: widened(run(bind), e.Output)}
				}
				continue
			}
			if bind, ok := byType[et][key]; ok {
				ks[name] = &kernel{name: name, run: run(bind)}
			}
		}
	}
	return ks
}

func merge(maps ...map[opKey]binder) map[opKey]binder {
	merged := make(map[opKey]binder)
	for _, m := range maps {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}
