//go:build !windows

package webgpu

import (
	"runtime"

	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/pkg/errors"
)

func init() {
	device.Register(DeviceName, func(config string) (device.Device, error) {
		if _, err := ParseConfig(config); err != nil {
			return nil, err
		}
		return nil, errors.Wrapf(errs.ErrDeviceAllocation,
			"webgpu is not available on %s, try GPUARRAY_DEVICE=emulated", runtime.GOOS)
	})
}

// IsAvailable reports whether WebGPU is available on this system.
func IsAvailable() bool { return false }
