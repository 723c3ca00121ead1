package webgpu

import (
	"strings"

	"github.com/pkg/errors"
)

// DeviceName is the name the device registers with.
const DeviceName = "webgpu"

// Config of the WebGPU device.
type Config struct {
	// LowPower requests the low-power adapter instead of the high-performance one.
	LowPower bool
}

// ParseConfig parses "", "high-performance" or "low-power".
func ParseConfig(config string) (Config, error) {
	switch strings.TrimSpace(config) {
	case "", "high-performance":
		return Config{}, nil
	case "low-power":
		return Config{LowPower: true}, nil
	default:
		return Config{}, errors.Errorf("webgpu device: unknown configuration %q", config)
	}
}
