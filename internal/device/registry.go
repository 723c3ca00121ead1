package device

import (
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Constructor takes a config string (optionally empty) and returns a Device.
type Constructor func(config string) (Device, error)

var (
	registryMu             sync.RWMutex
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register a device with the given name, and a constructor that takes as input a configuration
// string that is passed along to the device.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// Registered returns the sorted names of the registered devices.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registeredNames()
}

func registeredNames() []string {
	names := make([]string, 0, len(registeredConstructors))
	for name := range registeredConstructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultConfig is the device configuration used by New when GPUARRAY_DEVICE is not set.
// If it is empty, the first registered device is used.
//
// See NewWithConfig for the format of the configuration string.
var DefaultConfig = "webgpu"

// GPUARRAY_DEVICE is the environment variable with the default device configuration to use.
//
// The format of config is "<device_name>:<device_configuration>".
// The "<device_name>" is the name of a registered device (e.g.: "webgpu") and
// "<device_configuration>" is device specific (e.g.: "workers=4,jitter=1ms" for "emulated").
const GPUARRAY_DEVICE = "GPUARRAY_DEVICE"

// New returns a new default Device.
//
// The default is:
//
// 1. The environment GPUARRAY_DEVICE is used as a configuration if defined.
// 2. Next the variable DefaultConfig is used as a configuration if defined.
// 3. The first registered device is used with an empty configuration.
func New() (Device, error) {
	if config, found := os.LookupEnv(GPUARRAY_DEVICE); found {
		return NewWithConfig(config)
	}
	return NewWithConfig(DefaultConfig)
}

// NewWithConfig takes a configuration string formatted as "<device_name>:<device_configuration>".
// A config without ":" is taken as a device name with an empty configuration.
func NewWithConfig(config string) (Device, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if len(registeredConstructors) == 0 {
		return nil, errors.Wrap(errs.ErrDeviceAllocation,
			`no registered devices -- maybe import _ "github.com/born-ml/gpuarray/device/default"?`)
	}
	name, devConfig := config, ""
	if idx := strings.Index(config, ":"); idx != -1 {
		name, devConfig = config[:idx], config[idx+1:]
	}
	if name == "" {
		name = firstRegistered
	}
	constructor, found := registeredConstructors[name]
	if !found {
		return nil, errors.Wrapf(errs.ErrDeviceAllocation, "can't find device %q for configuration %q, registered: %v",
			name, config, registeredNames())
	}
	dev, err := constructor(devConfig)
	if err != nil {
		return nil, errors.WithMessagef(err, "creating device %q", name)
	}
	klog.V(1).Infof("device %q created: %s", name, dev.Description())
	return dev, nil
}
