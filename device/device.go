// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package device defines the compute device API and the registry of device implementations.
//
// Devices register themselves at init time. Import the ones you need, or all of them with:
//
//	import _ "github.com/born-ml/gpuarray/device/default"
//
// Then select one by name, optionally followed by its configuration:
//
//	dev, err := device.NewWithConfig("emulated:workers=4,jitter=1ms")
//
// New picks the device named by the GPUARRAY_DEVICE environment variable, falling back to
// "webgpu".
package device

import (
	"github.com/born-ml/gpuarray/internal/device"
)

// Device is the API implemented by a compute device.
type Device = device.Device

// Buffer is a region of device memory.
type Buffer = device.Buffer

// Event signals the completion of an enqueued launch.
type Event = device.Event

// Kernel is a compiled device function.
type Kernel = device.Kernel

// Launch describes one kernel execution.
type Launch = device.Launch

// Args are the arguments of a launch: buffers, scalars and packed vectors.
type Args = device.Args

// Geometry is the number of work-items along each launch axis.
type Geometry = device.Geometry

// MemoryStats reports the memory used by a device.
type MemoryStats = device.MemoryStats

// Constructor creates a device from its configuration string.
type Constructor = device.Constructor

// AccessMode restricts how kernels may use a buffer.
type AccessMode = device.AccessMode

// Access modes.
const (
	ReadOnly  AccessMode = device.ReadOnly
	WriteOnly AccessMode = device.WriteOnly
	ReadWrite AccessMode = device.ReadWrite
)

// Register a device constructor under name. It is usually called from an init function.
func Register(name string, constructor Constructor) {
	device.Register(name, constructor)
}

// Registered returns the names of the registered devices.
func Registered() []string {
	return device.Registered()
}

// New creates the default device, see the package documentation.
func New() (Device, error) {
	return device.New()
}

// NewWithConfig creates a device from a "<name>:<configuration>" string.
func NewWithConfig(config string) (Device, error) {
	return device.NewWithConfig(config)
}
