// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package emulated provides a device that runs kernels on the CPU.
//
// # Overview
//
// The emulated device implements every kernel of the GPU devices in pure Go:
//   - Launches run asynchronously, each one after its wait-list completed
//   - Work-items of a launch are split across goroutines
//   - An optional random delay before each launch exposes missing ordering
//   - float16 kernels compute in float32
//
// It is registered as "emulated". Options are given as comma-separated key=value pairs:
//
//	ctx, err := tensor.NewContext(tensor.Config{Device: "emulated:workers=4,jitter=1ms,seed=7,maxbytes=64MiB"})
package emulated

import (
	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/device/emulated"
)

// Device is the emulated device.
type Device = emulated.Device

// Config of the emulated device.
type Config = emulated.Config

// Compile-time check that Device implements device.Device.
var _ device.Device = (*Device)(nil)

// New creates an emulated device.
//
// Example:
//
//	dev := emulated.New(emulated.Config{Workers: 4})
//	ctx := tensor.NewContextWithDevice(dev)
func New(cfg Config) *Device {
	return emulated.New(cfg)
}

// DefaultConfig uses one worker per CPU and no jitter.
func DefaultConfig() Config {
	return emulated.DefaultConfig()
}

// ParseConfig parses the configuration string of the device.
func ParseConfig(config string) (Config, error) {
	return emulated.ParseConfig(config)
}
