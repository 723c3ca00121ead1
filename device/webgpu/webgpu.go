//go:build windows

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package webgpu

import (
	"github.com/born-ml/gpuarray/internal/device"
	internalwebgpu "github.com/born-ml/gpuarray/internal/device/webgpu"
)

// Device is the WebGPU device.
type Device = internalwebgpu.Device

// Config of the WebGPU device.
type Config = internalwebgpu.Config

// Compile-time check that Device implements device.Device.
var _ device.Device = (*Device)(nil)

// New creates a WebGPU device.
//
// Returns an error if WebGPU initialization fails (e.g., no compatible GPU).
// Call Release when done to free GPU resources.
func New(cfg Config) (*Device, error) {
	return internalwebgpu.New(cfg)
}
