// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU device for GPU-accelerated tensor operations.
//
// WebGPU is a cross-platform graphics and compute API that works on:
//   - Windows (via wgpu-native/D3D12)
//   - macOS (via Metal)
//   - Linux (via Vulkan)
//
// Kernels are WGSL compute shaders generated for each operation and element type, compiled
// the first time they are used. The device is registered as "webgpu"; on systems where WebGPU
// can't be initialized, creating it fails with ErrDeviceAllocation.
//
// Example:
//
//	if webgpu.IsAvailable() {
//	    ctx, err = tensor.NewContext(tensor.Config{Device: "webgpu"})
//	} else {
//	    ctx, err = tensor.NewContext(tensor.Config{Device: "emulated"})
//	}
package webgpu

import (
	internalwebgpu "github.com/born-ml/gpuarray/internal/device/webgpu"
)

// IsAvailable checks if WebGPU is available on the current system.
//
// This function attempts to initialize a WebGPU adapter to verify
// that a compatible GPU and drivers are present.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
