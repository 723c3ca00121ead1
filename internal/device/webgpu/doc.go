// Package webgpu implements a device over WebGPU, using go-webgpu (github.com/go-webgpu/webgpu)
// for zero-CGO bindings.
//
// Kernels are WGSL compute shaders generated from templates for float32 and int32; every other
// element type fails with errs.ErrUnsupportedType when a kernel is requested. Launches are
// submitted to the single in-order device queue, and each launch is followed by a small fence
// copy whose mapping signals its completion. A background loop maps fences in submission order,
// so every launch frees its resources and reports Done without a host Wait.
//
// The device registers itself as "webgpu". It is only built on windows, where wgpu_native is
// shipped; on other platforms the registered constructor reports that WebGPU is unavailable.
package webgpu
