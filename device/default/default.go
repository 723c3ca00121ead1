// Package _default registers all the devices: WebGPU and the emulated CPU device.
//
// To use it simply include:
//
//	import _ "github.com/born-ml/gpuarray/device/default"
package _default

import (
	_ "github.com/born-ml/gpuarray/device/emulated"
	_ "github.com/born-ml/gpuarray/device/webgpu"
)
