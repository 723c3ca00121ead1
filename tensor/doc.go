// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides device-resident tensors, views into them, and the operations that
// run on them as GPU kernels.
//
// # Overview
//
// A Context owns one compute device and the kernels compiled for it. Tensors are allocated on
// a context and live in device memory until they are released:
//   - Tensor[T]: a row-major n-dimensional array in device memory
//   - View[T]: a rectangular window into a tensor, selected with one Range per axis
//   - Array[T]: the host-side counterpart used to upload and download data
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/gpuarray/device"
//	    "github.com/born-ml/gpuarray/tensor"
//	)
//
//	func main() {
//	    ctx, err := tensor.NewContext(tensor.Config{Device: "emulated"})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer ctx.Release()
//
//	    a, _ := tensor.FromSlice(ctx, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6}, device.ReadOnly)
//	    b, _ := tensor.New[float32](ctx, tensor.Shape{3, 2}, device.ReadWrite)
//	    _ = tensor.Transpose(a, b)
//	    result, _ := b.Download()
//	}
//
// # Supported Data Types
//
// float32, float64, int32, int64 and float16.Float16. Transcendental operations (tanh, sigmoid,
// log, exp, the thresholds and the MSE loss) are only provided for the floating point types and
// fail with ErrUnsupportedType otherwise.
//
// # Asynchronous Execution
//
// Operations return as soon as their kernel is enqueued. Each tensor tracks the last operation
// that read or wrote it, and every operation waits for that pending operation on all its operands
// before it starts, so a sequence of operations issued from one goroutine behaves as if it ran in
// program order. Download, Read and Wait block until the tensor's pending operation completed,
// and report its failure if any.
//
// Views share their tensor's ordering: operations on disjoint views of the same tensor are
// serialized.
//
// # Memory Management
//
// Release frees a tensor's device memory. It refuses with ErrPendingEvent while an operation
// using the tensor is still running and was never waited on. Tensors that become unreachable
// are released by a finalizer, which logs an error if they still had a pending operation.
package tensor
