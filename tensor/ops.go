// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/gpuarray/internal/tensor"

// Operations on whole tensors. All of them return once the kernel is enqueued.

// CopyTo copies src into dst, which must hold the same number of elements.
func CopyTo[T Num](src, dst *Tensor[T]) error {
	return tensor.CopyTo(src, dst)
}

// Fill sets every element of dst to value.
func Fill[T Num](dst *Tensor[T], value T) error {
	return tensor.Fill(dst, value)
}

// Sum reduces a rank-2 tensor along axis 0 into out of shape [1, C], or along axis 1 into out of shape [R, 1].
func Sum[T Num](a *Tensor[T], axis int, out *Tensor[T]) error {
	return tensor.Sum(a, axis, out)
}

// Add computes out = a + b. With BroadcastRows b has shape [1, C], with BroadcastCols [R, 1].
//
// Example:
//
//	_ = tensor.Add(a, tensor.Elementwise, b, a) // a += b
func Add[T Num](a *Tensor[T], axis Axis, b, out *Tensor[T]) error {
	return tensor.Add(a, axis, b, out)
}

// Sub computes out = a - b for tensors of identical shapes.
func Sub[T Num](a, b, out *Tensor[T]) error {
	return tensor.Sub(a, b, out)
}

// Multiply computes the elementwise product out = a * b, broadcasting b as Add does.
func Multiply[T Num](a *Tensor[T], axis Axis, b, out *Tensor[T]) error {
	return tensor.Multiply(a, axis, b, out)
}

// Transpose writes the transpose of the rank-2 tensor a into out.
func Transpose[T Num](a, out *Tensor[T]) error {
	return tensor.Transpose(a, out)
}

// Matmul computes the matrix product out = a × b of rank-2 tensors.
func Matmul[T Num](a, b, out *Tensor[T]) error {
	return tensor.Matmul(a, b, out)
}

// Max computes out = max(a, threshold).
func Max[T Num](a *Tensor[T], threshold T, out *Tensor[T]) error {
	return tensor.Max(a, threshold, out)
}

// Min computes out = min(a, threshold).
func Min[T Num](a *Tensor[T], threshold T, out *Tensor[T]) error {
	return tensor.Min(a, threshold, out)
}

// DMax computes the derivative of Max: 1 where a > threshold, else 0.
func DMax[T Num](a *Tensor[T], threshold T, out *Tensor[T]) error {
	return tensor.DMax(a, threshold, out)
}

// DMin computes the derivative of Min: 1 where a < threshold, else 0.
func DMin[T Num](a *Tensor[T], threshold T, out *Tensor[T]) error {
	return tensor.DMin(a, threshold, out)
}

// MSE computes the per-column mean squared error of a against target into out of shape [1, C].
func MSE[T Num](a, target, out *Tensor[T]) error {
	return tensor.MSE(a, target, out)
}

// DMSE computes the derivative of MSE with respect to a.
func DMSE[T Num](a, target, out *Tensor[T]) error {
	return tensor.DMSE(a, target, out)
}

// Tanh computes the hyperbolic tangent.
func Tanh[T Num](a, out *Tensor[T]) error {
	return tensor.Tanh(a, out)
}

// DTanh computes the derivative of Tanh.
func DTanh[T Num](a, out *Tensor[T]) error {
	return tensor.DTanh(a, out)
}

// Sigmoid computes the logistic function.
func Sigmoid[T Num](a, out *Tensor[T]) error {
	return tensor.Sigmoid(a, out)
}

// DSigmoid computes the derivative of Sigmoid.
func DSigmoid[T Num](a, out *Tensor[T]) error {
	return tensor.DSigmoid(a, out)
}

// Log computes the natural logarithm.
func Log[T Num](a, out *Tensor[T]) error {
	return tensor.Log(a, out)
}

// Exp computes the exponential.
func Exp[T Num](a, out *Tensor[T]) error {
	return tensor.Exp(a, out)
}
