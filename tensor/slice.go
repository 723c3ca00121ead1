// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/gpuarray/internal/tensor"

// Operations on views. Views of different ranks combine when their extents match after
// dropping leading axes of length 1. Views are limited to rank 4.

// CopyToSlice copies the elements of src into dst. Extents must match once right-aligned.
func CopyToSlice[T Num](src, dst *View[T]) error {
	return tensor.CopyToSlice(src, dst)
}

// FillSlice sets every element of dst to value.
func FillSlice[T Num](dst *View[T], value T) error {
	return tensor.FillSlice(dst, value)
}

// AddSlice computes out = a + b over views.
//
// Example:
//
//	av, _ := a.Slice(tensor.Index(0), tensor.Span(1, 3))
//	bv, _ := b.Slice(tensor.Span(1, 3), tensor.Index(3))
//	_ = tensor.AddSlice(av, bv, bv)
func AddSlice[T Num](a, b, out *View[T]) error {
	return tensor.AddSlice(a, b, out)
}

// SubSlice computes out = a - b over views.
func SubSlice[T Num](a, b, out *View[T]) error {
	return tensor.SubSlice(a, b, out)
}

// MultiplySlice computes out = a * b over views.
func MultiplySlice[T Num](a, b, out *View[T]) error {
	return tensor.MultiplySlice(a, b, out)
}

// MaxSlice is Max over views.
func MaxSlice[T Num](a *View[T], threshold T, out *View[T]) error {
	return tensor.MaxSlice(a, threshold, out)
}

// MinSlice is Min over views.
func MinSlice[T Num](a *View[T], threshold T, out *View[T]) error {
	return tensor.MinSlice(a, threshold, out)
}

// DMaxSlice is DMax over views.
func DMaxSlice[T Num](a *View[T], threshold T, out *View[T]) error {
	return tensor.DMaxSlice(a, threshold, out)
}

// DMinSlice is DMin over views.
func DMinSlice[T Num](a *View[T], threshold T, out *View[T]) error {
	return tensor.DMinSlice(a, threshold, out)
}

// TanhSlice is Tanh over views.
func TanhSlice[T Num](a, out *View[T]) error {
	return tensor.TanhSlice(a, out)
}

// DTanhSlice is DTanh over views.
func DTanhSlice[T Num](a, out *View[T]) error {
	return tensor.DTanhSlice(a, out)
}

// SigmoidSlice is Sigmoid over views.
func SigmoidSlice[T Num](a, out *View[T]) error {
	return tensor.SigmoidSlice(a, out)
}

// DSigmoidSlice is DSigmoid over views.
func DSigmoidSlice[T Num](a, out *View[T]) error {
	return tensor.DSigmoidSlice(a, out)
}

// LogSlice is Log over views.
func LogSlice[T Num](a, out *View[T]) error {
	return tensor.LogSlice(a, out)
}

// ExpSlice is Exp over views.
func ExpSlice[T Num](a, out *View[T]) error {
	return tensor.ExpSlice(a, out)
}
