package tensor

import (
	"math"
	"testing"

	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/born-ml/gpuarray/internal/shape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestAdd(t *testing.T) {
	ctx := newTestContext(t)
	s := shape.Shape{5, 10000}
	a := upload(t, ctx, s, iota[int32](s.NumElements(), 1), device.ReadOnly)
	b := upload(t, ctx, s, iota[int32](s.NumElements(), 2), device.ReadOnly)
	c, err := New[int32](ctx, s, device.WriteOnly)
	require.NoError(t, err)

	require.NoError(t, Add(a, Elementwise, b, c))
	assert.Equal(t, iota[int32](s.NumElements(), 3), download(t, c))
}

func TestAddInPlace(t *testing.T) {
	ctx := newTestContext(t)
	s := shape.Shape{1, 10000}
	a := upload(t, ctx, s, iota[float32](s.NumElements(), 1), device.ReadOnly)
	b := upload(t, ctx, s, iota[float32](s.NumElements(), 2), device.ReadWrite)

	require.NoError(t, Add(a, Elementwise, b, b))
	assert.Equal(t, iota[float32](s.NumElements(), 3), download(t, b))
}

func TestAddBroadcastRows(t *testing.T) {
	ctx := newTestContext(t)
	a := upload(t, ctx, shape.Shape{5, 3}, iota[int32](15, 1), device.ReadWrite)
	b := upload(t, ctx, shape.Shape{1, 3}, iota[int32](3, 1), device.ReadOnly)

	require.NoError(t, Add(a, BroadcastRows, b, a))
	assert.Equal(t, []int32{
		0, 2, 4,
		3, 5, 7,
		6, 8, 10,
		9, 11, 13,
		12, 14, 16,
	}, download(t, a))
}

func TestMultiplyBroadcastCols(t *testing.T) {
	ctx := newTestContext(t)
	a := upload(t, ctx, shape.Shape{3, 5}, iota[int32](15, 1), device.ReadWrite)
	b := upload(t, ctx, shape.Shape{3, 1}, iota[int32](3, 1), device.ReadOnly)

	require.NoError(t, Multiply(a, BroadcastCols, b, a))
	assert.Equal(t, []int32{
		0, 0, 0, 0, 0,
		5, 6, 7, 8, 9,
		20, 22, 24, 26, 28,
	}, download(t, a))
}

func TestSub(t *testing.T) {
	ctx := newTestContext(t)
	a := upload(t, ctx, shape.Shape{2, 3}, []float64{1, 2, 3, 4, 5, 6}, device.ReadOnly)
	b := upload(t, ctx, shape.Shape{2, 3}, []float64{6, 5, 4, 3, 2, 1}, device.ReadOnly)
	c := zeros[float64](t, ctx, shape.Shape{2, 3})

	require.NoError(t, Sub(a, b, c))
	assert.Equal(t, []float64{-5, -3, -1, 1, 3, 5}, download(t, c))
}

func TestBinaryShapeErrors(t *testing.T) {
	ctx := newTestContext(t)
	a := zeros[int32](t, ctx, shape.Shape{5, 3})
	row := zeros[int32](t, ctx, shape.Shape{1, 3})
	col := zeros[int32](t, ctx, shape.Shape{5, 1})
	other := zeros[int32](t, ctx, shape.Shape{3, 5})
	cube := zeros[int32](t, ctx, shape.Shape{2, 2, 2})

	assert.ErrorIs(t, Add(a, Elementwise, other, a), errs.ErrShapeMismatch)
	assert.ErrorIs(t, Add(a, BroadcastRows, col, a), errs.ErrShapeMismatch)
	assert.ErrorIs(t, Multiply(a, BroadcastCols, row, a), errs.ErrShapeMismatch)
	assert.ErrorIs(t, Add(a, BroadcastRows, row, other), errs.ErrShapeMismatch)
	assert.ErrorIs(t, Add(cube, BroadcastRows, row, cube), errs.ErrShapeMismatch)
	assert.ErrorIs(t, Sub(a, other, a), errs.ErrShapeMismatch)
	assert.ErrorIs(t, Add(a, Axis(2), row, a), errs.ErrInvalidAxis)
	assert.ErrorIs(t, Sum(a, 2, row), errs.ErrInvalidAxis)
	assert.ErrorIs(t, Sum(a, 0, col), errs.ErrShapeMismatch)
	assert.ErrorIs(t, Matmul(a, a, other), errs.ErrShapeMismatch)
	assert.ErrorIs(t, Transpose(a, a), errs.ErrShapeMismatch)
	assert.ErrorIs(t, CopyTo(a, row), errs.ErrShapeMismatch)

	// Nothing was enqueued.
	assert.Nil(t, a.slot.load())
	assert.Equal(t, "Axis(2)", Axis(2).String())
}

func TestMatmul(t *testing.T) {
	ctx := newTestContext(t)
	a := upload(t, ctx, shape.Shape{3, 5}, iota[int32](15, 1), device.ReadWrite)
	b := upload(t, ctx, shape.Shape{5, 2}, iota[int32](10, 1), device.ReadOnly)
	c := zeros[int32](t, ctx, shape.Shape{3, 2})

	require.NoError(t, Matmul(a, b, c))
	assert.Equal(t, []int32{60, 70, 160, 195, 260, 320}, download(t, c))
}

func TestTranspose(t *testing.T) {
	ctx := newTestContext(t)
	a := upload(t, ctx, shape.Shape{5, 3}, iota[int32](15, 1), device.ReadOnly)
	b := zeros[int32](t, ctx, shape.Shape{3, 5})

	require.NoError(t, Transpose(a, b))
	assert.Equal(t, []int32{0, 3, 6, 9, 12, 1, 4, 7, 10, 13, 2, 5, 8, 11, 14}, download(t, b))
}

func TestSum(t *testing.T) {
	ctx := newTestContext(t)
	a := upload(t, ctx, shape.Shape{5, 3}, iota[int32](15, 1), device.ReadOnly)

	rows := zeros[int32](t, ctx, shape.Shape{1, 3})
	require.NoError(t, Sum(a, 0, rows))
	assert.Equal(t, []int32{30, 35, 40}, download(t, rows))

	cols := zeros[int32](t, ctx, shape.Shape{5, 1})
	require.NoError(t, Sum(a, 1, cols))
	assert.Equal(t, []int32{3, 12, 21, 30, 39}, download(t, cols))
}

func TestFillAndCopyTo(t *testing.T) {
	ctx := newTestContext(t)
	a := zeros[int64](t, ctx, shape.Shape{3, 4})
	require.NoError(t, Fill(a, 42))

	// CopyTo only requires matching element counts.
	b := zeros[int64](t, ctx, shape.Shape{12})
	require.NoError(t, CopyTo(a, b))
	want := make([]int64, 12)
	for i := range want {
		want[i] = 42
	}
	assert.Equal(t, want, download(t, b))
}

func TestThresholds(t *testing.T) {
	ctx := newTestContext(t)
	a := upload(t, ctx, shape.Shape{4}, []float32{0, 1, 2, 3}, device.ReadOnly)
	out := zeros[float32](t, ctx, shape.Shape{4})

	for _, tc := range []struct {
		name string
		op   func(a *Tensor[float32], threshold float32, out *Tensor[float32]) error
		want []float32
	}{
		{"max", Max[float32], []float32{2, 2, 2, 3}},
		{"min", Min[float32], []float32{0, 1, 2, 2}},
		{"dmax", DMax[float32], []float32{0, 0, 0, 1}},
		{"dmin", DMin[float32], []float32{1, 1, 0, 0}},
	} {
		require.NoError(t, tc.op(a, 2, out), tc.name)
		assert.Equal(t, tc.want, download(t, out), tc.name)
	}
}

func TestActivations(t *testing.T) {
	ctx := newTestContext(t)
	a := upload(t, ctx, shape.Shape{5, 3}, iota[float32](15, 1), device.ReadOnly)
	out := zeros[float32](t, ctx, shape.Shape{5, 3})

	require.NoError(t, Tanh(a, out))
	got := download(t, out)
	assert.InDelta(t, 0.7615941, got[1], 1e-6)
	assert.InDelta(t, 1.0, got[14], 1e-6)

	require.NoError(t, DTanh(a, out))
	got = download(t, out)
	assert.InDelta(t, 1.0, got[0], 1e-6)
	assert.InDelta(t, 0.4199744, got[1], 1e-6)
	assert.InDelta(t, 0.070650816, got[2], 1e-6)

	require.NoError(t, Sigmoid(a, out))
	got = download(t, out)
	assert.InDelta(t, 0.5, got[0], 1e-6)
	assert.InDelta(t, 0.7310586, got[1], 1e-6)
	assert.InDelta(t, 0.880797, got[2], 1e-6)

	require.NoError(t, DSigmoid(a, out))
	got = download(t, out)
	assert.InDelta(t, 0.25, got[0], 1e-6)
	assert.InDelta(t, 0.19661193, got[1], 1e-6)
	assert.InDelta(t, 0.10499363, got[2], 1e-6)

	require.NoError(t, Exp(a, out))
	require.NoError(t, Log(out, out))
	assert.InDeltaSlice(t, iota[float32](15, 1), download(t, out), 1e-4)
}

func TestActivationsFloat16(t *testing.T) {
	ctx := newTestContext(t)
	a := upload(t, ctx, shape.Shape{2}, []float16.Float16{float16.Fromfloat32(0), float16.Fromfloat32(1)}, device.ReadOnly)
	out := zeros[float16.Float16](t, ctx, shape.Shape{2})

	require.NoError(t, Sigmoid(a, out))
	got := download(t, out)
	assert.InDelta(t, 0.5, got[0].Float32(), 1e-3)
	assert.InDelta(t, 0.7310586, got[1].Float32(), 1e-3)
}

func TestMSE(t *testing.T) {
	ctx := newTestContext(t)
	a := upload(t, ctx, shape.Shape{2, 2}, []float64{1, 2, 3, 4}, device.ReadOnly)
	target := zeros[float64](t, ctx, shape.Shape{2, 2})

	loss := zeros[float64](t, ctx, shape.Shape{1, 2})
	require.NoError(t, MSE(a, target, loss))
	assert.Equal(t, []float64{5, 10}, download(t, loss))

	grad := zeros[float64](t, ctx, shape.Shape{2, 2})
	require.NoError(t, DMSE(a, target, grad))
	assert.Equal(t, []float64{1, 2, 3, 4}, download(t, grad))

	assert.ErrorIs(t, MSE(a, target, grad), errs.ErrShapeMismatch)
	assert.ErrorIs(t, DMSE(a, loss, grad), errs.ErrShapeMismatch)
}

func TestUnsupportedType(t *testing.T) {
	ctx := newTestContext(t)
	a := zeros[int32](t, ctx, shape.Shape{3})
	out := zeros[int32](t, ctx, shape.Shape{3})

	err := Tanh(a, out)
	assert.ErrorIs(t, err, errs.ErrUnsupportedType)
	assert.Contains(t, err.Error(), "array_tanh_i32")
	assert.ErrorIs(t, Max(a, 1, out), errs.ErrUnsupportedType)
	assert.Nil(t, out.slot.load())
}

func TestGeometryOf(t *testing.T) {
	assert.Equal(t, device.Geometry{7, 1, 1}, geometryOf(shape.Shape{7}))
	assert.Equal(t, device.Geometry{3, 4, 1}, geometryOf(shape.Shape{3, 4}))
	assert.Equal(t, device.Geometry{2, 3, 4}, geometryOf(shape.Shape{2, 3, 4}))
	assert.Equal(t, device.Geometry{10, 3, 4}, geometryOf(shape.Shape{2, 5, 3, 4}))
	assert.Equal(t, device.Geometry{6, 1, 2}, sliceGeometry(shape.Vector{2, 3, 1, 2}))
}

func TestLogOfNegativeIsNaN(t *testing.T) {
	ctx := newTestContext(t)
	a := upload(t, ctx, shape.Shape{1}, []float64{-1}, device.ReadOnly)
	out := zeros[float64](t, ctx, shape.Shape{1})
	require.NoError(t, Log(a, out))
	assert.True(t, math.IsNaN(download(t, out)[0]))
}
