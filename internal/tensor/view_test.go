package tensor

import (
	"testing"

	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/born-ml/gpuarray/internal/shape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceOffsetsAndExtents(t *testing.T) {
	ctx := newTestContext(t)
	x, err := New[float32](ctx, shape.Shape{4, 5, 6}, device.ReadWrite)
	require.NoError(t, err)
	defer func() { require.NoError(t, x.Release()) }()

	v := mustSlice(t, x, Span(1, 3))
	assert.Equal(t, []int{1, 0, 0}, []int{v.Offset(0), v.Offset(1), v.Offset(2)})
	assert.Equal(t, []int{2, 5, 6}, []int{v.Extent(0), v.Extent(1), v.Extent(2)})
	assert.Equal(t, shape.Shape{2, 5, 6}, v.Shape())
	assert.Equal(t, 3, v.Rank())
	assert.Same(t, x, v.Tensor())

	v = mustSlice(t, x, Index(3), From(2), To(2))
	assert.Equal(t, shape.Shape{1, 3, 2}, v.Shape())
	assert.Equal(t, 3, v.Offset(0))
	assert.Equal(t, 2, v.Offset(1))
	assert.Equal(t, 0, v.Offset(2))
	assert.Contains(t, v.String(), "[3, 2:, :2]")
}

func TestSliceOutOfBounds(t *testing.T) {
	ctx := newTestContext(t)
	x := zeros[int32](t, ctx, shape.Shape{4, 3})

	for _, ranges := range [][]Range{
		{Span(2, 5)},
		{All(), Index(3)},
		{From(5)},
		{Span(3, 1)},
		{All(), All(), All()},
	} {
		_, err := x.Slice(ranges...)
		assert.ErrorIs(t, err, errs.ErrRangeOutOfBounds, "%v", ranges)
	}
}

func TestViewOperandAddressing(t *testing.T) {
	ctx := newTestContext(t)
	x := zeros[int32](t, ctx, shape.Shape{2, 4, 3})
	v := mustSlice(t, x, Index(1), Span(1, 3), Index(2))

	strides, offsets, err := v.operand().packed()
	require.NoError(t, err)
	assert.Equal(t, shape.Vector{12, 12, 3, 1}, strides)
	assert.Equal(t, shape.Vector{0, 1, 1, 2}, offsets)
}
