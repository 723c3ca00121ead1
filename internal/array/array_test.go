package array

import (
	"bytes"
	"errors"
	"testing"

	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/born-ml/gpuarray/internal/shape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestFromSliceIndexing(t *testing.T) {
	a, err := FromSlice(shape.Shape{4, 3}, []int32{
		2, 3, 4,
		6, 7, 8,
		10, 11, 12,
		14, 15, 16,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(7), a.At(1, 1))
	assert.Equal(t, int32(16), a.At(3, 2))
	assert.Equal(t, []int{3, 1}, a.Strides())

	a.Set(42, 2, 0)
	assert.Equal(t, int32(42), a.Data()[6])
}

func TestFromSliceLengthMismatch(t *testing.T) {
	_, err := FromSlice(shape.Shape{2, 2}, []float32{1, 2, 3})
	assert.True(t, errors.Is(err, errs.ErrShapeMismatch))

	_, err = FromSlice(shape.Shape{0, 2}, []float32{})
	assert.True(t, errors.Is(err, errs.ErrInvalidShape))
}

func TestBytesIsZeroCopy(t *testing.T) {
	a, err := New(shape.Shape{2}, int32(0))
	require.NoError(t, err)
	raw := a.Bytes()
	require.Len(t, raw, 8)
	raw[4] = 1
	assert.Equal(t, int32(1), a.At(1))
}

func TestString(t *testing.T) {
	a, err := FromSlice(shape.Shape{2, 2}, []int64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, "[\n[1\t2]\n[3\t4]\n]\n", a.String())
}

func TestSafetensorsRoundTrip(t *testing.T) {
	a, err := FromSlice(shape.Shape{2, 3}, []float32{0, 1, 2, 3, 4, 5})
	require.NoError(t, err)
	b, err := FromSlice(shape.Shape{3}, []float32{-1, -2, -3})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSafetensors(&buf, map[string]*Array[float32]{"a": a, "b": b}, map[string]string{"k": "v"}))

	names, err := Names(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	et, err := ElementTypeOf(buf.Bytes(), "a")
	require.NoError(t, err)
	assert.Equal(t, a.ElementType(), et)

	got, err := ReadSafetensors[float32](buf.Bytes(), "a")
	require.NoError(t, err)
	assert.True(t, a.Equal(got))

	_, err = ReadSafetensors[int32](buf.Bytes(), "a")
	assert.True(t, errors.Is(err, errs.ErrUnsupportedType))

	_, err = ReadSafetensors[float32](buf.Bytes(), "missing")
	assert.Error(t, err)
}

func TestSafetensorsFloat16(t *testing.T) {
	a, err := FromSlice(shape.Shape{2}, []float16.Float16{float16.Fromfloat32(1.5), float16.Fromfloat32(-2)})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSafetensors(&buf, map[string]*Array[float16.Float16]{"h": a}, nil))
	got, err := ReadSafetensors[float16.Float16](buf.Bytes(), "h")
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), got.At(0).Float32())
}

func TestFromBytes(t *testing.T) {
	a, err := FromSlice(shape.Shape{3}, []int32{7, 8, 9})
	require.NoError(t, err)
	b, err := FromBytes[int32](shape.Shape{3}, a.Bytes())
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	_, err = FromBytes[int32](shape.Shape{4}, a.Bytes())
	assert.True(t, errors.Is(err, errs.ErrShapeMismatch))
}
