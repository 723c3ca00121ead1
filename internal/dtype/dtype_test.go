package dtype

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/x448/float16"
)

func TestOf(t *testing.T) {
	assert.Equal(t, Float32, Of[float32]())
	assert.Equal(t, Float64, Of[float64]())
	assert.Equal(t, Int32, Of[int32]())
	assert.Equal(t, Int64, Of[int64]())
	assert.Equal(t, Float16, Of[float16.Float16]())
}

func TestTagRoundTrip(t *testing.T) {
	for _, et := range All {
		assert.Equal(t, et, FromTag(et.Tag()), et.String())
	}
	assert.Equal(t, Invalid, FromTag("u8"))
}

func TestSize(t *testing.T) {
	assert.Equal(t, 4, Float32.Size())
	assert.Equal(t, 8, Int64.Size())
	assert.Equal(t, 2, Float16.Size())

	err := exceptions.Try(func() { Invalid.Size() })
	assert.NotNil(t, err)
}

func TestIsFloat(t *testing.T) {
	assert.True(t, Float16.IsFloat())
	assert.False(t, Int32.IsFloat())
}
