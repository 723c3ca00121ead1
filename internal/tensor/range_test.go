package tensor

import (
	"testing"

	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeLen(t *testing.T) {
	for _, tc := range []struct {
		r    Range
		size int
		want int
	}{
		{Span(1, 3), 5, 2},
		{Span(2, 2), 5, 0},
		{From(3), 5, 2},
		{To(4), 5, 4},
		{All(), 5, 5},
		{Index(4), 5, 1},
	} {
		got, err := tc.r.Len(tc.size)
		require.NoError(t, err, tc.r.String())
		assert.Equal(t, tc.want, got, tc.r.String())
	}

	_, err := Span(3, 1).Len(5)
	assert.ErrorIs(t, err, errs.ErrRangeOutOfBounds)
	_, err = From(6).Len(5)
	assert.ErrorIs(t, err, errs.ErrRangeOutOfBounds)
}

func TestParseRanges(t *testing.T) {
	ranges, err := ParseRanges("1:3, 1, :, 2:, :4")
	require.NoError(t, err)
	assert.Equal(t, []Range{Span(1, 3), Index(1), All(), From(2), To(4)}, ranges)

	var parts []string
	for _, r := range ranges {
		parts = append(parts, r.String())
	}
	assert.Equal(t, []string{"1:3", "1", ":", "2:", ":4"}, parts)

	ranges, err = ParseRanges("  ")
	require.NoError(t, err)
	assert.Empty(t, ranges)

	for _, bad := range []string{"a", "1:b", "-1", "1,,2"} {
		_, err := ParseRanges(bad)
		assert.ErrorIs(t, err, errs.ErrRangeOutOfBounds, bad)
	}
}
