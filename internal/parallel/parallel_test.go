package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	cfg := DefaultConfig()

	var counter int64
	n := 10000

	err := For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, int64(n), counter)
}

func TestFor_Sequential(t *testing.T) {
	cfg := Config{Enabled: false}

	var counter int64
	err := For(100, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, int64(100), counter)
}

func TestForGrid(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}
	global := [3]int{2, 3, 4}
	var hits [2][3][4]int32

	err := ForGrid(global, func(x, y, z int) {
		atomic.AddInt32(&hits[x][y][z], 1)
	}, cfg)
	require.NoError(t, err)

	for x := range hits {
		for y := range hits[x] {
			for z := range hits[x][y] {
				assert.Equal(t, int32(1), hits[x][y][z], "(%d,%d,%d)", x, y, z)
			}
		}
	}
}

func TestForPanicBecomesError(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 2, MinChunkSize: 1}
	err := For(10, func(i int) {
		if i == 7 {
			panic("boom")
		}
	}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
