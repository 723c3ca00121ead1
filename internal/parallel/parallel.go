// Package parallel splits work-item ranges across goroutines for the emulated device.
package parallel

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 256,
	}
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
// A panic in f is returned as an error instead of crashing the process.
func For(n int, f func(i int), cfg Config) error {
	if !cfg.Enabled || n < cfg.MinChunkSize || cfg.NumWorkers <= 1 {
		return runChunk(0, n, f)
	}

	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)

	var g errgroup.Group
	g.SetLimit(cfg.NumWorkers)
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		g.Go(func() error {
			return runChunk(start, end, f)
		})
	}
	return g.Wait()
}

// ForGrid executes f for every point of a 3-D work grid, x outermost.
func ForGrid(global [3]int, f func(x, y, z int), cfg Config) error {
	plane := global[1] * global[2]
	return For(global[0]*plane, func(i int) {
		f(i/plane, (i%plane)/global[2], i%global[2])
	}, cfg)
}

// runChunk runs f over [start, end), converting a panic into an error.
func runChunk(start, end int, f func(i int)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("work-item panic: %v", r)
		}
	}()
	for i := start; i < end; i++ {
		f(i)
	}
	return nil
}
