package device

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
)

// MemoryStats represents device memory usage statistics.
type MemoryStats struct {
	// Total bytes allocated since device creation.
	TotalAllocatedBytes uint64
	// Peak memory usage in bytes.
	PeakMemoryBytes uint64
	// Bytes held by live buffers.
	LiveBytes uint64
	// Number of currently active buffers.
	ActiveBuffers int64
}

// String implements fmt.Stringer.
func (s MemoryStats) String() string {
	return fmt.Sprintf("%d buffers, %s live, %s peak, %s allocated in total",
		s.ActiveBuffers, humanize.IBytes(s.LiveBytes), humanize.IBytes(s.PeakMemoryBytes),
		humanize.IBytes(s.TotalAllocatedBytes))
}

// MemoryTracker accumulates MemoryStats for a device implementation. The zero value is ready to use.
type MemoryTracker struct {
	mu    sync.RWMutex
	stats MemoryStats
}

// TrackAllocation records a buffer allocation of size bytes.
func (t *MemoryTracker) TrackAllocation(size uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.TotalAllocatedBytes += size
	t.stats.LiveBytes += size
	t.stats.ActiveBuffers++
	t.stats.PeakMemoryBytes = max(t.stats.PeakMemoryBytes, t.stats.LiveBytes)
}

// TrackRelease records the release of a buffer of size bytes.
func (t *MemoryTracker) TrackRelease(size uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.LiveBytes -= min(size, t.stats.LiveBytes)
	t.stats.ActiveBuffers--
}

// Stats returns a snapshot of the statistics.
func (t *MemoryTracker) Stats() MemoryStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}
