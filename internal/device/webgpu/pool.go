//go:build windows

package webgpu

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
	"k8s.io/klog/v2"
)

// sizeClass represents the buffer size categories of the staging pool.
type sizeClass int

const (
	smallStaging  sizeClass = iota // < 4KB: fences and small reads.
	mediumStaging                  // 4KB-1MB.
	largeStaging                   // > 1MB.
	numSizeClasses
)

const (
	// Size thresholds for staging categories.
	smallThreshold  = 4 * 1024    // 4KB
	mediumThreshold = 1024 * 1024 // 1MB
	maxPoolSize     = 64          // Max buffers per category
)

// pooledBuffer wraps a staging buffer with metadata.
type pooledBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
	usage  wgpu.BufferUsage
}

// BufferPool recycles the staging buffers used by fences and reads, which are created for
// every launch and every download otherwise.
type BufferPool struct {
	device *wgpu.Device
	pools  [numSizeClasses][]*pooledBuffer
	mu     sync.Mutex

	hits, misses uint64
}

// NewBufferPool creates a new buffer pool for the given device.
func NewBufferPool(device *wgpu.Device) *BufferPool {
	return &BufferPool{device: device}
}

// Acquire gets a buffer from the pool or creates a new one.
// Returns a buffer that matches or exceeds the requested size and usage.
func (p *BufferPool) Acquire(size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	class := classify(size)
	for i, pb := range p.pools[class] {
		if pb.size >= size && pb.usage&usage == usage {
			p.pools[class] = append(p.pools[class][:i], p.pools[class][i+1:]...)
			p.hits++
			return pb.buffer
		}
	}
	p.misses++
	return p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: usage,
		Size:  size,
	})
}

// Release returns a buffer to the pool for reuse.
// If the pool is full, the buffer is immediately released.
func (p *BufferPool) Release(buffer *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	class := classify(size)
	if len(p.pools[class]) >= maxPoolSize {
		buffer.Release()
		return
	}
	p.pools[class] = append(p.pools[class], &pooledBuffer{buffer: buffer, size: size, usage: usage})
}

// Clear releases all pooled buffers.
// Should be called when the device is released.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for class := range p.pools {
		for _, pb := range p.pools[class] {
			pb.buffer.Release()
		}
		p.pools[class] = nil
	}
	klog.V(1).Infof("webgpu staging pool cleared: %d hits, %d misses", p.hits, p.misses)
}

// classify determines the size category for a buffer.
func classify(size uint64) sizeClass {
	switch {
	case size < smallThreshold:
		return smallStaging
	case size < mediumThreshold:
		return mediumStaging
	default:
		return largeStaging
	}
}
