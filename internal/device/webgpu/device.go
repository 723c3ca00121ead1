//go:build windows

package webgpu

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/dtype"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/born-ml/gpuarray/internal/kernels"
	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

func init() {
	device.Register(DeviceName, func(config string) (device.Device, error) {
		cfg, err := ParseConfig(config)
		if err != nil {
			return nil, err
		}
		return New(cfg)
	})
}

// Device runs kernels on a GPU through WebGPU.
type Device struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	adapterInfo *wgpu.AdapterInfo

	// Shader and pipeline cache, keyed by kernel name.
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
	kernels   map[string]*kernel
	mu        sync.RWMutex

	// queueMu serializes command encoding and submission.
	queueMu sync.Mutex

	staging  *BufferPool
	memory   device.MemoryTracker
	released atomic.Bool

	// Fences submitted and not yet completed, in submission order.
	fenceMu     sync.Mutex
	outstanding []*fence
	nextSeq     uint64
	retiring    chan *fence
	retired     sync.WaitGroup
}

var _ device.Device = (*Device)(nil)

// New creates a WebGPU device.
// Returns an error if WebGPU is not available or initialization fails.
func New(cfg Config) (dev *Device, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			dev = nil
			err = errors.Wrapf(errs.ErrDeviceAllocation, "webgpu: native library not available: %v", r)
		}
	}()

	preference := wgpu.PowerPreferenceHighPerformance
	if cfg.LowPower {
		preference = wgpu.PowerPreferenceLowPower
	}
	instance := wgpu.CreateInstance(nil)
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: preference,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, errors.Wrapf(errs.ErrDeviceAllocation, "webgpu: failed to request adapter: %v", adapterErr)
	}
	adapterInfo := adapter.GetInfo()

	wgpuDevice, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, errors.Wrapf(errs.ErrDeviceAllocation, "webgpu: failed to request device: %v", deviceErr)
	}
	queue := wgpuDevice.GetQueue()
	if queue == nil {
		wgpuDevice.Release()
		adapter.Release()
		instance.Release()
		return nil, errors.Wrap(errs.ErrDeviceAllocation, "webgpu: failed to get queue")
	}

	d := &Device{
		instance:    instance,
		adapter:     adapter,
		device:      wgpuDevice,
		queue:       queue,
		adapterInfo: &adapterInfo,
		shaders:     make(map[string]*wgpu.ShaderModule),
		pipelines:   make(map[string]*wgpu.ComputePipeline),
		kernels:     make(map[string]*kernel),
		staging:     NewBufferPool(wgpuDevice),
		retiring:    make(chan *fence, maxRetiring),
	}
	d.retired.Add(1)
	go d.retireLoop()
	klog.V(1).Infof("webgpu device created: %s", d.Description())
	return d, nil
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() (available bool) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}

// Name implements device.Device.
func (d *Device) Name() string { return DeviceName }

// Description implements device.Device.
func (d *Device) Description() string {
	if d.adapterInfo != nil {
		return fmt.Sprintf("WebGPU (%s %s)", d.adapterInfo.Name, d.adapterInfo.VendorName)
	}
	return "WebGPU"
}

// Alloc implements device.Device.
func (d *Device) Alloc(et dtype.ElementType, n int, mode device.AccessMode) (device.Buffer, error) {
	if d.released.Load() {
		return nil, errors.Wrap(errs.ErrReleased, "webgpu device")
	}
	if et.Tag() == dtype.Invalid.Tag() {
		return nil, errors.Wrapf(errs.ErrUnsupportedType, "webgpu: element type %d", int(et))
	}
	if n <= 0 {
		return nil, errors.Wrapf(errs.ErrDeviceAllocation, "webgpu: allocating %d elements", n)
	}
	size := alignedSize(n * et.Size())
	gpuBuffer := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	if gpuBuffer == nil {
		return nil, errors.Wrapf(errs.ErrDeviceAllocation, "webgpu: creating a %d bytes buffer", size)
	}
	d.memory.TrackAllocation(size)
	return &buffer{dev: d, gpu: gpuBuffer, et: et, n: n, mode: mode, size: size}, nil
}

// Write implements device.Device. The data is copied into a staging buffer before Write
// returns, and the copy into buf is ordered before every launch enqueued afterwards.
func (d *Device) Write(buf device.Buffer, src []byte) error {
	b, err := d.own(buf)
	if err != nil {
		return err
	}
	if len(src) != b.n*b.et.Size() {
		return errors.Wrapf(errs.ErrShapeMismatch, "webgpu: writing %d bytes into a %d bytes buffer", len(src), b.n*b.et.Size())
	}
	staging := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageCopySrc,
		Size:             b.size,
		MappedAtCreation: wgpu.True,
	})
	defer staging.Release()
	mapped := unsafe.Slice((*byte)(staging.GetMappedRange(0, b.size)), b.size)
	copy(mapped, src)
	staging.Unmap()

	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	encoder := d.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(staging, 0, b.gpu, 0, b.size)
	cmdBuffer := encoder.Finish(nil)
	d.queue.Submit(cmdBuffer)
	return nil
}

// Read implements device.Device.
// Uses a staging buffer since storage buffers can't be mapped directly.
func (d *Device) Read(buf device.Buffer, dst []byte, wait []device.Event) error {
	b, err := d.own(buf)
	if err != nil {
		return err
	}
	if len(dst) != b.n*b.et.Size() {
		return errors.Wrapf(errs.ErrShapeMismatch, "webgpu: reading a %d bytes buffer into %d bytes", b.n*b.et.Size(), len(dst))
	}
	for _, ev := range wait {
		if err := ev.Wait(); err != nil {
			return err
		}
	}

	staging := d.staging.Acquire(b.size, wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst)
	defer d.staging.Release(staging, b.size, wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst)

	d.queueMu.Lock()
	encoder := d.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(b.gpu, 0, staging, 0, b.size)
	cmdBuffer := encoder.Finish(nil)
	d.queue.Submit(cmdBuffer)
	d.queueMu.Unlock()

	if err := staging.MapAsync(d.device, wgpu.MapModeRead, 0, b.size); err != nil {
		return errors.Wrapf(errs.ErrDeviceExecution, "webgpu: failed to map staging buffer: %v", err)
	}
	mapped := unsafe.Slice((*byte)(staging.GetMappedRange(0, b.size)), b.size)
	copy(dst, mapped)
	staging.Unmap()
	return nil
}

// Kernel implements device.Device. Shaders are compiled on first use.
func (d *Device) Kernel(name string) (device.Kernel, bool) {
	d.mu.RLock()
	k, ok := d.kernels[name]
	d.mu.RUnlock()
	if ok {
		return k, true
	}
	for _, e := range kernels.Table {
		for _, et := range e.Types {
			if e.Name(et) != name {
				continue
			}
			code, ok := shaderSource(e.Op, e.Slice, et)
			if !ok {
				return nil, false
			}
			k := &kernel{name: name, code: code}
			d.mu.Lock()
			d.kernels[name] = k
			d.mu.Unlock()
			return k, true
		}
	}
	return nil, false
}

// Enqueue implements device.Device.
//
// The queue executes submissions in order, so the wait-list is already honored by the GPU.
// Prerequisites that already failed fail the launch; the others are checked by its fence.
func (d *Device) Enqueue(launch device.Launch) (device.Event, error) {
	if d.released.Load() {
		return nil, errors.Wrap(errs.ErrReleased, "webgpu device")
	}
	k, ok := launch.Kernel.(*kernel)
	if !ok {
		return nil, errors.Wrapf(errs.ErrUnsupportedType, "webgpu: kernel %v was not created by this device", launch.Kernel)
	}
	for _, ev := range launch.WaitList {
		if ev.Done() {
			if err := ev.Wait(); err != nil {
				return nil, errors.WithMessagef(err, "prerequisite of %s failed", k.name)
			}
		}
	}
	buffers := bufferArgs(launch.Args)
	gpuBuffers := make([]*buffer, len(buffers))
	for i, buf := range buffers {
		b, err := d.own(buf)
		if err != nil {
			return nil, errors.WithMessagef(err, "%s buffer #%d", k.name, i)
		}
		gpuBuffers[i] = b
	}
	groupsX, groupsY, rowStride := dispatchSize(launch.Global.Size())
	params, err := packParams(launch.Args, launch.Global, rowStride)
	if err != nil {
		return nil, errors.WithMessagef(err, "webgpu: %s", k.name)
	}

	pipeline := d.pipeline(k)
	paramsBuffer := d.createUniformBuffer(params)
	entries := make([]wgpu.BindGroupEntry, 0, len(gpuBuffers)+1)
	for i, b := range gpuBuffers {
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i), b.gpu, 0, b.size))
	}
	entries = append(entries, wgpu.BufferBindingEntry(uint32(len(gpuBuffers)), paramsBuffer, 0, uint64(len(params))))
	bindGroup := d.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), entries)

	f := d.newFence(k.name, launch.WaitList, func() {
		bindGroup.Release()
		paramsBuffer.Release()
	})

	d.queueMu.Lock()
	if d.released.Load() {
		d.queueMu.Unlock()
		f.deps = nil
		f.complete(false)
		return nil, errors.Wrap(errs.ErrReleased, "webgpu device")
	}
	encoder := d.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	computePass.DispatchWorkgroups(groupsX, groupsY, 1)
	computePass.End()
	// The fence copy completes after the dispatch, so mapping it waits for the kernel.
	encoder.CopyBufferToBuffer(gpuBuffers[len(gpuBuffers)-1].gpu, 0, f.staging, 0, fenceSize)
	cmdBuffer := encoder.Finish(nil)
	d.queue.Submit(cmdBuffer)
	d.track(f)
	d.queueMu.Unlock()

	klog.V(3).Infof("webgpu: submitted %s, %dx%d workgroups", k.name, groupsX, groupsY)
	return f, nil
}

// Finish implements device.Device: it waits on the fence of the last submission, which
// completes every outstanding fence.
func (d *Device) Finish() error {
	d.fenceMu.Lock()
	var last *fence
	if n := len(d.outstanding); n > 0 {
		last = d.outstanding[n-1]
	}
	d.fenceMu.Unlock()
	if last == nil {
		return nil
	}
	return last.Wait()
}

// MemoryStats implements device.Device.
func (d *Device) MemoryStats() device.MemoryStats { return d.memory.Stats() }

// Release implements device.Device.
// Must be called when the device is no longer needed.
func (d *Device) Release() error {
	if d.released.Swap(true) {
		return nil
	}
	if err := d.Finish(); err != nil {
		klog.Errorf("webgpu: releasing device with a failed launch: %+v", err)
	}
	d.queueMu.Lock()
	close(d.retiring)
	d.queueMu.Unlock()
	d.retired.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.staging.Clear()
	for _, p := range d.pipelines {
		p.Release()
	}
	d.pipelines = nil
	for _, s := range d.shaders {
		s.Release()
	}
	d.shaders = nil

	d.queue.Release()
	d.device.Release()
	d.adapter.Release()
	d.instance.Release()
	klog.V(1).Infof("webgpu device released: %s", d.memory.Stats())
	return nil
}

// pipeline returns the cached ComputePipeline of a kernel, compiling its shader on first use.
func (d *Device) pipeline(k *kernel) *wgpu.ComputePipeline {
	d.mu.RLock()
	if pipeline, exists := d.pipelines[k.name]; exists {
		d.mu.RUnlock()
		return pipeline
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	if pipeline, exists := d.pipelines[k.name]; exists {
		return pipeline
	}
	shader := d.device.CreateShaderModuleWGSL(k.code)
	d.shaders[k.name] = shader
	// Auto layout (nil layout).
	pipeline := d.device.CreateComputePipelineSimple(nil, shader, "main")
	d.pipelines[k.name] = pipeline
	klog.V(2).Infof("webgpu: compiled %s", k.name)
	return pipeline
}

// createUniformBuffer creates a uniform buffer holding data, already 16-byte aligned.
func (d *Device) createUniformBuffer(data []byte) *wgpu.Buffer {
	size := uint64(len(data))
	uniform := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mapped := unsafe.Slice((*byte)(uniform.GetMappedRange(0, size)), size)
	copy(mapped, data)
	uniform.Unmap()
	return uniform
}

// own checks that buf was allocated by d and is still alive.
func (d *Device) own(buf device.Buffer) (*buffer, error) {
	b, ok := buf.(*buffer)
	if !ok || b.dev != d {
		return nil, errors.Wrapf(errs.ErrDeviceExecution, "webgpu: buffer %T belongs to another device", buf)
	}
	if b.released.Load() {
		return nil, errors.Wrap(errs.ErrReleased, "webgpu: buffer")
	}
	return b, nil
}

type kernel struct {
	name string
	code string
}

// Name implements device.Kernel.
func (k *kernel) Name() string { return k.name }
