// Package emulated implements an in-process device that runs kernels on goroutines.
//
// Each launch runs as soon as every event of its wait-list completed, so launches without a
// dependency between them run concurrently and complete in any order. A jitter can be
// configured to delay each launch by a random amount, to shake out missing dependencies.
//
// The device registers itself as "emulated". It is never selected implicitly: use
// GPUARRAY_DEVICE=emulated or device.NewWithConfig("emulated:workers=4,jitter=1ms").
package emulated

import (
	"math/rand/v2"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/dtype"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/born-ml/gpuarray/internal/parallel"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DeviceName is the name the device registers with.
const DeviceName = "emulated"

func init() {
	device.Register(DeviceName, func(config string) (device.Device, error) {
		cfg, err := ParseConfig(config)
		if err != nil {
			return nil, err
		}
		return New(cfg), nil
	})
}

// Config of the emulated device.
type Config struct {
	// Workers is the number of goroutines that split the work-items of one launch.
	Workers int
	// Jitter is the upper bound of the random delay added before each launch starts.
	Jitter time.Duration
	// Seed of the jitter generator.
	Seed uint64
	// MaxBytes limits the live buffer memory. 0 means unlimited.
	MaxBytes uint64
}

// DefaultConfig uses one worker per CPU and no jitter.
func DefaultConfig() Config {
	return Config{Workers: runtime.NumCPU()}
}

// ParseConfig parses a comma-separated list of key=value options on top of DefaultConfig.
// Keys are "workers", "jitter" (a time.Duration), "seed" and "maxbytes" (e.g. "64MiB").
func ParseConfig(config string) (Config, error) {
	cfg := DefaultConfig()
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			return cfg, errors.Errorf("emulated device: option %q is not in key=value form", part)
		}
		var err error
		switch key {
		case "workers":
			cfg.Workers, err = strconv.Atoi(value)
		case "jitter":
			cfg.Jitter, err = time.ParseDuration(value)
		case "seed":
			cfg.Seed, err = strconv.ParseUint(value, 10, 64)
		case "maxbytes":
			cfg.MaxBytes, err = humanize.ParseBytes(value)
		default:
			return cfg, errors.Errorf("emulated device: unknown option %q", key)
		}
		if err != nil {
			return cfg, errors.Wrapf(err, "emulated device: option %q", key)
		}
	}
	return cfg, nil
}

// Device is the emulated device. Create it with New.
type Device struct {
	cfg      Config
	par      parallel.Config
	kernels  map[string]*kernel
	memory   device.MemoryTracker
	inflight sync.WaitGroup
	released atomic.Bool

	rngMu sync.Mutex
	rng   *rand.Rand

	nextEventID atomic.Uint64
}

var _ device.Device = (*Device)(nil)

// New creates an emulated device.
func New(cfg Config) *Device {
	par := parallel.DefaultConfig()
	if cfg.Workers > 0 {
		par.NumWorkers = cfg.Workers
		par.Enabled = cfg.Workers > 1
	}
	d := &Device{
		cfg:     cfg,
		par:     par,
		kernels: buildKernels(),
		rng:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
	klog.V(1).Infof("emulated device: %d kernels, %d workers, jitter %s", len(d.kernels), par.NumWorkers, cfg.Jitter)
	return d
}

// Name implements device.Device.
func (d *Device) Name() string { return DeviceName }

// Description implements device.Device.
func (d *Device) Description() string {
	desc := "emulated device, " + strconv.Itoa(d.par.NumWorkers) + " workers"
	if d.cfg.Jitter > 0 {
		desc += ", jitter " + d.cfg.Jitter.String()
	}
	return desc
}

// Alloc implements device.Device.
func (d *Device) Alloc(et dtype.ElementType, n int, mode device.AccessMode) (device.Buffer, error) {
	if d.released.Load() {
		return nil, errors.Wrap(errs.ErrReleased, "emulated device")
	}
	if et.Tag() == dtype.Invalid.Tag() {
		return nil, errors.Wrapf(errs.ErrUnsupportedType, "emulated device: element type %d", int(et))
	}
	if n <= 0 {
		return nil, errors.Wrapf(errs.ErrDeviceAllocation, "emulated device: allocating %d elements", n)
	}
	size := uint64(n * et.Size())
	if d.cfg.MaxBytes > 0 && d.memory.Stats().LiveBytes+size > d.cfg.MaxBytes {
		return nil, errors.Wrapf(errs.ErrDeviceAllocation, "emulated device: allocating %s exceeds the %s limit",
			humanize.IBytes(size), humanize.IBytes(d.cfg.MaxBytes))
	}
	d.memory.TrackAllocation(size)
	return newBuffer(d, et, n, mode), nil
}

// Write implements device.Device.
func (d *Device) Write(buf device.Buffer, src []byte) error {
	b, err := d.own(buf)
	if err != nil {
		return err
	}
	if len(src) != len(b.data) {
		return errors.Wrapf(errs.ErrShapeMismatch, "emulated device: writing %d bytes into a %d bytes buffer", len(src), len(b.data))
	}
	copy(b.data, src)
	return nil
}

// Read implements device.Device.
func (d *Device) Read(buf device.Buffer, dst []byte, wait []device.Event) error {
	b, err := d.own(buf)
	if err != nil {
		return err
	}
	if len(dst) != len(b.data) {
		return errors.Wrapf(errs.ErrShapeMismatch, "emulated device: reading a %d bytes buffer into %d bytes", len(b.data), len(dst))
	}
	for _, ev := range wait {
		if err := ev.Wait(); err != nil {
			return err
		}
	}
	copy(dst, b.data)
	return nil
}

// Kernel implements device.Device.
func (d *Device) Kernel(name string) (device.Kernel, bool) {
	k, ok := d.kernels[name]
	return k, ok
}

// Enqueue implements device.Device.
func (d *Device) Enqueue(launch device.Launch) (device.Event, error) {
	if d.released.Load() {
		return nil, errors.Wrap(errs.ErrReleased, "emulated device")
	}
	k, ok := launch.Kernel.(*kernel)
	if !ok || d.kernels[k.name] != k {
		return nil, errors.Wrapf(errs.ErrUnsupportedType, "emulated device: kernel %v was not created by this device", launch.Kernel)
	}
	for i, arg := range launch.Args {
		if buf, isBuffer := arg.(device.Buffer); isBuffer {
			if _, err := d.own(buf); err != nil {
				return nil, errors.WithMessagef(err, "%s argument #%d", k.name, i)
			}
		}
	}
	delay := d.jitter()
	ev := newEvent(d.nextEventID.Add(1))
	waitList := append([]device.Event(nil), launch.WaitList...)
	klog.V(3).Infof("emulated: enqueue %s #%d, geometry %s, %d prerequisites", k.name, ev.id, launch.Global, len(waitList))

	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		for _, prerequisite := range waitList {
			if err := prerequisite.Wait(); err != nil {
				ev.complete(errors.WithMessagef(err, "prerequisite of %s #%d failed", k.name, ev.id))
				return
			}
		}
		if delay > 0 {
			time.Sleep(delay)
		}
		ev.complete(k.execute(launch.Args, launch.Global, d.par))
		klog.V(3).Infof("emulated: %s #%d done", k.name, ev.id)
	}()
	return ev, nil
}

// Finish implements device.Device.
func (d *Device) Finish() error {
	d.inflight.Wait()
	return nil
}

// MemoryStats implements device.Device.
func (d *Device) MemoryStats() device.MemoryStats { return d.memory.Stats() }

// Release implements device.Device. It waits for in-flight launches first.
func (d *Device) Release() error {
	if d.released.Swap(true) {
		return nil
	}
	d.inflight.Wait()
	klog.V(1).Infof("emulated device released: %s", d.memory.Stats())
	return nil
}

func (d *Device) jitter() time.Duration {
	if d.cfg.Jitter <= 0 {
		return 0
	}
	d.rngMu.Lock()
	defer d.rngMu.Unlock()
	return time.Duration(d.rng.Int64N(int64(d.cfg.Jitter)))
}

// own checks that buf was allocated by d and is still alive.
func (d *Device) own(buf device.Buffer) (*buffer, error) {
	b, ok := buf.(*buffer)
	if !ok || b.dev != d {
		return nil, errors.Wrapf(errs.ErrDeviceExecution, "emulated device: buffer %T belongs to another device", buf)
	}
	if b.released.Load() {
		return nil, errors.Wrap(errs.ErrReleased, "emulated device: buffer")
	}
	return b, nil
}

// mustOwn is own for kernel bodies, where failures are reported by panicking.
func mustOwn(buf device.Buffer) *buffer {
	b, ok := buf.(*buffer)
	if !ok {
		exceptions.Panicf("emulated kernel got a %T buffer", buf)
	}
	return b
}
