package kernels

import (
	"testing"

	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/dtype"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedKernel string

func (k namedKernel) Name() string { return string(k) }

// partialDevice only provides the kernels in its set.
type partialDevice struct {
	device.Device
	provides map[string]bool
}

func (d *partialDevice) Name() string { return "partial" }

func (d *partialDevice) Kernel(name string) (device.Kernel, bool) {
	if !d.provides[name] {
		return nil, false
	}
	return namedKernel(name), true
}

func TestName(t *testing.T) {
	assert.Equal(t, "array_add_f32", Name(Add, false, dtype.Float32))
	assert.Equal(t, "array_matmul_i32", Name(Matmul, false, dtype.Int32))
	assert.Equal(t, "array_add_slice_f32", Name(Add, true, dtype.Float32))
	assert.Equal(t, "array_dsigmoid_slice_f16", Name(DSigmoid, true, dtype.Float16))
}

func TestTable(t *testing.T) {
	seen := make(map[string]bool)
	for _, e := range Table {
		for _, et := range e.Types {
			name := e.Name(et)
			assert.False(t, seen[name], "duplicate kernel %q", name)
			seen[name] = true
		}
	}
	assert.True(t, seen["array_tanh_f64"])
	assert.False(t, seen["array_tanh_i32"], "activations are float-only")
	assert.False(t, seen["array_matmul_slice_f32"], "matmul has no slice variant")

	e, ok := Find(Add, true)
	require.True(t, ok)
	assert.Equal(t, 6, e.Output)
	_, ok = Find(Sum, true)
	assert.False(t, ok)
}

func TestRegistry(t *testing.T) {
	dev := &partialDevice{provides: map[string]bool{
		"array_add_f32":       true,
		"array_add_slice_f32": true,
		"array_unknown_f32":   true,
	}}
	r := Build(dev)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"array_add_f32", "array_add_slice_f32"}, r.Names())

	k, err := r.Lookup(Add, false, dtype.Float32)
	require.NoError(t, err)
	assert.Equal(t, "array_add_f32", k.Name())

	_, err = r.Lookup(Add, false, dtype.Int64)
	assert.ErrorIs(t, err, errs.ErrUnsupportedType)
	assert.Contains(t, err.Error(), "array_add_i64")
}
