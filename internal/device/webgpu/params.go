package webgpu

import (
	"encoding/binary"
	"math"

	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/born-ml/gpuarray/internal/shape"
	"github.com/pkg/errors"
)

// packParams lays out the Params uniform of a launch: the geometry header
// (three work-item counts and the dispatch row stride), then every non-buffer argument
// in order, following WGSL uniform alignment (4 bytes for scalars, 16 for vec4<u32>).
// The result is padded to a multiple of 16 bytes.
func packParams(args device.Args, global device.Geometry, rowStride int) ([]byte, error) {
	params := make([]byte, 0, 64)
	put := func(v uint32) {
		params = binary.LittleEndian.AppendUint32(params, v)
	}
	for _, g := range global {
		put(uint32(g))
	}
	put(uint32(rowStride))

	for i, arg := range args {
		switch v := arg.(type) {
		case device.Buffer:
			continue
		case int:
			if v < math.MinInt32 || v > math.MaxUint32 {
				return nil, errors.Wrapf(errs.ErrRankLimitExceeded, "argument #%d = %d does not fit 32 bits", i, v)
			}
			put(uint32(v))
		case float32:
			put(math.Float32bits(v))
		case int32:
			put(uint32(v))
		case shape.Vector:
			for len(params)%16 != 0 {
				params = append(params, 0)
			}
			for _, lane := range v {
				if lane > math.MaxUint32 {
					return nil, errors.Wrapf(errs.ErrRankLimitExceeded, "argument #%d lane %d does not fit 32 bits", i, lane)
				}
				put(uint32(lane))
			}
		default:
			return nil, errors.Wrapf(errs.ErrUnsupportedType, "argument #%d of type %T", i, arg)
		}
	}
	for len(params)%16 != 0 {
		params = append(params, 0)
	}
	return params, nil
}

// bufferArgs returns the buffers of a launch in binding order.
func bufferArgs(args device.Args) []device.Buffer {
	var buffers []device.Buffer
	for _, arg := range args {
		if b, ok := arg.(device.Buffer); ok {
			buffers = append(buffers, b)
		}
	}
	return buffers
}

// alignedSize rounds a byte size up to the 4-byte granularity of buffer copies.
func alignedSize(n int) uint64 {
	return uint64((n + 3) &^ 3)
}
