package emulated

import (
	"github.com/born-ml/gpuarray/internal/device"
	"github.com/born-ml/gpuarray/internal/dtype"
	"github.com/born-ml/gpuarray/internal/parallel"
	"github.com/x448/float16"
)

// widened runs a float32 kernel on float16 buffers: buffers are widened into float32 scratch
// copies, and the output buffer is narrowed back once every work-item finished.
func widened(inner runner, output int) runner {
	return func(args device.Args, global device.Geometry, par parallel.Config) error {
		wide := make(device.Args, len(args))
		var narrow func()
		for i, arg := range args {
			switch v := arg.(type) {
			case device.Buffer:
				half := elements[float16.Float16](v)
				scratch := newBuffer(nil, dtype.Float32, len(half), device.ReadWrite)
				values := elements[float32](scratch)
				for j, h := range half {
					values[j] = h.Float32()
				}
				wide[i] = scratch
				if i == output {
					narrow = func() {
						for j, f := range values {
							half[j] = float16.Fromfloat32(f)
						}
					}
				}
			case float16.Float16:
				wide[i] = v.Float32()
			default:
				wide[i] = arg
			}
		}
		if err := inner(wide, global, par); err != nil {
			return err
		}
		if narrow != nil {
			narrow()
		}
		return nil
	}
}
