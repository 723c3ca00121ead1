package array

import (
	"io"
	"sort"

	"github.com/born-ml/gpuarray/internal/dtype"
	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/born-ml/gpuarray/internal/shape"
	"github.com/nlpodyssey/safetensors"
	"github.com/pkg/errors"
)

// stDType maps an element type to its safetensors encoding.
func stDType(et dtype.ElementType) (safetensors.DType, error) {
	switch et {
	case dtype.Float32:
		return safetensors.F32, nil
	case dtype.Float64:
		return safetensors.F64, nil
	case dtype.Int32:
		return safetensors.I32, nil
	case dtype.Int64:
		return safetensors.I64, nil
	case dtype.Float16:
		return safetensors.F16, nil
	default:
		return 0, errors.Wrapf(errs.ErrUnsupportedType, "safetensors: element type %s", et)
	}
}

// fromSTDType is the inverse of stDType.
func fromSTDType(dt safetensors.DType) (dtype.ElementType, error) {
	for _, et := range dtype.All {
		if st, err := stDType(et); err == nil && st == dt {
			return et, nil
		}
	}
	return dtype.Invalid, errors.Wrapf(errs.ErrUnsupportedType, "safetensors: dtype %s", dt)
}

// WriteSafetensors serializes the named arrays, plus optional string metadata, to w.
func WriteSafetensors[T dtype.Num](w io.Writer, arrays map[string]*Array[T], metadata map[string]string) error {
	dt, err := stDType(dtype.Of[T]())
	if err != nil {
		return err
	}
	views := make(map[string]safetensors.TensorView, len(arrays))
	for name, a := range arrays {
		dims := make([]uint64, len(a.shape))
		for i, d := range a.shape {
			dims[i] = uint64(d) //nolint:gosec // G115: dimensions are positive
		}
		view, err := safetensors.NewTensorView(dt, dims, a.Bytes())
		if err != nil {
			return errors.Wrapf(err, "safetensors: tensor %q", name)
		}
		views[name] = view
	}
	return safetensors.SerializeToWriter(views, metadata, w)
}

// Names lists the tensors stored in a safetensors buffer, sorted.
func Names(data []byte) ([]string, error) {
	st, err := safetensors.Deserialize(data)
	if err != nil {
		return nil, errors.Wrap(err, "safetensors: deserialize")
	}
	names := st.Names()
	sort.Strings(names)
	return names, nil
}

// ElementTypeOf returns the element type of the named tensor in a safetensors buffer.
func ElementTypeOf(data []byte, name string) (dtype.ElementType, error) {
	st, err := safetensors.Deserialize(data)
	if err != nil {
		return dtype.Invalid, errors.Wrap(err, "safetensors: deserialize")
	}
	view, ok := st.Tensor(name)
	if !ok {
		return dtype.Invalid, errors.Errorf("safetensors: tensor %q not found", name)
	}
	return fromSTDType(view.DType())
}

// ReadSafetensors decodes the named tensor of a safetensors buffer into a new array.
// The stored dtype must match T.
func ReadSafetensors[T dtype.Num](data []byte, name string) (*Array[T], error) {
	st, err := safetensors.Deserialize(data)
	if err != nil {
		return nil, errors.Wrap(err, "safetensors: deserialize")
	}
	view, ok := st.Tensor(name)
	if !ok {
		return nil, errors.Errorf("safetensors: tensor %q not found", name)
	}
	et, err := fromSTDType(view.DType())
	if err != nil {
		return nil, err
	}
	if et != dtype.Of[T]() {
		return nil, errors.Wrapf(errs.ErrUnsupportedType, "safetensors: tensor %q holds %s, not %s",
			name, et, dtype.Of[T]())
	}
	s := make(shape.Shape, len(view.Shape()))
	for i, d := range view.Shape() {
		s[i] = int(d) //nolint:gosec // G115: dimensions fit in int
	}
	a, err := Zeros[T](s)
	if err != nil {
		return nil, err
	}
	if uint64(len(a.Bytes())) != view.DataLen() {
		return nil, errors.Wrapf(errs.ErrShapeMismatch, "safetensors: tensor %q has %d bytes for shape %v",
			name, view.DataLen(), s)
	}
	copy(a.Bytes(), view.Data())
	return a, nil
}

// FromBytes copies little-endian element bytes into a new array of the given shape.
func FromBytes[T dtype.Num](s shape.Shape, raw []byte) (*Array[T], error) {
	a, err := Zeros[T](s)
	if err != nil {
		return nil, err
	}
	if len(raw) != len(a.Bytes()) {
		return nil, errors.Wrapf(errs.ErrShapeMismatch, "shape %v of %s needs %d bytes, got %d",
			s, dtype.Of[T](), len(a.Bytes()), len(raw))
	}
	copy(a.Bytes(), raw)
	return a, nil
}
