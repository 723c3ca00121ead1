// Package errs defines the error kinds reported by gpuarray.
//
// Every error returned by the library wraps exactly one of these sentinels,
// so callers classify failures with errors.Is.
package errs

import "github.com/pkg/errors"

var (
	// ErrInvalidShape reports an empty shape or a shape with a zero-sized axis.
	ErrInvalidShape = errors.New("invalid shape")

	// ErrRangeOutOfBounds reports a range whose resolved [start, end) does not fit its axis,
	// or whose start is past its end.
	ErrRangeOutOfBounds = errors.New("range out of bounds")

	// ErrShapeMismatch reports operand shapes incompatible with an operation.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrUnsupportedType reports that no compiled kernel exists for an (operation, element type) pair.
	ErrUnsupportedType = errors.New("unsupported element type")

	// ErrRankLimitExceeded reports an operand whose rank exceeds what kernel arguments can address.
	ErrRankLimitExceeded = errors.New("rank limit exceeded")

	// ErrDeviceAllocation wraps failures of the underlying device to reserve memory.
	ErrDeviceAllocation = errors.New("device allocation failure")

	// ErrDeviceExecution wraps failures of an enqueued device operation.
	// It is only observed when a host thread waits on the operation's event.
	ErrDeviceExecution = errors.New("device execution failure")

	// ErrAccessMode reports a tensor used against its access mode,
	// e.g. a read-only tensor named as an output.
	ErrAccessMode = errors.New("access mode violation")

	// ErrPendingEvent reports a tensor released while an operation writing it was never awaited.
	ErrPendingEvent = errors.New("pending event not awaited")

	// ErrReleased reports use of a tensor after its device buffer was released.
	ErrReleased = errors.New("tensor released")

	// ErrInvalidAxis reports a broadcast axis outside {-1, 0, 1} or a reduction axis outside {0, 1}.
	ErrInvalidAxis = errors.New("invalid axis")

	// ErrForeignTensor reports an operand allocated by a different context.
	ErrForeignTensor = errors.New("tensor belongs to another context")
)
