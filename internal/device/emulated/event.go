package emulated

import (
	"fmt"
)

// event is closed once its launch finished; err is only read after done is closed.
type event struct {
	id   uint64
	done chan struct{}
	err  error
}

func newEvent(id uint64) *event {
	return &event{id: id, done: make(chan struct{})}
}

func (e *event) complete(err error) {
	e.err = err
	close(e.done)
}

// Wait implements device.Event.
func (e *event) Wait() error {
	<-e.done
	return e.err
}

// Done implements device.Event.
func (e *event) Done() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (e *event) String() string { return fmt.Sprintf("event#%d", e.id) }
