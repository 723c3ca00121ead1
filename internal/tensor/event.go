package tensor

import (
	"sync/atomic"

	"github.com/born-ml/gpuarray/internal/device"
)

// pendingEvent is the last event enqueued against a tensor, and whether a host thread observed it.
type pendingEvent struct {
	event   device.Event
	awaited atomic.Bool
}

// eventSlot holds the pending event of a tensor. It is shared with every view of the tensor,
// and replaced atomically on each dispatch that reads or writes the tensor.
type eventSlot struct {
	current atomic.Pointer[pendingEvent]
}

// load returns the pending event, or nil if nothing was ever enqueued against the tensor.
func (s *eventSlot) load() *pendingEvent {
	return s.current.Load()
}

// install replaces the pending event. The same pendingEvent is installed on every operand of a
// launch, so waiting through any of them marks it observed for all.
func (s *eventSlot) install(p *pendingEvent) {
	s.current.Store(p)
}

// reset clears the pending event if it already completed, and reports whether the slot is clear.
func (s *eventSlot) reset() bool {
	p := s.current.Load()
	if p == nil {
		return true
	}
	if !p.event.Done() {
		return false
	}
	return s.current.CompareAndSwap(p, nil)
}

// wait blocks on the pending event and marks it as observed.
func (s *eventSlot) wait() error {
	p := s.current.Load()
	if p == nil {
		return nil
	}
	err := p.event.Wait()
	p.awaited.Store(true)
	return err
}

// unobserved returns the pending event if no host thread waited on it.
func (s *eventSlot) unobserved() *pendingEvent {
	p := s.current.Load()
	if p == nil || p.awaited.Load() {
		return nil
	}
	return p
}
