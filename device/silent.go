package device

import "sync/atomic"

// SilentSwitch carries the silent-mode flag from a single asynchronous producer
// (the button interrupt) to the engine. Writes are last-write-wins; every write
// also leaves a pending notification in a one-slot channel so the driver loop can
// react without polling.
type SilentSwitch struct {
	silent atomic.Bool
	notify chan struct{}
}

// NewSilentSwitch returns a switch with silent mode off.
func NewSilentSwitch() *SilentSwitch {
	return &SilentSwitch{notify: make(chan struct{}, 1)}
}

// Silent returns the most recently written value.
func (s *SilentSwitch) Silent() bool {
	return s.silent.Load()
}

// Set stores the flag and signals the consumer. It never blocks.
func (s *SilentSwitch) Set(silent bool) {
	s.silent.Store(silent)
	s.signal()
}

// Toggle flips the flag and returns the new value. It never blocks.
func (s *SilentSwitch) Toggle() bool {
	for {
		old := s.silent.Load()
		if s.silent.CompareAndSwap(old, !old) {
			s.signal()
			return !old
		}
	}
}

// Changed returns a channel that receives after each write. Writes that happen
// while a notification is pending are coalesced into it.
func (s *SilentSwitch) Changed() <-chan struct{} {
	return s.notify
}

func (s *SilentSwitch) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
