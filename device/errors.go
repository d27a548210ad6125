// Package device implements the table-driven state machine that controls a fan and
// a variable output guarded by a removable cover and a temperature sensor.
package device

import "errors"

var (
	// ErrFatal marks programming defects the engine cannot recover from. Callers
	// should stop the process with a diagnostic when errors.Is(err, ErrFatal).
	ErrFatal = errors.New("fatal state machine error")

	ErrUnknownState      = errors.New("unknown state")
	ErrUnknownEvent      = errors.New("unknown event")
	ErrIllegalTransition = errors.New("transition not allowed")
	ErrDuplicateEntry    = errors.New("duplicate transition table entry")
	ErrIncompleteTable   = errors.New("transition table has no entry for state")
	ErrNilHandler        = errors.New("transition table entry has nil handler")
	ErrNoHardware        = errors.New("no hardware provided")
	ErrNotStarted        = errors.New("engine not started")
	ErrInvalidSettings   = errors.New("invalid settings")
)
