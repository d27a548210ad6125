// Package controller provides the driver loop of the device state machine as a
// runnable that can be managed by the supervisor package.
package controller

import "errors"

var (
	ErrNoEngine          = errors.New("no engine provided")
	ErrNoConfig          = errors.New("no config provided")
	ErrInvalidConfig     = errors.New("invalid controller config")
	ErrConfigCallbackNil = errors.New("config callback returned nil")
	ErrConfigCallback    = errors.New("failed to load configuration from callback")
	ErrOldConfig         = errors.New("config hasn't changed since last update")
	ErrEngine            = errors.New("device engine failed")
	ErrSourceClosed      = errors.New("event source closed")
	ErrNotRunning        = errors.New("controller is not running")
)
