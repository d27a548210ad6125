package controller

import (
	"context"

	"github.com/robbyt/go-devicefsm/device"
)

// GetState returns the name of the current device state.
func (r *Runner) GetState() string {
	return r.engine.State().String()
}

// GetStateChan returns a channel that emits the device state whenever it changes.
// The channel is closed when the provided context is canceled.
func (r *Runner) GetStateChan(ctx context.Context) <-chan string {
	return r.engine.GetStateChan(ctx)
}

// IsRunning returns true if the Run loop is active.
func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// IsFaulted returns true if the device is in a fault state.
func (r *Runner) IsFaulted() bool {
	return r.engine.State().IsFault()
}

// DeviceState returns the current device state.
func (r *Runner) DeviceState() device.State {
	return r.engine.State()
}
