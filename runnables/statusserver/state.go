package statusserver

import (
	"context"

	"github.com/robbyt/go-devicefsm/internal/finitestate"
)

// setStateError moves the lifecycle to Error, forcing it if the edge is not allowed.
func (r *Runner) setStateError() {
	if r.fsm.TransitionBool(finitestate.StatusError) {
		return
	}
	if err := r.fsm.SetState(finitestate.StatusError); err != nil {
		r.logger.Error("Failed to set Error state", "error", err)
	}
}

// GetState returns the lifecycle state of the server.
func (r *Runner) GetState() string {
	return r.fsm.GetState()
}

// GetStateChan returns a channel that emits the server's state whenever it changes.
// The channel is closed when the provided context is canceled.
func (r *Runner) GetStateChan(ctx context.Context) <-chan string {
	return r.fsm.GetStateChanWithTimeout(ctx)
}

// IsRunning returns true if the HTTP server is currently running.
func (r *Runner) IsRunning() bool {
	return r.fsm.GetState() == finitestate.StatusRunning
}
