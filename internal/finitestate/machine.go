// Package finitestate wraps go-fsm. The device package builds its own transition
// graph on it; services use the lifecycle graph from NewLifecycle.
package finitestate

import (
	"context"
	"log/slog"
	"time"

	"github.com/robbyt/go-fsm"
)

// Lifecycle states for services run by the supervisor.
const (
	StatusNew      = fsm.StatusNew
	StatusBooting  = fsm.StatusBooting
	StatusRunning  = fsm.StatusRunning
	StatusStopping = fsm.StatusStopping
	StatusStopped  = fsm.StatusStopped
	StatusError    = fsm.StatusError
	StatusUnknown  = fsm.StatusUnknown
)

// LifecycleTransitions is the service lifecycle graph. A stopped service can be
// booted again.
var LifecycleTransitions = map[string][]string{
	StatusNew:      {StatusBooting, StatusError},
	StatusBooting:  {StatusRunning, StatusStopping, StatusError},
	StatusRunning:  {StatusStopping, StatusError},
	StatusStopping: {StatusStopped, StatusError},
	StatusStopped:  {StatusBooting, StatusError},
	StatusError:    {StatusNew, StatusStopped},
	StatusUnknown:  {StatusNew},
}

const syncTimeout = 5 * time.Second

// Machine is a wrapper around go-fsm.Machine that provides additional functionality.
type Machine struct {
	*fsm.Machine
}

// GetStateChanWithTimeout returns a channel that emits the state whenever it changes.
// Slow readers are dropped after a sync timeout instead of stalling the sender.
// The channel is closed when the provided context is canceled.
func (s *Machine) GetStateChanWithTimeout(ctx context.Context) <-chan string {
	return s.GetStateChanWithOptions(ctx, fsm.WithSyncTimeout(syncTimeout))
}

// GetStateChanAsync returns a buffered channel that emits the state whenever it
// changes. Transition never waits on it: when the buffer is full the update is
// dropped. The channel is closed when the provided context is canceled.
func (s *Machine) GetStateChanAsync(ctx context.Context, size int) <-chan string {
	return s.GetStateChanWithOptions(ctx, fsm.WithBufferSize(size))
}

// New creates a new finite state machine starting in initial. Only the edges listed
// in transitions are accepted by Transition; every state that can be entered must
// appear as a key, even when it has no outgoing edges.
func New(handler slog.Handler, initial string, transitions map[string][]string) (*Machine, error) {
	f, err := fsm.New(handler, initial, transitions)
	if err != nil {
		return nil, err
	}
	return &Machine{Machine: f}, nil
}

// NewLifecycle creates a machine in StatusNew using LifecycleTransitions.
func NewLifecycle(handler slog.Handler) (*Machine, error) {
	return New(handler, StatusNew, LifecycleTransitions)
}
