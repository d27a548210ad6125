package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robbyt/go-devicefsm/internal/finitestate"
)

const (
	// maxChain bounds how many immediate follow-up events one Pump may process.
	maxChain = 64

	stateChanBuffer = 16
)

// ErrFollowupLoop is returned when immediate follow-ups never settle.
var ErrFollowupLoop = errors.New("immediate follow-up events did not settle")

// Settings tunes the engine.
type Settings struct {
	// MaxTempC is the over-temperature threshold. Readings strictly above it are faults.
	MaxTempC float64
	// RetryDelay is how long Halt waits before retrying board initialization.
	RetryDelay time.Duration
	// InitResume decides which previous states Init resumes directly.
	InitResume InitResume
}

// DefaultSettings returns the settings used when none are given.
func DefaultSettings() Settings {
	return Settings{
		MaxTempC:   DefaultMaxTempC,
		RetryDelay: time.Second,
		InitResume: ResumeUnlessInitMain,
	}
}

// Validate checks the settings for values the engine cannot work with.
func (s Settings) Validate() error {
	if s.RetryDelay <= 0 {
		return fmt.Errorf("%w: retry delay must be positive, got %v", ErrInvalidSettings, s.RetryDelay)
	}
	if s.InitResume != ResumeUnlessInitMain && s.InitResume != ResumeOperationalOnly {
		return fmt.Errorf("%w: unknown init resume mode %d", ErrInvalidSettings, s.InitResume)
	}
	return nil
}

// Observer is notified about every dispatched event. Calls happen on the goroutine
// that drives the engine.
type Observer interface {
	Transitioned(from, to State, ev Event)
	Ignored(s State, ev Event)
}

// Step describes the outcome of dispatching one event.
type Step struct {
	From      State
	To        State
	Event     Event
	Previous  Previous
	Ignored   bool
	Followups []Followup
}

// Snapshot is a consistent view of the engine, safe to take from any goroutine.
type Snapshot struct {
	State    State
	Previous Previous
	Silent   bool
	Output   int
	FansOn   bool
}

// Engine is the table-driven device state machine. Start, Dispatch, Pump and Tick
// must be called from a single goroutine; Snapshot, State and the state channel
// may be used concurrently.
type Engine struct {
	hw       Hardware
	table    *Table
	silent   *SilentSwitch
	settings Settings
	observer Observer
	machine  *finitestate.Machine
	logger   *slog.Logger

	mu       sync.RWMutex
	started  bool
	current  State
	previous Previous
	output   int
	fans     bool
}

// NewEngine creates an engine for hw in PowerOnReset. Call Start to enter it.
func NewEngine(hw Hardware, opts ...Option) (*Engine, error) {
	if hw == nil {
		return nil, ErrNoHardware
	}

	e := &Engine{
		hw:       hw,
		settings: DefaultSettings(),
		current:  PowerOnReset,
		previous: NoPrevious,
		logger:   slog.Default().WithGroup("device.Engine"),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.table == nil {
		e.table = DefaultTable()
	}
	if e.silent == nil {
		e.silent = NewSilentSwitch()
	}
	if err := e.settings.Validate(); err != nil {
		return nil, err
	}

	machine, err := finitestate.New(e.logger.WithGroup("fsm").Handler(), PowerOnReset.String(), Transitions)
	if err != nil {
		return nil, fmt.Errorf("unable to create fsm: %w", err)
	}
	e.machine = machine

	return e, nil
}

func (e *Engine) String() string {
	return fmt.Sprintf("Engine<state: %s>", e.State())
}

// Start enters PowerOnReset with no previous state and processes the start-up
// chain until it settles or needs a delayed event.
func (e *Engine) Start() ([]Step, []Followup, error) {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return nil, nil, errors.New("engine already started")
	}
	e.started = true
	e.current = PowerOnReset
	e.previous = NoPrevious
	e.mu.Unlock()

	return e.drain(e.enter(PowerOnReset))
}

// Dispatch delivers one event. Events without a table entry for the current state
// are ignored: nothing changes and no side effect runs.
func (e *Engine) Dispatch(ev Event) (Step, error) {
	e.mu.RLock()
	started, cur, prev := e.started, e.current, e.previous
	e.mu.RUnlock()

	if !started {
		return Step{}, ErrNotStarted
	}
	if !cur.Valid() {
		return Step{}, fmt.Errorf("%w: %w: current state %s", ErrFatal, ErrUnknownState, cur)
	}
	if !ev.Valid() {
		return Step{}, fmt.Errorf("%w: %s", ErrUnknownEvent, ev)
	}

	handler, ok := e.table.Lookup(cur, ev)
	if !ok {
		e.logger.Debug("Ignoring event", "state", cur, "event", ev)
		if e.observer != nil {
			e.observer.Ignored(cur, ev)
		}
		return Step{From: cur, To: cur, Event: ev, Previous: prev, Ignored: true}, nil
	}

	next := handler(&Context{Current: cur, Previous: prev, Event: ev, engine: e})
	if !next.Valid() {
		return Step{}, fmt.Errorf("%w: %w: handler for %s/%s returned %s", ErrFatal, ErrUnknownState, cur, ev, next)
	}
	if next != cur {
		if err := e.machine.Transition(next.String()); err != nil {
			return Step{}, fmt.Errorf("%w: %w: %s -> %s on %s: %w", ErrFatal, ErrIllegalTransition, cur, next, ev, err)
		}
	}

	// Moving between fault states keeps the steady state to restore.
	newPrev := PreviousOf(cur)
	if cur.IsFault() && next.IsFault() {
		newPrev = prev
	}

	e.mu.Lock()
	e.current = next
	e.previous = newPrev
	e.mu.Unlock()

	step := Step{From: cur, To: next, Event: ev, Previous: newPrev}
	if next == cur {
		return step, nil
	}

	e.logger.Debug("Transition", "from", cur, "to", next, "event", ev, "previous", newPrev)
	if e.observer != nil {
		e.observer.Transitioned(cur, next, ev)
	}
	step.Followups = e.enter(next)
	return step, nil
}

// Pump dispatches ev and every immediate follow-up it causes, in order. Delayed
// follow-ups are returned for the caller to schedule.
func (e *Engine) Pump(ev Event) ([]Step, []Followup, error) {
	return e.drain([]Followup{{Event: ev}})
}

// Tick samples the sensors and pumps the resulting event, if any. It is the
// non-blocking re-check that keeps fault states responsive.
func (e *Engine) Tick() ([]Step, []Followup, error) {
	ev, ok := e.Sample()
	if !ok {
		return nil, nil, nil
	}
	return e.Pump(ev)
}

func (e *Engine) drain(queue []Followup) ([]Step, []Followup, error) {
	var (
		steps   []Step
		delayed []Followup
	)
	for len(queue) > 0 {
		if len(steps) >= maxChain {
			return steps, delayed, fmt.Errorf("%w: %w after %d steps", ErrFatal, ErrFollowupLoop, len(steps))
		}
		f := queue[0]
		queue = queue[1:]
		if f.After > 0 {
			delayed = append(delayed, f)
			continue
		}

		step, err := e.Dispatch(f.Event)
		if err != nil {
			return steps, delayed, err
		}
		steps = append(steps, step)
		queue = append(queue, step.Followups...)
	}
	return steps, delayed, nil
}

// UpdateSettings replaces the engine settings. Call it from the driving goroutine.
func (e *Engine) UpdateSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.settings = s
	e.mu.Unlock()
	return nil
}

// Settings returns the active settings. It is safe to call from any goroutine.
func (e *Engine) Settings() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// Silent returns the switch the engine reads the silent flag from.
func (e *Engine) Silent() *SilentSwitch {
	return e.silent
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// Previous returns the previous state.
func (e *Engine) Previous() Previous {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.previous
}

// Snapshot returns the current state together with the last actuator commands.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Snapshot{
		State:    e.current,
		Previous: e.previous,
		Silent:   e.silent.Silent(),
		Output:   e.output,
		FansOn:   e.fans,
	}
}

// GetStateChan returns a channel that emits the name of the device state whenever
// it changes. Dispatch never blocks on subscribers: a reader that falls more than
// stateChanBuffer updates behind misses the oldest ones. The channel is closed when
// ctx is canceled.
func (e *Engine) GetStateChan(ctx context.Context) <-chan string {
	return e.machine.GetStateChanAsync(ctx, stateChanBuffer)
}
