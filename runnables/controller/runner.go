package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/robbyt/go-devicefsm/device"
	"github.com/robbyt/go-devicefsm/supervisor"
)

// Interface guards to ensure all of these are implemented
var (
	_ supervisor.Runnable      = (*Runner)(nil)
	_ supervisor.Reloadable    = (*Runner)(nil)
	_ supervisor.Stateable     = (*Runner)(nil)
	_ supervisor.SilentToggler = (*Runner)(nil)
)

// Runner drives a device.Engine. It re-checks sensors on a fixed period, delivers
// external events and silent-mode changes, and schedules delayed follow-ups such as
// the board boot retry. It meets the Runnable, Reloadable, Stateable and
// SilentToggler interfaces from the supervisor package.
type Runner struct {
	name           string
	engine         *device.Engine
	source         EventSource
	config         atomic.Pointer[Config]
	configCallback ConfigCallback
	running        atomic.Bool

	events  chan device.Event
	delayed chan device.Event
	reloads chan struct{}

	// set by Run, used only from the Run goroutine
	runCtx    context.Context
	runLogger *slog.Logger

	runMu   sync.Mutex
	runDone chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewRunner creates a Runner for engine. The engine must not be started.
func NewRunner(engine *device.Engine, opts ...Option) (*Runner, error) {
	if engine == nil {
		return nil, ErrNoEngine
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &Runner{
		engine:  engine,
		events:  make(chan device.Event),
		delayed: make(chan device.Event),
		reloads: make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		logger:  slog.Default().WithGroup("controller.Runner"),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.configCallback == nil {
		return nil, fmt.Errorf("%w: use WithConfig or WithConfigCallback", ErrNoConfig)
	}
	if cfg := r.getConfig(); cfg == nil {
		return nil, errors.New("failed to load initial config")
	}

	return r, nil
}

// String returns a string representation of the Runner instance
func (r *Runner) String() string {
	args := make([]string, 0, 2)
	if r.name != "" {
		args = append(args, "name: "+r.name)
	}
	args = append(args, "state: "+r.GetState())
	return fmt.Sprintf("DeviceController{%s}", strings.Join(args, ", "))
}

// Run starts the engine and drives it until the context is canceled or Stop is
// called. It returns an error wrapping device.ErrFatal if the engine hits a
// programming defect; the process should not try to recover from that.
func (r *Runner) Run(ctx context.Context) error {
	done := make(chan struct{})
	r.runMu.Lock()
	r.runDone = done
	r.runMu.Unlock()
	defer close(done)

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()

	logger := r.logger.With("bootID", uuid.NewString())
	r.runCtx, r.runLogger = runCtx, logger

	cfg := r.getConfig()
	if cfg == nil {
		return ErrNoConfig
	}
	if err := r.engine.UpdateSettings(cfg.Settings); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	logger.Info("Starting device controller", "config", cfg)
	r.running.Store(true)
	defer r.running.Store(false)

	if err := r.handle(r.engine.Start()); err != nil {
		return err
	}

	if r.source != nil {
		go r.pumpSource(runCtx, logger)
	}

	applied := cfg
	ticker := time.NewTicker(cfg.Period)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-runCtx.Done():
			logger.Debug("Local context canceled")
			return nil
		case <-r.ctx.Done():
			logger.Debug("Parent context canceled")
			return nil
		case <-ticker.C:
			err = r.handle(r.engine.Tick())
		case ev := <-r.events:
			err = r.handle(r.engine.Pump(ev))
		case ev := <-r.delayed:
			err = r.handle(r.engine.Pump(ev))
		case <-r.engine.Silent().Changed():
			logger.Debug("Silent mode changed", "silent", r.engine.Silent().Silent())
			err = r.handle(r.engine.Pump(device.SilentButton))
		case <-r.reloads:
			applied = r.applyConfig(logger, applied, ticker)
		}
		if err != nil {
			return err
		}
	}
}

// Stop will cancel the parent context and wait for Run to return.
func (r *Runner) Stop() {
	r.logger.Debug("Stopping device controller")
	r.cancel()

	r.runMu.Lock()
	done := r.runDone
	r.runMu.Unlock()
	if done != nil {
		<-done
	}
}

// Send delivers an external event to the running loop. It blocks until the loop
// accepts it or ctx is done.
func (r *Runner) Send(ctx context.Context, ev device.Event) error {
	if !ev.Valid() {
		return fmt.Errorf("%w: %s", device.ErrUnknownEvent, ev)
	}
	if !r.running.Load() {
		return ErrNotRunning
	}
	select {
	case r.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.ctx.Done():
		return ErrNotRunning
	}
}

// ToggleSilent flips silent mode. It is the interrupt-equivalent producer for the
// silent flag and never blocks.
func (r *Runner) ToggleSilent() bool {
	silent := r.engine.Silent().Toggle()
	r.logger.Info("Silent mode toggled", "silent", silent)
	return silent
}

// Snapshot returns the engine state and last actuator commands.
func (r *Runner) Snapshot() device.Snapshot {
	return r.engine.Snapshot()
}

// handle logs the outcome of an engine call, schedules its delayed follow-ups and
// turns fatal engine errors into a Run error.
func (r *Runner) handle(steps []device.Step, delayed []device.Followup, err error) error {
	logger := r.runLogger
	for _, s := range steps {
		if s.Ignored || s.From == s.To {
			continue
		}
		logger.Info("State changed", "from", s.From, "to", s.To, "event", s.Event)
	}
	r.schedule(r.runCtx, delayed)

	if err == nil {
		return nil
	}
	if errors.Is(err, device.ErrFatal) {
		logger.Error("Device state machine is inconsistent", "error", err)
		return fmt.Errorf("%w: %w", ErrEngine, err)
	}
	logger.Warn("Event rejected", "error", err)
	return nil
}

// schedule delivers each follow-up to the loop after its delay.
func (r *Runner) schedule(ctx context.Context, followups []device.Followup) {
	for _, f := range followups {
		r.logger.Debug("Scheduling follow-up", "event", f.Event, "after", f.After)
		time.AfterFunc(f.After, func() {
			select {
			case r.delayed <- f.Event:
			case <-ctx.Done():
			}
		})
	}
}

func (r *Runner) pumpSource(ctx context.Context, logger *slog.Logger) {
	for {
		ev, err := r.source.NextEvent(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("Event source stopped", "error", err)
			}
			return
		}
		select {
		case r.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}
