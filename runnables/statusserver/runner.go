package statusserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/robbyt/go-devicefsm/device"
	"github.com/robbyt/go-devicefsm/internal/finitestate"
	"github.com/robbyt/go-devicefsm/supervisor"
)

// Interface guards to ensure all of these are implemented
var (
	_ supervisor.Runnable     = (*Runner)(nil)
	_ supervisor.Stateable    = (*Runner)(nil)
	_ supervisor.ReloadSender = (*Runner)(nil)
)

// Device is the controller surface exposed over HTTP.
type Device interface {
	Snapshot() device.Snapshot
	Send(ctx context.Context, ev device.Event) error
	ToggleSilent() bool
}

// Runner serves the status API. It meets the Runnable, Stateable and ReloadSender
// interfaces from the supervisor package; POST /reload asks the supervisor to
// reload every service.
type Runner struct {
	name     string
	config   *Config
	dev      Device
	gatherer prometheus.Gatherer
	services func() map[string]string

	mutex         sync.Mutex
	server        *http.Server
	listener      net.Listener
	serverErrors  chan error
	reloadTrigger chan struct{}
	runDone       chan struct{}

	fsm    *finitestate.Machine
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewRunner creates a status server for dev.
func NewRunner(dev Device, cfg *Config, opts ...Option) (*Runner, error) {
	if dev == nil {
		return nil, ErrNoDevice
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is required", ErrServerBoot)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		config:        cfg,
		dev:           dev,
		serverErrors:  make(chan error, 1),
		reloadTrigger: make(chan struct{}, 1),
		ctx:           ctx,
		cancel:        cancel,
		logger:        slog.Default().WithGroup("statusserver.Runner"),
	}

	for _, opt := range opts {
		opt(r)
	}

	machine, err := finitestate.NewLifecycle(r.logger.WithGroup("fsm").Handler())
	if err != nil {
		return nil, fmt.Errorf("unable to create fsm: %w", err)
	}
	r.fsm = machine

	return r, nil
}

// String returns a string representation of the Runner instance
func (r *Runner) String() string {
	args := make([]string, 0, 2)
	if r.name != "" {
		args = append(args, "name: "+r.name)
	}
	args = append(args, "listening: "+r.config.ListenAddr)
	return fmt.Sprintf("StatusServer{%s}", strings.Join(args, ", "))
}

// Run starts the HTTP server and blocks until it is stopped.
func (r *Runner) Run(ctx context.Context) error {
	done := make(chan struct{})
	r.mutex.Lock()
	r.runDone = done
	r.mutex.Unlock()
	defer close(done)

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()

	if err := r.fsm.Transition(finitestate.StatusBooting); err != nil {
		return err
	}

	r.mutex.Lock()
	err := r.boot()
	r.mutex.Unlock()
	if err != nil {
		r.setStateError()
		return fmt.Errorf("%w: %w", ErrServerBoot, err)
	}

	if err := r.fsm.Transition(finitestate.StatusRunning); err != nil {
		r.setStateError()
		return err
	}

	select {
	case <-runCtx.Done():
		r.logger.Debug("Local context canceled")
	case <-r.ctx.Done():
		r.logger.Debug("Parent context canceled")
	case err := <-r.serverErrors:
		r.setStateError()
		return fmt.Errorf("%w: %w", ErrHttpServer, err)
	}

	if !r.fsm.TransitionBool(finitestate.StatusStopping) &&
		r.fsm.GetState() != finitestate.StatusStopping {
		r.setStateError()
		return fmt.Errorf("failed to transition to %s", finitestate.StatusStopping)
	}

	r.mutex.Lock()
	err = r.stopServer()
	r.mutex.Unlock()
	if err != nil {
		r.setStateError()
		return err
	}

	if err := r.fsm.Transition(finitestate.StatusStopped); err != nil {
		r.setStateError()
		return err
	}
	r.logger.Debug("Status server shut down gracefully")
	return nil
}

// Stop will cancel the parent context, which will close the HTTP server, and
// waits for Run to return.
func (r *Runner) Stop() {
	if err := r.fsm.TransitionIfCurrentState(finitestate.StatusRunning, finitestate.StatusStopping); err != nil {
		r.logger.Debug("Note: Not transitioning to Stopping state", "error", err)
	}
	r.cancel()

	r.mutex.Lock()
	done := r.runDone
	r.mutex.Unlock()
	if done != nil {
		<-done
	}
}

// GetReloadTrigger implements supervisor.ReloadSender.
func (r *Runner) GetReloadTrigger() <-chan struct{} {
	return r.reloadTrigger
}

// Addr returns the bound address, or nil before the server is listening.
func (r *Runner) Addr() net.Addr {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

func (r *Runner) boot() error {
	ln, err := net.Listen("tcp", r.config.ListenAddr)
	if err != nil {
		return err
	}
	r.listener = ln
	r.server = &http.Server{Handler: r.Handler()}

	r.logger.Info("Starting status server", "listenOn", ln.Addr().String())
	go func() {
		if err := r.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.serverErrors <- err
		}
	}()
	return nil
}

func (r *Runner) stopServer() error {
	if r.server == nil {
		return ErrServerNotRunning
	}

	timeout := r.config.DrainTimeout
	r.logger.Debug("Waiting for graceful HTTP server shutdown...", "timeout", timeout)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := r.server.Shutdown(ctx)
	r.server, r.listener = nil, nil
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrGracefulShutdownTimeout, ctx.Err())
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGracefulShutdown, err)
	}
	return nil
}
