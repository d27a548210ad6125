/*
Copyright 2024 Robert Terhaar <robbyt@robbyt.net>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ErrNoRunnables is returned by New when there is nothing to supervise.
var ErrNoRunnables = errors.New("no runnables provided")

// PIDZero runs the runnables and handles OS signals for shutdown, reload and the
// silent-mode button.
type PIDZero struct {
	ctx                context.Context
	cancel             context.CancelFunc
	runnables          []Runnable
	SignalChan         chan os.Signal
	errorChan          chan error
	wg                 sync.WaitGroup
	signalListenerOnce sync.Once
	shutdownOnce       sync.Once
	subscribeSignals   []os.Signal
	silentSignal       os.Signal
	reloadListener     chan struct{}
	stateMap           sync.Map
	stateSubscribers   sync.Map
	subscriberMutex    sync.Mutex
	logger             *slog.Logger
}

// Option represents a functional option for configuring PIDZero.
type Option func(*PIDZero)

// WithLogHandler sets a custom slog handler for the PIDZero instance.
func WithLogHandler(handler slog.Handler) Option {
	return func(p *PIDZero) {
		if handler != nil {
			p.logger = slog.New(handler.WithGroup("Supervisor"))
		}
	}
}

// WithSignals sets custom signals for the PIDZero instance to listen for.
func WithSignals(signals ...os.Signal) Option {
	return func(p *PIDZero) {
		p.subscribeSignals = signals
	}
}

// WithSilentSignal sets the signal that toggles silent mode. It is added to the
// subscribed signals. Passing nil disables the silent signal.
func WithSilentSignal(sig os.Signal) Option {
	return func(p *PIDZero) {
		p.silentSignal = sig
	}
}

// WithContext sets a custom context for the PIDZero instance.
func WithContext(ctx context.Context) Option {
	return func(p *PIDZero) {
		if ctx != nil {
			p.ctx, p.cancel = context.WithCancel(ctx)
		}
	}
}

// WithRunnables sets the runnables to be managed by the PIDZero instance.
func WithRunnables(runnables ...Runnable) Option {
	return func(p *PIDZero) {
		if len(runnables) > 0 {
			p.runnables = runnables
		}
	}
}

// New creates a new PIDZero instance with the provided options.
func New(opts ...Option) (*PIDZero, error) {
	ctx, cancel := context.WithCancel(context.Background())

	p := &PIDZero{
		ctx:    ctx,
		cancel: cancel,
		subscribeSignals: []os.Signal{
			syscall.SIGINT,
			syscall.SIGTERM,
			syscall.SIGHUP,
		},
		silentSignal:   syscall.SIGUSR1,
		SignalChan:     make(chan os.Signal, 1), // OS signals must be buffered
		reloadListener: make(chan struct{}),
		logger:         slog.Default().WithGroup("Supervisor"),
	}

	for _, opt := range opts {
		opt(p)
	}

	if len(p.runnables) == 0 {
		return nil, ErrNoRunnables
	}
	p.errorChan = make(chan error, len(p.runnables)*2)

	return p, nil
}

// String returns a string representation of the PIDZero instance.
func (p *PIDZero) String() string {
	return fmt.Sprintf("Supervisor<runnables: %d>", len(p.runnables))
}

// Run starts all runnables and blocks until shutdown. It returns the first error
// reported by a runnable, which is how a fatal device fault reaches main.
func (p *PIDZero) Run() error {
	p.logger.Debug("Starting...")
	defer p.logger.Info("Goodbye!")

	p.listenForSignals()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.startReloadManager()
	}()

	go p.startStateMonitor()

	for _, r := range p.runnables {
		p.wg.Add(1)
		go p.startRunnable(r)
	}

	return p.reap()
}

// Shutdown stops all runnables in reverse order and waits for them to exit.
func (p *PIDZero) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.logger.Info("Graceful shutdown has been initiated...")
		signal.Stop(p.SignalChan)

		for i := len(p.runnables) - 1; i >= 0; i-- {
			r := p.runnables[i]
			p.logger.Debug("Stopping", "runnable", r)
			r.Stop()
			if s, ok := r.(Stateable); ok {
				finalState := s.GetState()
				p.stateMap.Store(r, finalState)
				p.logger.Debug("Post-shutdown state", "runnable", r, "state", finalState)
			}
		}

		p.logger.Debug("Waiting for runnables to complete...")
		p.cancel()
		p.wg.Wait()
		close(p.errorChan)
		p.logger.Debug("Shutdown complete.")
	})
}

func (p *PIDZero) listenForSignals() {
	p.signalListenerOnce.Do(func() {
		signals := p.subscribeSignals
		if p.silentSignal != nil {
			signals = append(signals, p.silentSignal)
		}
		p.logger.Debug("Listening for signals", "signals", signals)
		signal.Notify(p.SignalChan, signals...)
	})
}

func (p *PIDZero) startRunnable(r Runnable) {
	defer p.wg.Done()

	if s, ok := r.(Stateable); ok {
		initialState := s.GetState()
		p.stateMap.Store(r, initialState)
		p.logger.Debug("Initial state", "runnable", r, "state", initialState)
	}

	if err := r.Run(p.ctx); err != nil {
		p.logger.Error("Runnable failed", "runnable", r, "error", err)
		p.errorChan <- fmt.Errorf("%s: %w", r, err)
	}
}

// reap listens for errors or OS signals and handles them until shutdown.
func (p *PIDZero) reap() error {
	for {
		select {
		case err := <-p.errorChan:
			p.Shutdown()
			return err
		case <-p.ctx.Done():
			p.logger.Debug("Supervisor context canceled")
			p.Shutdown()
			return nil
		case sig := <-p.SignalChan:
			p.logger.Debug("Received signal", "signal", sig)
			switch {
			case sig == syscall.SIGINT || sig == syscall.SIGTERM:
				p.Shutdown()
				return nil
			case sig == syscall.SIGHUP:
				p.ReloadAll()
			case p.silentSignal != nil && sig == p.silentSignal:
				p.ToggleSilentAll()
			default:
				p.logger.Debug("Unhandled signal received", "signal", sig)
			}
		}
	}
}
