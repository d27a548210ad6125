package statusserver

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option represents a functional option for configuring Runner.
type Option func(*Runner)

// WithLogHandler sets a custom slog handler for the Runner instance.
func WithLogHandler(handler slog.Handler) Option {
	return func(r *Runner) {
		if handler != nil {
			r.logger = slog.New(handler.WithGroup("statusserver.Runner"))
		}
	}
}

// WithContext sets a custom context for the Runner instance.
func WithContext(ctx context.Context) Option {
	return func(r *Runner) {
		if ctx != nil {
			r.ctx, r.cancel = context.WithCancel(ctx)
		}
	}
}

// WithName sets the name of the Runner instance.
func WithName(name string) Option {
	return func(r *Runner) {
		r.name = name
	}
}

// WithGatherer serves the given gatherer on /metrics. Without it /metrics is not
// registered.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(r *Runner) {
		r.gatherer = g
	}
}

// WithServices sets the function reporting supervised service states on /state.
func WithServices(fn func() map[string]string) Option {
	return func(r *Runner) {
		r.services = fn
	}
}
