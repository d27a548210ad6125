package controller

import (
	"context"
	"log/slog"
)

// Option represents a functional option for configuring Runner.
type Option func(*Runner)

// WithLogHandler sets a custom slog handler for the Runner instance.
// For example, to use a custom JSON handler with debug level:
//
//	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
//	runner, err := controller.NewRunner(engine, controller.WithConfig(cfg), controller.WithLogHandler(handler))
func WithLogHandler(handler slog.Handler) Option {
	return func(r *Runner) {
		if handler != nil {
			r.logger = slog.New(handler.WithGroup("controller.Runner"))
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

// WithConfigCallback sets the function that will be called to load or reload configuration.
// Using this option or WithConfig is required.
func WithConfigCallback(callback ConfigCallback) Option {
	return func(r *Runner) {
		r.configCallback = callback
	}
}

// WithConfig sets a static configuration. Reload keeps it unchanged.
func WithConfig(cfg *Config) Option {
	return func(r *Runner) {
		r.configCallback = func() (*Config, error) {
			return cfg, nil
		}
	}
}

// WithName sets the name of the Runner instance.
func WithName(name string) Option {
	return func(r *Runner) {
		r.name = name
	}
}

// WithEventSource attaches a blocking source of external events.
func WithEventSource(src EventSource) Option {
	return func(r *Runner) {
		r.source = src
	}
}
