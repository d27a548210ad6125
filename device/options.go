package device

import "log/slog"

// Option represents a functional option for configuring an Engine.
type Option func(*Engine)

// WithLogHandler sets a custom slog handler for the Engine instance.
func WithLogHandler(handler slog.Handler) Option {
	return func(e *Engine) {
		if handler != nil {
			e.logger = slog.New(handler.WithGroup("device.Engine"))
		}
	}
}

// WithTable replaces the default transition table.
func WithTable(table *Table) Option {
	return func(e *Engine) {
		if table != nil {
			e.table = table
		}
	}
}

// WithSilentSwitch sets the switch the steady-state selector reads from. The
// producer side (a button interrupt, a signal handler) keeps a reference to it.
func WithSilentSwitch(s *SilentSwitch) Option {
	return func(e *Engine) {
		if s != nil {
			e.silent = s
		}
	}
}

// WithSettings sets the engine settings. They are validated by NewEngine.
func WithSettings(s Settings) Option {
	return func(e *Engine) {
		e.settings = s
	}
}

// WithObserver registers an observer for transitions and ignored events.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}
