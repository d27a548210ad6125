// Package statusserver serves the device state, Prometheus metrics and a small
// control API over HTTP. It runs under the supervisor next to the controller.
package statusserver

import "errors"

var (
	ErrNoDevice                = errors.New("no device provided")
	ErrServerBoot              = errors.New("failed to start status server")
	ErrHttpServer              = errors.New("http server error")
	ErrGracefulShutdown        = errors.New("graceful shutdown failed")
	ErrGracefulShutdownTimeout = errors.New("graceful shutdown deadline reached")
	ErrServerNotRunning        = errors.New("status server is not running")
)
