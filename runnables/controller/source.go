package controller

import (
	"context"

	"github.com/robbyt/go-devicefsm/device"
)

// EventSource delivers external events to the driver loop.
type EventSource interface {
	// NextEvent blocks until the next event arrives or ctx is done.
	NextEvent(ctx context.Context) (device.Event, error)
}

// ChanSource adapts a channel to EventSource. A closed channel ends the source.
type ChanSource <-chan device.Event

// NextEvent implements EventSource.
func (c ChanSource) NextEvent(ctx context.Context) (device.Event, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case ev, ok := <-c:
		if !ok {
			return 0, ErrSourceClosed
		}
		return ev, nil
	}
}
