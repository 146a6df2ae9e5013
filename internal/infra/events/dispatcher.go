// Package events dispatches domain events to statically registered handlers.
package events

import (
	"context"
	"log/slog"

	"passport/internal/domain/service"
)

// dispatcher implements service.EventPublisher with synchronous, in-process
// delivery. Handler failures are logged and never propagate back into the
// operation that published the event.
type dispatcher struct {
	handlers []service.EventHandler
	logger   *slog.Logger
}

// NewDispatcher creates the event dispatcher with the given handlers.
func NewDispatcher(logger *slog.Logger, handlers ...service.EventHandler) service.EventPublisher {
	return &dispatcher{
		handlers: handlers,
		logger:   logger,
	}
}

// Publish delivers the event to every registered handler.
func (d *dispatcher) Publish(ctx context.Context, event service.Event) {
	for _, handler := range d.handlers {
		d.dispatch(ctx, handler, event)
	}
}

func (d *dispatcher) dispatch(ctx context.Context, handler service.EventHandler, event service.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "event handler panicked",
				slog.Any("panic", r),
			)
		}
	}()

	handler.Handle(ctx, event)
}
