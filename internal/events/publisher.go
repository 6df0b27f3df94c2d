package events

import (
	"context"
	"log/slog"

	"authcore/internal/observability/middleware"
)

type Event interface {
	EventName() string
}

// Publisher fans security events out to whatever sink is configured.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// LogPublisher writes events as structured log records.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, e Event) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "security event",
		slog.String("event", e.EventName()),
		slog.Any("payload", e),
		slog.String("request_id", middleware.RequestIDFromContext(ctx)),
		slog.String("trace_id", middleware.TraceIDFromContext(ctx)),
	)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
