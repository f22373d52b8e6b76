package logging

import (
	"context"
	"log/slog"

	cqrs "github.com/terraskye/cqrs"
)

// WithConsumerLogging wraps an EventConsumer with slog-based logging, reading
// the envelope attributes from the context populated by the fan-out.
func WithConsumerLogging(logger *slog.Logger, next cqrs.EventConsumer) cqrs.EventConsumer {
	return cqrs.ConsumerFunc(func(ctx context.Context, event cqrs.Event) error {
		l := logger.With(
			"event_type", cqrs.EventTypeFromContext(ctx),
			"event_id", cqrs.EventIDFromContext(ctx),
			"aggregate_id", cqrs.AggregateIDFromContext(ctx),
			"version", cqrs.VersionFromContext(ctx),
		)

		l.DebugContext(ctx, "event processing started")

		err := next.Process(ctx, event)

		switch {
		case cqrs.IsSkippedEvent(err):
			l.DebugContext(ctx, "event skipped")
		case err != nil:
			l.ErrorContext(ctx, "error processing event", "error", err)
		default:
			l.DebugContext(ctx, "event processed")
		}

		return err
	})
}
