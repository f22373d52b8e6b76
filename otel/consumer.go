package otel

import (
	"context"

	cqrs "github.com/terraskye/cqrs"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// WithConsumerTracing wraps an EventConsumer so every delivered event gets a
// span and per-group counters. Skipped events are recorded as deliveries, not
// errors.
func WithConsumerTracing(group string, next cqrs.EventConsumer) cqrs.EventConsumer {
	return cqrs.ConsumerFunc(func(ctx context.Context, event cqrs.Event) error {
		ctx, span := tracer.Start(ctx, "Consumer.Process",
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				AttrConsumerGroup.String(group),
				AttrEventType.String(event.EventType),
				AttrEventID.String(event.ID.String()),
				AttrAggregateID.String(event.AggregateID),
				AttrVersion.Int64(int64(event.Version)),
			),
		)
		defer span.End()

		err := next.Process(ctx, event)

		attrs := metric.WithAttributes(
			AttrConsumerGroup.String(group),
			AttrEventType.String(event.EventType),
		)
		EventsConsumed.Add(ctx, 1, attrs)

		if err != nil && !cqrs.IsSkippedEvent(err) {
			ConsumerErrors.Add(ctx, 1, attrs)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		return err
	})
}
