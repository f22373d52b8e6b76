package otel

import (
	"context"
	"errors"
	"time"

	cqrs "github.com/terraskye/cqrs"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var _ cqrs.EventStore = (*TelemetryStore)(nil)

// TelemetryStore wraps an EventStore with spans and metrics per operation.
type TelemetryStore struct {
	next cqrs.EventStore
}

// NewTelemetryStore decorates the given store.
func NewTelemetryStore(next cqrs.EventStore) *TelemetryStore {
	return &TelemetryStore{next: next}
}

// SaveEvents implements the SaveEvents method of the EventStore interface.
func (t *TelemetryStore) SaveEvents(ctx context.Context, aggregateID string, events []cqrs.Event) error {
	ctx, span := tracer.Start(ctx, "EventStore.SaveEvents",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			AttrOperation.String("save"),
			AttrAggregateID.String(aggregateID),
			AttrEventCount.Int(len(events)),
		),
	)
	defer span.End()

	start := time.Now()
	err := t.next.SaveEvents(ctx, aggregateID, events)

	EventStoreDuration.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(AttrOperation.String("save")),
	)

	if err != nil {
		var conflict *cqrs.ConcurrencyError
		if errors.As(err, &conflict) {
			ConcurrencyConflicts.Add(ctx, 1)
		}
		EventStoreErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	EventsAppended.Add(ctx, int64(len(events)))
	if len(events) > 0 {
		span.SetAttributes(AttrVersion.Int64(int64(events[len(events)-1].Version)))
	}
	return nil
}

// LoadEvents implements the LoadEvents method of the EventStore interface.
func (t *TelemetryStore) LoadEvents(ctx context.Context, aggregateID string) ([]cqrs.Event, error) {
	ctx, span := tracer.Start(ctx, "EventStore.LoadEvents",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			AttrOperation.String("load"),
			AttrAggregateID.String(aggregateID),
		),
	)
	defer span.End()

	start := time.Now()
	events, err := t.next.LoadEvents(ctx, aggregateID)

	EventStoreDuration.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(AttrOperation.String("load")),
	)

	if err != nil {
		// Not-found means "new aggregate" to callers, not a backend failure.
		if !cqrs.IsAggregateNotFound(err) {
			EventStoreErrors.Add(ctx, 1)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return events, err
	}

	EventsLoaded.Add(ctx, int64(len(events)))
	span.SetAttributes(AttrEventCount.Int(len(events)))
	return events, nil
}
