package otel

import (
	"context"
	"time"

	cqrs "github.com/terraskye/cqrs"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// TracedDispatcher wraps a Dispatcher with a span and metrics around each
// command execution.
type TracedDispatcher[A cqrs.Aggregate] struct {
	next cqrs.Dispatcher[A]
}

// NewTracedDispatcher decorates the given dispatcher.
func NewTracedDispatcher[A cqrs.Aggregate](next cqrs.Dispatcher[A]) *TracedDispatcher[A] {
	return &TracedDispatcher[A]{next: next}
}

// Execute implements the Execute method of the Dispatcher interface.
func (t *TracedDispatcher[A]) Execute(ctx context.Context, aggregateID string, command cqrs.Command) (A, error) {
	commandType := cqrs.TypeName(command)

	ctx, span := tracer.Start(ctx, "Dispatcher.Execute",
		trace.WithAttributes(
			AttrCommandType.String(commandType),
			AttrAggregateID.String(aggregateID),
		),
	)
	defer span.End()

	start := time.Now()
	aggregate, err := t.next.Execute(ctx, aggregateID, command)

	attrs := metric.WithAttributes(AttrCommandType.String(commandType))
	CommandsHandled.Add(ctx, 1, attrs)
	CommandsDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)

	if err != nil {
		CommandsFailed.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return aggregate, err
}
