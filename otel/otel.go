// Package otel provides OpenTelemetry instrumentation for the cqrs runtime:
// tracing and metrics decorators for dispatchers, event stores and consumers.
package otel

import (
	cqrs "github.com/terraskye/cqrs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/terraskye/cqrs"

// Semantic attribute keys following OpenTelemetry conventions.
const (
	AttrCommandType = attribute.Key("cqrs.command.type")
	AttrAggregateID = attribute.Key("cqrs.aggregate.id")

	AttrEventType  = attribute.Key("cqrs.event.type")
	AttrEventID    = attribute.Key("cqrs.event.id")
	AttrEventCount = attribute.Key("cqrs.events.count")
	AttrVersion    = attribute.Key("cqrs.stream.version")

	AttrConsumerGroup = attribute.Key("cqrs.consumer.group")
	AttrOperation     = attribute.Key("cqrs.operation")
)

var (
	meter  = otel.Meter(instrumentationName, metric.WithInstrumentationVersion(cqrs.InstrumentationVersion))
	tracer = otel.Tracer(instrumentationName, trace.WithInstrumentationVersion(cqrs.InstrumentationVersion))

	// Command metrics
	CommandsHandled, _ = meter.Int64Counter(
		"cqrs.commands.handled",
		metric.WithDescription("Total number of commands executed"),
		metric.WithUnit("{command}"),
	)

	CommandsFailed, _ = meter.Int64Counter(
		"cqrs.commands.failed",
		metric.WithDescription("Total number of failed command executions"),
		metric.WithUnit("{command}"),
	)

	CommandsDuration, _ = meter.Float64Histogram(
		"cqrs.commands.duration",
		metric.WithDescription("Command execution duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)

	// Event store metrics
	EventsAppended, _ = meter.Int64Counter(
		"cqrs.events.appended",
		metric.WithDescription("Number of events appended to streams"),
		metric.WithUnit("{event}"),
	)

	EventsLoaded, _ = meter.Int64Counter(
		"cqrs.events.loaded",
		metric.WithDescription("Number of events loaded from streams"),
		metric.WithUnit("{event}"),
	)

	EventStoreErrors, _ = meter.Int64Counter(
		"cqrs.eventstore.errors",
		metric.WithDescription("Number of event store failures"),
		metric.WithUnit("{error}"),
	)

	EventStoreDuration, _ = meter.Float64Histogram(
		"cqrs.eventstore.duration",
		metric.WithDescription("Event store operation duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000),
	)

	// Consumer metrics
	EventsConsumed, _ = meter.Int64Counter(
		"cqrs.events.consumed",
		metric.WithDescription("Number of events delivered to consumers"),
		metric.WithUnit("{event}"),
	)

	ConsumerErrors, _ = meter.Int64Counter(
		"cqrs.consumer.errors",
		metric.WithDescription("Number of consumer failures"),
		metric.WithUnit("{error}"),
	)

	// System metrics
	ConcurrencyConflicts, _ = meter.Int64Counter(
		"cqrs.concurrency.conflicts",
		metric.WithDescription("Number of concurrency conflicts on append"),
		metric.WithUnit("{conflict}"),
	)
)
