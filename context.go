package cqrs

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ctxKey string

const (
	aggregateIDKey ctxKey = "aggregateID"
	eventIDKey     ctxKey = "eventID"
	eventTypeKey   ctxKey = "eventType"
	versionKey     ctxKey = "version"
	occurredAtKey  ctxKey = "occurredAt"
)

// WithEvent annotates the context with the envelope being delivered, so
// consumers and middleware can read identity, version and timestamp without
// re-decoding the event.
func WithEvent(ctx context.Context, event Event) context.Context {
	ctx = context.WithValue(ctx, aggregateIDKey, event.AggregateID)
	ctx = context.WithValue(ctx, eventIDKey, event.ID)
	ctx = context.WithValue(ctx, eventTypeKey, event.EventType)
	ctx = context.WithValue(ctx, versionKey, event.Version)
	ctx = context.WithValue(ctx, occurredAtKey, event.OccurredAt)
	return ctx
}

// AggregateIDFromContext returns the aggregate ID or "" if not present.
func AggregateIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(aggregateIDKey).(string); ok {
		return s
	}
	return ""
}

// EventIDFromContext returns the event ID or uuid.Nil if not present.
func EventIDFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(eventIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// EventTypeFromContext returns the event type or "" if not present.
func EventTypeFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(eventTypeKey).(string); ok {
		return s
	}
	return ""
}

// VersionFromContext returns the event version or 0 if not present.
func VersionFromContext(ctx context.Context) uint64 {
	if v, ok := ctx.Value(versionKey).(uint64); ok {
		return v
	}
	return 0
}

// OccurredAtFromContext returns the event timestamp or the zero time if not
// present.
func OccurredAtFromContext(ctx context.Context) time.Time {
	if t, ok := ctx.Value(occurredAtKey).(time.Time); ok {
		return t
	}
	return time.Time{}
}
