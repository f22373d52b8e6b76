package cqrs

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

var now = time.Now

// EventPayload is a domain event describing a change that has happened to an
// aggregate. Concrete payload types are plain structs owned by the embedding
// application; they must be JSON-encodable and report the aggregate they
// belong to together with their symbolic name.
type EventPayload interface {
	// AggregateID returns the identity of the aggregate the event belongs to.
	AggregateID() string

	// EventName returns the symbolic name of the event, used as the
	// discriminator on the stored envelope and as the registry key.
	EventName() string
}

// Event is the storage envelope around a domain event. The payload is kept as
// opaque JSON so the envelope can be persisted and transported without
// knowledge of the concrete payload type; EventType carries the discriminator
// used to decode it back through the event registry.
//
// Envelopes are created once by NewEvent, versioned by the orchestrator, and
// immutable afterwards. Version numbers for a given aggregate are strictly
// increasing and gapless starting at 1.
type Event struct {
	ID          uuid.UUID
	EventType   string
	AggregateID string
	Payload     json.RawMessage
	Version     uint64
	OccurredAt  time.Time
}

// NewEvent wraps a domain payload in an envelope. The version is left at zero;
// the orchestrator assigns the definitive version just before persisting.
func NewEvent(payload EventPayload) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, &PayloadDeserializationError{EventType: payload.EventName(), Err: err}
	}

	return Event{
		ID:          uuid.New(),
		EventType:   payload.EventName(),
		AggregateID: payload.AggregateID(),
		Payload:     data,
		OccurredAt:  now(),
	}, nil
}

// NewEvents wraps a batch of payloads produced by a single command, preserving
// their order.
func NewEvents(payloads []EventPayload) ([]Event, error) {
	events := make([]Event, len(payloads))
	for i, payload := range payloads {
		event, err := NewEvent(payload)
		if err != nil {
			return nil, err
		}
		events[i] = event
	}
	return events, nil
}

// Decode materializes the envelope's payload as the concrete EventPayload
// registered under the envelope's EventType. The EventType is a lookup key,
// not a safety check: a payload that unmarshals into the registered type is
// accepted as-is.
func (e Event) Decode() (EventPayload, error) {
	payload, err := NewEventByName(e.EventType)
	if err != nil {
		return nil, &PayloadDeserializationError{EventType: e.EventType, Err: err}
	}

	if err := json.Unmarshal(e.Payload, payload); err != nil {
		return nil, &PayloadDeserializationError{EventType: e.EventType, Err: err}
	}

	return payload, nil
}

// DecodeAs decodes the envelope's payload directly into T, bypassing the
// registry. T must be a pointer to the concrete payload struct. Useful for
// consumers that only care about a handful of types.
func DecodeAs[T EventPayload](e Event) (T, error) {
	var zero T

	payload := reflect.New(reflect.TypeOf(zero).Elem()).Interface()
	if err := json.Unmarshal(e.Payload, payload); err != nil {
		return zero, &PayloadDeserializationError{EventType: e.EventType, Err: err}
	}

	decoded, ok := payload.(T)
	if !ok {
		return zero, &PayloadDeserializationError{
			EventType: e.EventType,
			Err:       fmt.Errorf("decoded %T, expected %T", payload, zero),
		}
	}
	return decoded, nil
}

// TypeName returns the unqualified type name of v, used to key handlers and
// queries by their Go type.
func TypeName(v any) string {
	if v == nil {
		return "<nil>"
	}

	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	name := t.String()
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}
