// Package fixtures provides shared test doubles for the cqrs runtime: event
// builders, store spies and consumer spies.
package fixtures

import (
	"fmt"

	cqrs "github.com/terraskye/cqrs"
)

// TestPayload is a configurable domain event implementing EventPayload.
type TestPayload struct {
	ID   string `json:"id"`
	Data string `json:"data"`
}

func (e *TestPayload) AggregateID() string { return e.ID }
func (e *TestPayload) EventName() string   { return "TestPayload" }

func init() {
	cqrs.RegisterEvent(func() cqrs.EventPayload { return &TestPayload{} })
}

// NewTestEvent builds a versioned envelope around a TestPayload.
func NewTestEvent(aggregateID string, version uint64, data string) cqrs.Event {
	event, err := cqrs.NewEvent(&TestPayload{ID: aggregateID, Data: data})
	if err != nil {
		panic(err)
	}
	event.Version = version
	return event
}

// NewTestEvents builds n sequential envelopes for the aggregate, versioned
// starting at from+1.
func NewTestEvents(aggregateID string, from uint64, n int) []cqrs.Event {
	events := make([]cqrs.Event, n)
	for i := range events {
		events[i] = NewTestEvent(aggregateID, from+uint64(i)+1, fmt.Sprintf("data-%d", i+1))
	}
	return events
}
