// Package memory provides an in-memory event store for tests and examples.
// It honors the full EventStore contract, including contiguous-version
// enforcement, but keeps nothing across process restarts: swap in a durable
// backend for anything beyond demonstration.
package memory

import (
	"context"
	"sync"

	cqrs "github.com/terraskye/cqrs"
)

type MemoryStore struct {
	mu     sync.RWMutex
	events map[string][]cqrs.Event
}

// NewMemoryStore creates an empty in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[string][]cqrs.Event),
	}
}

var _ cqrs.EventStore = (*MemoryStore)(nil)

// SaveEvents implements the SaveEvents method of the EventStore interface.
// The batch must continue contiguously from the stream head; a mismatch is a
// ConcurrencyError and nothing is appended.
func (m *MemoryStore) SaveEvents(ctx context.Context, aggregateID string, events []cqrs.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	head := uint64(len(m.events[aggregateID]))
	if events[0].Version != head+1 {
		return &cqrs.ConcurrencyError{
			AggregateID: aggregateID,
			Expected:    head + 1,
			Actual:      events[0].Version,
		}
	}

	m.events[aggregateID] = append(m.events[aggregateID], events...)
	return nil
}

// LoadEvents implements the LoadEvents method of the EventStore interface.
func (m *MemoryStore) LoadEvents(ctx context.Context, aggregateID string) ([]cqrs.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.events[aggregateID]
	if !ok || len(stored) == 0 {
		return nil, &cqrs.AggregateNotFoundError{AggregateID: aggregateID}
	}

	out := make([]cqrs.Event, len(stored))
	copy(out, stored)
	return out, nil
}
