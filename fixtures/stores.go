package fixtures

import (
	"context"
	"sync"

	cqrs "github.com/terraskye/cqrs"
)

// StoreSpy is a configurable in-memory EventStore for testing. It behaves
// like a real store by default, tracks calls, and allows injecting failures
// or overriding behavior per method.
type StoreSpy struct {
	mu sync.Mutex

	// Function overrides for custom behavior
	SaveFn func(ctx context.Context, aggregateID string, events []cqrs.Event) error
	LoadFn func(ctx context.Context, aggregateID string) ([]cqrs.Event, error)

	// Call tracking
	SaveCalls int
	LoadCalls int

	// Captured arguments from the last Save
	LastSavedID     string
	LastSavedEvents []cqrs.Event

	events map[string][]cqrs.Event

	saveErr error
	loadErr error
}

// NewStoreSpy creates a new StoreSpy with default in-memory behavior.
func NewStoreSpy() *StoreSpy {
	return &StoreSpy{events: make(map[string][]cqrs.Event)}
}

var _ cqrs.EventStore = (*StoreSpy)(nil)

// WithEvents pre-populates the store with events for an aggregate.
func (s *StoreSpy) WithEvents(aggregateID string, events ...cqrs.Event) *StoreSpy {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[aggregateID] = append(s.events[aggregateID], events...)
	return s
}

// FailOnSave configures the store to return err from SaveEvents.
func (s *StoreSpy) FailOnSave(err error) *StoreSpy {
	s.saveErr = err
	return s
}

// FailOnLoad configures the store to return err from LoadEvents.
func (s *StoreSpy) FailOnLoad(err error) *StoreSpy {
	s.loadErr = err
	return s
}

// Events returns a copy of the stored events for the aggregate.
func (s *StoreSpy) Events(aggregateID string) []cqrs.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]cqrs.Event, len(s.events[aggregateID]))
	copy(out, s.events[aggregateID])
	return out
}

// SaveEvents implements the SaveEvents method of the EventStore interface.
func (s *StoreSpy) SaveEvents(ctx context.Context, aggregateID string, events []cqrs.Event) error {
	s.mu.Lock()
	s.SaveCalls++
	s.LastSavedID = aggregateID
	s.LastSavedEvents = events
	s.mu.Unlock()

	if s.SaveFn != nil {
		return s.SaveFn(ctx, aggregateID, events)
	}
	if s.saveErr != nil {
		return s.saveErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[aggregateID] = append(s.events[aggregateID], events...)
	return nil
}

// LoadEvents implements the LoadEvents method of the EventStore interface.
func (s *StoreSpy) LoadEvents(ctx context.Context, aggregateID string) ([]cqrs.Event, error) {
	s.mu.Lock()
	s.LoadCalls++
	s.mu.Unlock()

	if s.LoadFn != nil {
		return s.LoadFn(ctx, aggregateID)
	}
	if s.loadErr != nil {
		return nil, s.loadErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.events[aggregateID]
	if len(stored) == 0 {
		return nil, &cqrs.AggregateNotFoundError{AggregateID: aggregateID}
	}
	out := make([]cqrs.Event, len(stored))
	copy(out, stored)
	return out, nil
}

// SnapshotStoreSpy is a configurable in-memory SnapshotStore for testing.
type SnapshotStoreSpy struct {
	mu sync.Mutex

	SaveCalls int
	LoadCalls int

	LastSaved cqrs.Snapshot

	snapshots map[string]cqrs.Snapshot

	saveErr error
	loadErr error
}

// NewSnapshotStoreSpy creates a new SnapshotStoreSpy.
func NewSnapshotStoreSpy() *SnapshotStoreSpy {
	return &SnapshotStoreSpy{snapshots: make(map[string]cqrs.Snapshot)}
}

var _ cqrs.SnapshotStore = (*SnapshotStoreSpy)(nil)

// FailOnSave configures the spy to return err from SaveSnapshot.
func (s *SnapshotStoreSpy) FailOnSave(err error) *SnapshotStoreSpy {
	s.saveErr = err
	return s
}

// FailOnLoad configures the spy to return err from LoadSnapshot.
func (s *SnapshotStoreSpy) FailOnLoad(err error) *SnapshotStoreSpy {
	s.loadErr = err
	return s
}

// SaveSnapshot implements the SaveSnapshot method of the SnapshotStore
// interface.
func (s *SnapshotStoreSpy) SaveSnapshot(ctx context.Context, snapshot cqrs.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.SaveCalls++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.LastSaved = snapshot
	s.snapshots[snapshot.AggregateID] = snapshot
	return nil
}

// LoadSnapshot implements the LoadSnapshot method of the SnapshotStore
// interface.
func (s *SnapshotStoreSpy) LoadSnapshot(ctx context.Context, aggregateID string) (cqrs.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LoadCalls++
	if s.loadErr != nil {
		return cqrs.Snapshot{}, s.loadErr
	}
	snapshot, ok := s.snapshots[aggregateID]
	if !ok {
		return cqrs.Snapshot{}, cqrs.ErrSnapshotNotFound
	}
	return snapshot, nil
}
