package cqrs

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// asError is a test-local shorthand for errors.As.
func asError(err error, target any) bool {
	return err != nil && errors.As(err, target)
}

// tally is the test aggregate: it adds up amounts and rejects totals over a
// fixed cap.
type tally struct {
	AggregateBase

	Total uint64 `json:"total"`
}

const tallyCap = 100

type addToTally struct {
	ID     string
	Amount uint64
	// TagAs mislabels the produced event's aggregate, to exercise the
	// identity guard.
	TagAs string
}

func (c addToTally) AggregateID() string { return c.ID }

type tallyAdded struct {
	ID     string `json:"id"`
	Amount uint64 `json:"amount"`
}

func (e *tallyAdded) AggregateID() string { return e.ID }
func (e *tallyAdded) EventName() string   { return "tallyAdded" }

var registerOnce sync.Once

func registerTestEvents() {
	registerOnce.Do(func() {
		RegisterEvent(func() EventPayload { return &tallyAdded{} })
	})
}

func newTally() *tally {
	registerTestEvents()
	return &tally{}
}

func (t *tally) Handle(command Command) ([]EventPayload, error) {
	if twice, ok := command.(addToTallyTwice); ok {
		return []EventPayload{
			&tallyAdded{ID: t.AggregateID(), Amount: twice.Amount},
			&tallyAdded{ID: t.AggregateID(), Amount: twice.Amount},
		}, nil
	}

	cmd, ok := command.(addToTally)
	if !ok {
		return nil, &CommandValidationError{AggregateID: t.AggregateID(), Reason: fmt.Sprintf("unknown command %T", command)}
	}
	if t.Total+cmd.Amount > tallyCap {
		return nil, &CommandValidationError{AggregateID: t.AggregateID(), Reason: "cap exceeded"}
	}

	id := t.AggregateID()
	if cmd.TagAs != "" {
		id = cmd.TagAs
	}
	return []EventPayload{&tallyAdded{ID: id, Amount: cmd.Amount}}, nil
}

// addToTallyTwice produces two events from one command.
type addToTallyTwice struct {
	ID     string
	Amount uint64
}

func (c addToTallyTwice) AggregateID() string { return c.ID }

func (t *tally) Apply(event EventPayload) {
	if e, ok := event.(*tallyAdded); ok {
		t.Total += e.Amount
	}
}

// memStore is a minimal in-memory EventStore for root tests, with optional
// failure injection.
type memStore struct {
	mu      sync.Mutex
	events  map[string][]Event
	saveErr error
	loadErr error

	saveCalls int
}

func newMemStore() *memStore {
	return &memStore{events: make(map[string][]Event)}
}

func (s *memStore) SaveEvents(ctx context.Context, aggregateID string, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saveCalls++
	if s.saveErr != nil {
		return s.saveErr
	}

	head := uint64(len(s.events[aggregateID]))
	if len(events) > 0 && events[0].Version != head+1 {
		return &ConcurrencyError{AggregateID: aggregateID, Expected: head + 1, Actual: events[0].Version}
	}
	s.events[aggregateID] = append(s.events[aggregateID], events...)
	return nil
}

func (s *memStore) LoadEvents(ctx context.Context, aggregateID string) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadErr != nil {
		return nil, s.loadErr
	}
	stored := s.events[aggregateID]
	if len(stored) == 0 {
		return nil, &AggregateNotFoundError{AggregateID: aggregateID}
	}
	out := make([]Event, len(stored))
	copy(out, stored)
	return out, nil
}

func (s *memStore) stored(aggregateID string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events[aggregateID]))
	copy(out, s.events[aggregateID])
	return out
}

// memSnapshots is a minimal in-memory SnapshotStore for root tests.
type memSnapshots struct {
	mu        sync.Mutex
	snapshots map[string]Snapshot
	saveErr   error
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{snapshots: make(map[string]Snapshot)}
}

func (s *memSnapshots) SaveSnapshot(ctx context.Context, snapshot Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snapshots[snapshot.AggregateID] = snapshot
	return nil
}

func (s *memSnapshots) LoadSnapshot(ctx context.Context, aggregateID string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, ok := s.snapshots[aggregateID]
	if !ok {
		return Snapshot{}, ErrSnapshotNotFound
	}
	return snapshot, nil
}

// mustEvents wraps payloads and versions them starting at from+1.
func mustEvents(tb interface{ Fatalf(string, ...any) }, from uint64, payloads ...EventPayload) []Event {
	events, err := NewEvents(payloads)
	if err != nil {
		tb.Fatalf("NewEvents: %v", err)
	}
	for i := range events {
		events[i].Version = from + uint64(i) + 1
	}
	return events
}
