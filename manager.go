package cqrs

import "context"

// AggregateManager decides how the current state of an aggregate is
// materialized and how it is persisted back, decoupling the orchestrator from
// the storage strategy. Both methods are safe to call repeatedly and never
// mutate the underlying stores except through their Save operations.
type AggregateManager[A Aggregate] interface {
	// Load materializes the aggregate's current state for the given identity.
	// Absence of history is not an error: the returned aggregate is then a
	// fresh default instance carrying the identity.
	Load(ctx context.Context, aggregateID string) (A, error)

	// Store persists the post-command state at the given version, if the
	// manager's strategy calls for it.
	Store(ctx context.Context, aggregate A, version uint64) error
}

// ReplayManager materializes aggregates by replaying their full event history
// from the event store. Store is a no-op: the events persisted by the
// orchestrator already are the durable representation.
type ReplayManager[A Aggregate] struct {
	store        EventStore
	newAggregate func() A
}

// NewReplayManager creates a replay-only manager. newAggregate must return a
// fresh default instance (a pointer to the zero state) on every call.
func NewReplayManager[A Aggregate](store EventStore, newAggregate func() A) *ReplayManager[A] {
	return &ReplayManager[A]{
		store:        store,
		newAggregate: newAggregate,
	}
}

// Load implements the Load method of the AggregateManager interface.
func (m *ReplayManager[A]) Load(ctx context.Context, aggregateID string) (A, error) {
	aggregate := m.newAggregate()
	aggregate.SetAggregateID(aggregateID)

	stream := EventStream(m.store, aggregateID)
	for stream.Next(ctx) {
		payload, err := stream.Value().Decode()
		if err != nil {
			var zero A
			return zero, err
		}
		aggregate.Apply(payload)
	}
	if err := stream.Err(); err != nil && !IsAggregateNotFound(err) {
		var zero A
		return zero, WrapStoreError(aggregateID, err)
	}
	return aggregate, nil
}

// Store implements the Store method of the AggregateManager interface.
func (m *ReplayManager[A]) Store(ctx context.Context, aggregate A, version uint64) error {
	return nil
}

// SnapshotManager materializes aggregates from the latest snapshot plus the
// tail of events recorded after it, and persists a fresh snapshot after each
// successful command. A missing or unreadable snapshot falls back to full
// replay, so a snapshot-backed aggregate with no snapshot yet never loses
// history.
type SnapshotManager[A Aggregate] struct {
	snapshots    SnapshotStore
	store        EventStore
	newAggregate func() A
}

// NewSnapshotManager creates a snapshot-based manager backed by the given
// snapshot and event stores.
func NewSnapshotManager[A Aggregate](snapshots SnapshotStore, store EventStore, newAggregate func() A) *SnapshotManager[A] {
	return &SnapshotManager[A]{
		snapshots:    snapshots,
		store:        store,
		newAggregate: newAggregate,
	}
}

// Load implements the Load method of the AggregateManager interface.
func (m *SnapshotManager[A]) Load(ctx context.Context, aggregateID string) (A, error) {
	aggregate := m.newAggregate()

	snapshot, err := m.snapshots.LoadSnapshot(ctx, aggregateID)
	if err != nil {
		// Snapshot failures cost a replay, never the operation.
		return m.replay(ctx, aggregateID)
	}

	if err := snapshot.Restore(aggregate); err != nil {
		return m.replay(ctx, aggregateID)
	}

	tail, err := m.store.LoadEvents(ctx, aggregateID)
	if err != nil {
		if IsAggregateNotFound(err) {
			return aggregate, nil
		}
		var zero A
		return zero, WrapStoreError(aggregateID, err)
	}

	for _, event := range tail {
		if event.Version <= snapshot.Version {
			continue
		}
		payload, err := event.Decode()
		if err != nil {
			var zero A
			return zero, err
		}
		aggregate.Apply(payload)
	}
	return aggregate, nil
}

// Store implements the Store method of the AggregateManager interface. The
// snapshot carries the true post-command version so later loads replay only
// the events recorded after it.
func (m *SnapshotManager[A]) Store(ctx context.Context, aggregate A, version uint64) error {
	snapshot, err := NewSnapshot(aggregate, version)
	if err != nil {
		return err
	}
	if err := m.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
		return &SnapshotError{AggregateID: aggregate.AggregateID(), Err: err}
	}
	return nil
}

func (m *SnapshotManager[A]) replay(ctx context.Context, aggregateID string) (A, error) {
	replay := NewReplayManager(m.store, m.newAggregate)
	return replay.Load(ctx, aggregateID)
}
