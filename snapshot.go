package cqrs

import (
	"context"
	"encoding/json"
)

// Snapshot pairs an aggregate identity with an opaque serialized copy of its
// full state and the version of the last event applied to produce that state.
// Snapshots are an optional read optimization; the event log stays the source
// of truth.
type Snapshot struct {
	AggregateID string
	Payload     json.RawMessage
	Version     uint64
}

// NewSnapshot captures the aggregate's current state at the given version.
func NewSnapshot(aggregate Aggregate, version uint64) (Snapshot, error) {
	data, err := json.Marshal(aggregate)
	if err != nil {
		return Snapshot{}, &SnapshotError{AggregateID: aggregate.AggregateID(), Err: err}
	}

	return Snapshot{
		AggregateID: aggregate.AggregateID(),
		Payload:     data,
		Version:     version,
	}, nil
}

// Restore decodes the snapshot payload into the given aggregate instance and
// reasserts its identity. The target must be a fresh default instance of the
// type the snapshot was taken from.
func (s Snapshot) Restore(into Aggregate) error {
	if err := json.Unmarshal(s.Payload, into); err != nil {
		return &PayloadDeserializationError{EventType: "snapshot", Err: err}
	}
	into.SetAggregateID(s.AggregateID)
	return nil
}

// SnapshotStore defines the contract for storing and loading aggregate
// snapshots. It is independent of the event store; losing it costs
// performance, never correctness.
type SnapshotStore interface {
	// SaveSnapshot stores the snapshot, overwriting any prior snapshot for
	// the same aggregate identity. Only the latest snapshot is kept.
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error

	// LoadSnapshot returns the most recent snapshot for the aggregate, or an
	// error wrapping ErrSnapshotNotFound when none exists. Callers must fall
	// back to event replay on any failure.
	LoadSnapshot(ctx context.Context, aggregateID string) (Snapshot, error)
}
