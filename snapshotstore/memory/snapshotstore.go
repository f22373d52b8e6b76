// Package memory provides an in-memory snapshot store for tests and
// examples. Only the latest snapshot per aggregate is kept.
package memory

import (
	"context"
	"fmt"
	"sync"

	cqrs "github.com/terraskye/cqrs"
)

type MemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]cqrs.Snapshot
}

// NewMemorySnapshotStore creates an empty in-memory snapshot store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{
		snapshots: make(map[string]cqrs.Snapshot),
	}
}

var _ cqrs.SnapshotStore = (*MemorySnapshotStore)(nil)

// SaveSnapshot implements the SaveSnapshot method of the SnapshotStore
// interface, overwriting any prior snapshot for the aggregate.
func (m *MemorySnapshotStore) SaveSnapshot(ctx context.Context, snapshot cqrs.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapshot.AggregateID] = snapshot
	return nil
}

// LoadSnapshot implements the LoadSnapshot method of the SnapshotStore
// interface.
func (m *MemorySnapshotStore) LoadSnapshot(ctx context.Context, aggregateID string) (cqrs.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return cqrs.Snapshot{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot, ok := m.snapshots[aggregateID]
	if !ok {
		return cqrs.Snapshot{}, fmt.Errorf("aggregate %q: %w", aggregateID, cqrs.ErrSnapshotNotFound)
	}
	return snapshot, nil
}
