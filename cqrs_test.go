package cqrs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func newTestCqrs(store EventStore, opts ...CqrsOption[*tally]) *Cqrs[*tally] {
	manager := NewReplayManager(store, newTally)
	return NewCqrs(manager, store, opts...)
}

func TestCqrs_Execute_VersionsAreGaplessAcrossCalls(t *testing.T) {
	store := newMemStore()
	orchestrator := newTestCqrs(store)
	ctx := context.Background()

	if _, err := orchestrator.Execute(ctx, "t1", addToTally{ID: "t1", Amount: 10}); err != nil {
		t.Fatalf("first execute: %v", err)
	}
	if _, err := orchestrator.Execute(ctx, "t1", addToTallyTwice{ID: "t1", Amount: 5}); err != nil {
		t.Fatalf("second execute: %v", err)
	}
	aggregate, err := orchestrator.Execute(ctx, "t1", addToTally{ID: "t1", Amount: 1})
	if err != nil {
		t.Fatalf("third execute: %v", err)
	}

	if aggregate.Total != 21 {
		t.Errorf("expected total 21, got %d", aggregate.Total)
	}

	stored := store.stored("t1")
	if len(stored) != 4 {
		t.Fatalf("expected 4 events, got %d", len(stored))
	}
	for i, event := range stored {
		if event.Version != uint64(i)+1 {
			t.Errorf("event %d has version %d, want %d", i, event.Version, i+1)
		}
	}
}

func TestCqrs_Execute_SerializesConcurrentCommandsOnOneAggregate(t *testing.T) {
	store := newMemStore()
	orchestrator := newTestCqrs(store)
	ctx := context.Background()

	const workers = 16
	const perWorker = 5

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := orchestrator.Execute(ctx, "t1", addToTally{ID: "t1", Amount: 1}); err != nil {
					t.Errorf("concurrent execute: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	stored := store.stored("t1")
	if len(stored) != workers*perWorker {
		t.Fatalf("expected %d events, got %d", workers*perWorker, len(stored))
	}
	for i, event := range stored {
		if event.Version != uint64(i)+1 {
			t.Fatalf("version gap at position %d: got %d, want %d", i, event.Version, i+1)
		}
	}

	aggregate, err := NewReplayManager[*tally](store, newTally).Load(ctx, "t1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if aggregate.Total != workers*perWorker {
		t.Errorf("expected total %d, got %d", workers*perWorker, aggregate.Total)
	}
}

func TestCqrs_Execute_RejectionHasNoSideEffects(t *testing.T) {
	store := newMemStore()
	spy := &recordingConsumer{}
	orchestrator := newTestCqrs(store, WithConsumerGroups[*tally](NewConsumerGroup("spy", []EventConsumer{spy})))
	ctx := context.Background()

	if _, err := orchestrator.Execute(ctx, "t1", addToTally{ID: "t1", Amount: 90}); err != nil {
		t.Fatalf("setup execute: %v", err)
	}
	before := store.stored("t1")

	_, err := orchestrator.Execute(ctx, "t1", addToTally{ID: "t1", Amount: 50})
	var validation *CommandValidationError
	if !asError(err, &validation) {
		t.Fatalf("expected CommandValidationError, got %v", err)
	}

	after := store.stored("t1")
	if len(after) != len(before) {
		t.Errorf("rejected command persisted events: %d -> %d", len(before), len(after))
	}
	if len(spy.seen) != 1 {
		t.Errorf("rejected command reached consumers: %v", spy.seen)
	}
}

func TestCqrs_Execute_ForeignAggregateIDPersistsNothing(t *testing.T) {
	store := newMemStore()
	orchestrator := newTestCqrs(store)

	_, err := orchestrator.Execute(context.Background(), "t1", addToTally{ID: "t1", Amount: 1, TagAs: "someone-else"})
	var validation *CommandValidationError
	if !asError(err, &validation) {
		t.Fatalf("expected CommandValidationError, got %v", err)
	}

	if len(store.stored("t1")) != 0 || len(store.stored("someone-else")) != 0 {
		t.Error("mismatched event must not be persisted")
	}
}

func TestCqrs_Execute_StoreFailureAbortsBeforeConsumers(t *testing.T) {
	store := newMemStore()
	store.saveErr = errors.New("disk full")
	spy := &recordingConsumer{}
	orchestrator := newTestCqrs(store, WithConsumerGroups[*tally](NewConsumerGroup("spy", []EventConsumer{spy})))

	_, err := orchestrator.Execute(context.Background(), "t1", addToTally{ID: "t1", Amount: 1})
	var storeErr *StoreOperationError
	if !asError(err, &storeErr) {
		t.Fatalf("expected StoreOperationError, got %v", err)
	}
	if storeErr.AggregateID != "t1" {
		t.Errorf("error must carry the aggregate id, got %q", storeErr.AggregateID)
	}
	if len(spy.seen) != 0 {
		t.Error("consumers must not run when persistence fails")
	}
}

func TestCqrs_Execute_ConsumerFailureDoesNotAbort(t *testing.T) {
	store := newMemStore()
	group := NewConsumerGroup("spy", []EventConsumer{panicConsumer{}, &recordingConsumer{err: errors.New("projection down")}})
	orchestrator := newTestCqrs(store, WithConsumerGroups[*tally](group))

	aggregate, err := orchestrator.Execute(context.Background(), "t1", addToTally{ID: "t1", Amount: 3})
	if err != nil {
		t.Fatalf("execute must succeed despite consumer failures: %v", err)
	}
	if aggregate.Total != 3 {
		t.Errorf("expected total 3, got %d", aggregate.Total)
	}
	if len(store.stored("t1")) != 1 {
		t.Errorf("expected the event to be durable")
	}
}

func TestCqrs_Execute_FollowUpCommandsReachTheBus(t *testing.T) {
	store := newMemStore()
	bus := NewCommandBus(8, 1)
	defer bus.Close()

	handled := make(chan Command, 1)
	RegisterCommandHandler(bus, func(ctx context.Context, cmd addToTally) error {
		handled <- cmd
		return nil
	})

	follow := addToTally{ID: "t2", Amount: 1}
	group := NewConsumerGroup("workflow", []EventConsumer{
		&reactingConsumer{on: "tallyAdded", commands: []Command{follow}},
	})
	orchestrator := newTestCqrs(store,
		WithConsumerGroups[*tally](group),
		WithCommandBus[*tally](bus),
	)

	if _, err := orchestrator.Execute(context.Background(), "t1", addToTally{ID: "t1", Amount: 1}); err != nil {
		t.Fatalf("execute: %v", err)
	}

	select {
	case cmd := <-handled:
		if cmd.AggregateID() != "t2" {
			t.Errorf("unexpected follow-up target %q", cmd.AggregateID())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("follow-up command never reached the bus handler")
	}
}

func TestCqrs_Execute_FollowUpWithoutBusIsDispatchError(t *testing.T) {
	store := newMemStore()
	group := NewConsumerGroup("workflow", []EventConsumer{
		&reactingConsumer{on: "tallyAdded", commands: []Command{addToTally{ID: "t2"}}},
	})
	orchestrator := newTestCqrs(store, WithConsumerGroups[*tally](group))

	aggregate, err := orchestrator.Execute(context.Background(), "t1", addToTally{ID: "t1", Amount: 1})
	var dispatch *CommandDispatchError
	if !asError(err, &dispatch) {
		t.Fatalf("expected CommandDispatchError, got %v", err)
	}
	// The write already succeeded; the caller still gets the aggregate.
	if aggregate == nil || aggregate.Total != 1 {
		t.Errorf("expected post-command aggregate alongside the error")
	}
}

func TestCqrs_Execute_SnapshotFailureIsReportedAfterPersist(t *testing.T) {
	store := newMemStore()
	snapshots := newMemSnapshots()
	snapshots.saveErr = errors.New("snapshot backend down")
	manager := NewSnapshotManager(snapshots, store, newTally)
	orchestrator := NewCqrs[*tally](manager, store)

	aggregate, err := orchestrator.Execute(context.Background(), "t1", addToTally{ID: "t1", Amount: 2})
	var snapErr *SnapshotError
	if !asError(err, &snapErr) {
		t.Fatalf("expected SnapshotError, got %v", err)
	}
	if len(store.stored("t1")) != 1 {
		t.Error("events must stay durable when snapshotting fails")
	}
	if aggregate == nil || aggregate.Total != 2 {
		t.Errorf("expected post-command aggregate alongside the error")
	}
}

func TestCqrs_Execute_RetriesOnConcurrencyConflict(t *testing.T) {
	store := newMemStore()
	conflicts := 0
	failing := &conflictOnFirstSave{next: store, remaining: 1, onConflict: func() { conflicts++ }}
	manager := NewReplayManager[*tally](failing, newTally)
	orchestrator := NewCqrs[*tally](manager, failing,
		WithRetryStrategy[*tally](func() backoff.BackOff {
			return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3)
		}),
	)

	aggregate, err := orchestrator.Execute(context.Background(), "t1", addToTally{ID: "t1", Amount: 1})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if aggregate.Total != 1 {
		t.Errorf("expected total 1, got %d", aggregate.Total)
	}
	if conflicts != 1 {
		t.Errorf("expected exactly one injected conflict, got %d", conflicts)
	}
	if len(store.stored("t1")) != 1 {
		t.Errorf("expected one persisted event, got %d", len(store.stored("t1")))
	}
}

func TestCqrs_Execute_ConflictWithoutRetrySurfaces(t *testing.T) {
	store := newMemStore()
	failing := &conflictOnFirstSave{next: store, remaining: 1}
	manager := NewReplayManager[*tally](failing, newTally)
	orchestrator := NewCqrs[*tally](manager, failing)

	_, err := orchestrator.Execute(context.Background(), "t1", addToTally{ID: "t1", Amount: 1})
	var conflict *ConcurrencyError
	if !asError(err, &conflict) {
		t.Fatalf("expected ConcurrencyError, got %v", err)
	}
}

// conflictOnFirstSave injects ConcurrencyError on the first n saves, then
// delegates.
type conflictOnFirstSave struct {
	next       *memStore
	remaining  int
	onConflict func()
}

func (c *conflictOnFirstSave) SaveEvents(ctx context.Context, aggregateID string, events []Event) error {
	if c.remaining > 0 {
		c.remaining--
		if c.onConflict != nil {
			c.onConflict()
		}
		return &ConcurrencyError{AggregateID: aggregateID, Expected: events[0].Version, Actual: events[0].Version + 1}
	}
	return c.next.SaveEvents(ctx, aggregateID, events)
}

func (c *conflictOnFirstSave) LoadEvents(ctx context.Context, aggregateID string) ([]Event, error) {
	return c.next.LoadEvents(ctx, aggregateID)
}
