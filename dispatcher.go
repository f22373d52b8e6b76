package cqrs

import "context"

// Dispatcher executes commands against event-sourced aggregates: it loads the
// current state, runs the command, persists the produced events and fans them
// out to consumers. Success implies the events are durably appended and
// consumers have been invoked (best effort).
type Dispatcher[A Aggregate] interface {
	Execute(ctx context.Context, aggregateID string, command Command) (A, error)
}

// versionEvents validates and versions a freshly produced batch: every event
// must carry the target aggregate identity, and versions continue gapless
// from the current stream head.
func versionEvents(aggregateID string, currentVersion uint64, events []Event) ([]Event, error) {
	next := currentVersion + 1
	for i := range events {
		if events[i].AggregateID != aggregateID {
			return nil, &CommandValidationError{
				AggregateID: aggregateID,
				Reason: "event aggregate ID " + events[i].AggregateID +
					" does not match target aggregate ID " + aggregateID,
			}
		}
		events[i].Version = next
		next++
	}
	return events, nil
}

// SimpleDispatcher is the replay-only dispatcher variant: it loads aggregates
// by replaying their full history straight from the event store, with no
// manager indirection and no snapshots, and delivers every persisted event to
// the registered consumer groups sequentially.
//
// Consumer failures are best effort: they never abort the pipeline.
type SimpleDispatcher[A Aggregate] struct {
	store        EventStore
	consumers    []*ConsumerGroup
	newAggregate func() A
	locks        *keyedMutex
}

// NewSimpleDispatcher creates a dispatcher over the given store and consumer
// groups. newAggregate must return a fresh default instance on every call.
func NewSimpleDispatcher[A Aggregate](store EventStore, newAggregate func() A, consumers ...*ConsumerGroup) *SimpleDispatcher[A] {
	return &SimpleDispatcher[A]{
		store:        store,
		consumers:    consumers,
		newAggregate: newAggregate,
		locks:        newKeyedMutex(defaultLockShards),
	}
}

// Execute implements the Execute method of the Dispatcher interface.
//
// The sequence is strictly: load, handle, version, persist, apply locally,
// notify. Any failure before the persist step leaves no side effects.
func (d *SimpleDispatcher[A]) Execute(ctx context.Context, aggregateID string, command Command) (A, error) {
	var zero A

	unlock := d.locks.lock(aggregateID)
	defer unlock()

	aggregate := d.newAggregate()
	aggregate.SetAggregateID(aggregateID)

	history, err := d.store.LoadEvents(ctx, aggregateID)
	if err != nil && !IsAggregateNotFound(err) {
		return zero, WrapStoreError(aggregateID, err)
	}
	if err := ApplyEvents(aggregate, history); err != nil {
		return zero, err
	}

	currentVersion := uint64(0)
	if len(history) > 0 {
		currentVersion = history[len(history)-1].Version
	}

	payloads, err := aggregate.Handle(command)
	if err != nil {
		return zero, err
	}
	if len(payloads) == 0 {
		return aggregate, nil
	}

	events, err := NewEvents(payloads)
	if err != nil {
		return zero, err
	}
	events, err = versionEvents(aggregateID, currentVersion, events)
	if err != nil {
		return zero, err
	}

	if err := d.store.SaveEvents(ctx, aggregateID, events); err != nil {
		return zero, WrapStoreError(aggregateID, err)
	}

	if err := ApplyEvents(aggregate, events); err != nil {
		return zero, err
	}

	for _, event := range events {
		eventCtx := WithEvent(ctx, event)
		for _, group := range d.consumers {
			group.Process(eventCtx, event)
		}
	}

	return aggregate, nil
}
