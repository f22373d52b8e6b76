package cqrs

import "context"

// EventStore defines the contract for an append-only event store. An
// EventStore persists events associated with a given aggregate ID in
// sequential order, allowing for full reconstruction of aggregate state at
// any point in time.
//
// Implementations must guarantee:
//   - Events for a given aggregate are stored and yielded in version order.
//   - Versions within a stream are contiguous: an appended batch must
//     continue from the persisted head, or the append fails with a
//     ConcurrencyError.
//   - Appends are atomic per call; partially written batches are not
//     observable.
type EventStore interface {
	// SaveEvents appends the events to the stream of the given aggregate,
	// preserving arrival order. The events carry their definitive versions,
	// assigned by the caller.
	//
	// Errors:
	//   - ConcurrencyError if the first event's version does not continue
	//     contiguously from the stream head.
	//   - StoreOperationError (or a store-specific error) on backend failure.
	SaveEvents(ctx context.Context, aggregateID string, events []Event) error

	// LoadEvents returns all events for the aggregate in ascending version
	// order. Returns an AggregateNotFoundError when no events exist; callers
	// treat that as "start from empty state", not as a hard failure.
	LoadEvents(ctx context.Context, aggregateID string) ([]Event, error)
}

// EventStream returns a pull iterator over the aggregate's events in version
// order. The history is fetched lazily on the first Next call; a missing
// stream yields no events and reports the AggregateNotFoundError through Err.
func EventStream(store EventStore, aggregateID string) *Iterator[Event] {
	var events []Event
	loaded := false
	i := 0

	return NewIteratorFunc(func(ctx context.Context) (Event, bool, error) {
		if !loaded {
			var err error
			events, err = store.LoadEvents(ctx, aggregateID)
			if err != nil {
				return Event{}, false, err
			}
			loaded = true
		}
		if i >= len(events) {
			return Event{}, false, nil
		}
		event := events[i]
		i++
		return event, true, nil
	})
}

// CurrentVersion reports the version of the last persisted event for the
// aggregate, or 0 when the stream does not exist yet.
func CurrentVersion(ctx context.Context, store EventStore, aggregateID string) (uint64, error) {
	events, err := store.LoadEvents(ctx, aggregateID)
	if err != nil {
		if IsAggregateNotFound(err) {
			return 0, nil
		}
		return 0, WrapStoreError(aggregateID, err)
	}
	if len(events) == 0 {
		return 0, nil
	}
	return events[len(events)-1].Version, nil
}
