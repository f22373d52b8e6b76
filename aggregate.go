package cqrs

// Aggregate is the consistency boundary around one entity's state and
// transition rules. Implementations own a default (zero) state, carry their
// identity, and mutate exclusively through Apply.
//
// The persisted source of truth is the event log; the in-memory aggregate is
// rebuilt per operation and discarded afterwards.
type Aggregate interface {
	// AggregateID returns the identity of this instance.
	AggregateID() string

	// SetAggregateID assigns the identity. It must be called once on a
	// freshly defaulted instance, before any event is applied.
	SetAggregateID(id string)

	// Apply mutates state from a decoded domain event. Applying the same
	// ordered event sequence always yields the same state. Apply must not
	// fail: validation happens in Handle, before events are produced.
	Apply(event EventPayload)

	// Handle validates a command against current state and returns the
	// ordered payloads representing the transition. A single command may
	// produce more than one event when it triggers a cascading consequence.
	// Returns a CommandValidationError when the command is inapplicable.
	Handle(command Command) ([]EventPayload, error)
}

// AggregateBase supplies the identity plumbing of the Aggregate interface.
// Embed it in domain aggregates by value.
type AggregateBase struct {
	id string
}

// AggregateID implements the AggregateID method of the Aggregate interface.
func (a *AggregateBase) AggregateID() string {
	return a.id
}

// SetAggregateID implements the SetAggregateID method of the Aggregate
// interface.
func (a *AggregateBase) SetAggregateID(id string) {
	a.id = id
}

// ApplyEvents replays an ordered sequence of envelopes onto the aggregate,
// decoding each payload through the event registry. It fails fast with a
// PayloadDeserializationError when a payload cannot be decoded; events
// already applied at that point stay applied, so callers must discard the
// aggregate on error.
func ApplyEvents(aggregate Aggregate, events []Event) error {
	for _, event := range events {
		payload, err := event.Decode()
		if err != nil {
			return err
		}
		aggregate.Apply(payload)
	}
	return nil
}
