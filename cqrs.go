package cqrs

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
)

// Cqrs is the main entry point of a CQRS application: the orchestrator that
// turns one command into durable events.
//
// Execute runs a deterministic sequence per call: load the aggregate through
// its manager, determine the current stream version, handle the command,
// validate and version the produced events, persist them, apply them to the
// in-memory aggregate, fan them out to the consumer groups in commit order,
// submit follow-up commands to the command bus, and finally let the manager
// snapshot the post-command state.
//
// Persistence is the single durability boundary: any failure before it leaves
// no side effects; failures after it are reported but the events stay
// durable. Commands for the same aggregate identity are serialized by an
// internal per-identity lock.
type Cqrs[A Aggregate] struct {
	manager   AggregateManager[A]
	store     EventStore
	consumers []*ConsumerGroup
	bus       *CommandBus
	locks     *keyedMutex
	newRetry  func() backoff.BackOff
}

// CqrsOption configures a Cqrs orchestrator.
type CqrsOption[A Aggregate] func(*Cqrs[A])

// WithConsumerGroups registers the consumer groups notified after each
// successful persist, in the given order.
func WithConsumerGroups[A Aggregate](groups ...*ConsumerGroup) CqrsOption[A] {
	return func(c *Cqrs[A]) { c.consumers = append(c.consumers, groups...) }
}

// WithCommandBus sets the outbound bus for follow-up commands produced by
// reactors. Without a bus, producing a follow-up command is a dispatch error.
func WithCommandBus[A Aggregate](bus *CommandBus) CqrsOption[A] {
	return func(c *Cqrs[A]) { c.bus = bus }
}

// WithRetryStrategy sets the backoff used to retry an execution after a
// concurrency conflict. The factory is called once per Execute. The default
// is backoff.StopBackOff: no automatic retries, conflicts surface to the
// caller as ConcurrencyError.
func WithRetryStrategy[A Aggregate](newRetry func() backoff.BackOff) CqrsOption[A] {
	return func(c *Cqrs[A]) { c.newRetry = newRetry }
}

// NewCqrs creates an orchestrator for one aggregate type over the given
// manager and event store.
func NewCqrs[A Aggregate](manager AggregateManager[A], store EventStore, opts ...CqrsOption[A]) *Cqrs[A] {
	c := &Cqrs[A]{
		manager:  manager,
		store:    store,
		locks:    newKeyedMutex(defaultLockShards),
		newRetry: func() backoff.BackOff { return &backoff.StopBackOff{} },
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Execute runs the command against the aggregate identified by aggregateID
// and returns the post-command state.
//
// Success implies the produced events are durably persisted and every
// consumer group has been invoked. A returned error is one of the typed
// errors of this package; post-persist failures (snapshotting, reactors,
// follow-up dispatch) return the updated aggregate together with the error.
func (c *Cqrs[A]) Execute(ctx context.Context, aggregateID string, command Command) (A, error) {
	unlock := c.locks.lock(aggregateID)
	defer unlock()

	return backoff.RetryWithData(func() (A, error) {
		aggregate, err := c.executeOnce(ctx, aggregateID, command)
		if err == nil {
			return aggregate, nil
		}

		var conflict *ConcurrencyError
		if errors.As(err, &conflict) {
			return aggregate, err // retryable per the configured strategy
		}
		return aggregate, backoff.Permanent(err)
	}, backoff.WithContext(c.newRetry(), ctx))
}

func (c *Cqrs[A]) executeOnce(ctx context.Context, aggregateID string, command Command) (A, error) {
	var zero A

	// Load current state and stream head.
	aggregate, err := c.manager.Load(ctx, aggregateID)
	if err != nil {
		return zero, err
	}

	currentVersion, err := CurrentVersion(ctx, c.store, aggregateID)
	if err != nil {
		return zero, err
	}

	// Handle: a rejected command aborts with no side effects.
	payloads, err := aggregate.Handle(command)
	if err != nil {
		return zero, err
	}
	if len(payloads) == 0 {
		return aggregate, nil
	}

	// Validate identity and assign gapless versions.
	events, err := NewEvents(payloads)
	if err != nil {
		return zero, err
	}
	events, err = versionEvents(aggregateID, currentVersion, events)
	if err != nil {
		return zero, err
	}

	// Persist: the single durability boundary.
	if err := c.store.SaveEvents(ctx, aggregateID, events); err != nil {
		var conflict *ConcurrencyError
		if errors.As(err, &conflict) {
			return zero, err
		}
		return zero, WrapStoreError(aggregateID, err)
	}
	newVersion := events[len(events)-1].Version

	// Apply locally so the returned aggregate reflects the post-command
	// state without a re-read.
	if err := ApplyEvents(aggregate, events); err != nil {
		return aggregate, err
	}

	// Fan out in commit order, collecting follow-up commands.
	var followUps []Command
	for _, event := range events {
		eventCtx := WithEvent(ctx, event)
		for _, group := range c.consumers {
			group.Process(eventCtx, event)
			produced, err := group.React(eventCtx, event)
			if err != nil {
				return aggregate, err
			}
			followUps = append(followUps, produced...)
		}
	}

	for _, followUp := range followUps {
		if c.bus == nil {
			return aggregate, &CommandDispatchError{Err: errors.New("no command bus configured")}
		}
		if err := c.bus.Submit(ctx, followUp); err != nil {
			return aggregate, err
		}
	}

	// Snapshot last: a failure here is reported, never rolled back.
	if err := c.manager.Store(ctx, aggregate, newVersion); err != nil {
		return aggregate, err
	}

	return aggregate, nil
}
