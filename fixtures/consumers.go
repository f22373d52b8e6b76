package fixtures

import (
	"context"
	"sync"

	cqrs "github.com/terraskye/cqrs"
)

// ConsumerSpy records every event it is given, in delivery order.
type ConsumerSpy struct {
	mu     sync.Mutex
	Seen   []cqrs.Event
	FailOn string // event type that triggers an error
	Err    error
}

var _ cqrs.EventConsumer = (*ConsumerSpy)(nil)

// Process implements the Process method of the EventConsumer interface.
func (c *ConsumerSpy) Process(ctx context.Context, event cqrs.Event) error {
	c.mu.Lock()
	c.Seen = append(c.Seen, event)
	c.mu.Unlock()

	if c.FailOn != "" && event.EventType == c.FailOn {
		return c.Err
	}
	return nil
}

// Count returns how many events the spy has seen.
func (c *ConsumerSpy) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Seen)
}

// PanickyConsumer panics on every event; used to verify consumer isolation.
type PanickyConsumer struct{}

var _ cqrs.EventConsumer = (*PanickyConsumer)(nil)

func (PanickyConsumer) Process(ctx context.Context, event cqrs.Event) error {
	panic("consumer blew up on " + event.EventType)
}

// ReactorSpy is a consumer that emits a fixed set of follow-up commands for
// events of a given type.
type ReactorSpy struct {
	On       string
	Commands []cqrs.Command

	mu     sync.Mutex
	Reacts int
}

var _ cqrs.EventConsumer = (*ReactorSpy)(nil)
var _ cqrs.Reactor = (*ReactorSpy)(nil)

// Process implements the Process method of the EventConsumer interface.
func (r *ReactorSpy) Process(ctx context.Context, event cqrs.Event) error {
	return nil
}

// React implements the React method of the Reactor interface.
func (r *ReactorSpy) React(ctx context.Context, event cqrs.Event) ([]cqrs.Command, error) {
	if event.EventType != r.On {
		return nil, nil
	}
	r.mu.Lock()
	r.Reacts++
	r.mu.Unlock()
	return r.Commands, nil
}

// TestCommand is a minimal command carrying only its target identity.
type TestCommand struct {
	ID string
}

func (c TestCommand) AggregateID() string { return c.ID }
