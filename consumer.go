package cqrs

import (
	"context"
	"fmt"
	"reflect"
)

// EventConsumer reacts to committed events, typically updating a read model
// it owns exclusively. A consumer must tolerate event types it does not
// understand by returning an ErrSkippedEvent (or simply nil).
type EventConsumer interface {
	// Process handles one committed event. Consumers observe events for a
	// given aggregate in commit order.
	Process(ctx context.Context, event Event) error
}

// Reactor is implemented by consumers that trigger follow-up work: commands
// returned from React are collected by the orchestrator after the write path
// has succeeded and submitted to the command bus for asynchronous processing.
type Reactor interface {
	React(ctx context.Context, event Event) ([]Command, error)
}

// ConsumerFunc adapts a plain function to the EventConsumer interface.
type ConsumerFunc func(ctx context.Context, event Event) error

// Process implements the Process method of the EventConsumer interface.
func (f ConsumerFunc) Process(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// OnPayload creates a consumer that only handles events decoding to the
// payload type T and skips everything else. T must be a pointer to the
// concrete payload struct.
//
// Example Usage:
//
//	consumer := cqrs.OnPayload(func(ctx context.Context, e cqrs.Event, p *GameStarted) error {
//	    return proj.recordStart(ctx, p)
//	})
func OnPayload[T EventPayload](fn func(ctx context.Context, event Event, payload T) error) EventConsumer {
	var zero T
	want := reflect.New(reflect.TypeOf(zero).Elem()).Interface().(T).EventName()

	return ConsumerFunc(func(ctx context.Context, event Event) error {
		if event.EventType != want {
			return &ErrSkippedEvent{EventType: event.EventType}
		}
		payload, err := DecodeAs[T](event)
		if err != nil {
			return err
		}
		return fn(ctx, event, payload)
	})
}

// ConsumerGroup aggregates several consumers behind one handle so the
// orchestrator can notify "all consumers" as a unit. Members run sequentially
// and every member observes every event in commit order relative to other
// events of the same aggregate.
//
// Delivery is best effort: a member that returns an error or panics does not
// prevent the remaining members, or the overall execution, from completing.
// Failures are surfaced through the group's error callback.
type ConsumerGroup struct {
	name      string
	consumers []EventConsumer
	onError   func(ctx context.Context, name string, event Event, err error)
}

// ConsumerGroupOption configures a ConsumerGroup.
type ConsumerGroupOption func(*ConsumerGroup)

// WithConsumerErrorHandler installs a callback invoked for every member
// failure. The default swallows errors silently.
func WithConsumerErrorHandler(fn func(ctx context.Context, group string, event Event, err error)) ConsumerGroupOption {
	return func(g *ConsumerGroup) { g.onError = fn }
}

// NewConsumerGroup creates a named group over the given members.
func NewConsumerGroup(name string, consumers []EventConsumer, opts ...ConsumerGroupOption) *ConsumerGroup {
	g := &ConsumerGroup{
		name:      name,
		consumers: consumers,
		onError:   func(context.Context, string, Event, error) {},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Name returns the group's name.
func (g *ConsumerGroup) Name() string { return g.name }

// Process delivers the event to every member in registration order. Skipped
// events are not failures; anything else goes to the error callback. Process
// itself never fails.
func (g *ConsumerGroup) Process(ctx context.Context, event Event) {
	for _, consumer := range g.consumers {
		if err := g.processOne(ctx, consumer, event); err != nil && !IsSkippedEvent(err) {
			g.onError(ctx, g.name, event, err)
		}
	}
}

// React collects follow-up commands from every member implementing Reactor.
// Unlike Process, a reactor failure is reported to the caller: losing a
// follow-up command silently would break the workflows built on them.
func (g *ConsumerGroup) React(ctx context.Context, event Event) ([]Command, error) {
	var commands []Command
	for _, consumer := range g.consumers {
		reactor, ok := consumer.(Reactor)
		if !ok {
			continue
		}
		produced, err := reactor.React(ctx, event)
		if err != nil {
			if IsSkippedEvent(err) {
				continue
			}
			return nil, err
		}
		commands = append(commands, produced...)
	}
	return commands, nil
}

func (g *ConsumerGroup) processOne(ctx context.Context, consumer EventConsumer, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("consumer %T panicked: %v", consumer, r)
		}
	}()
	return consumer.Process(ctx, event)
}
