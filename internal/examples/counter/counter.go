// Package counter is the smallest example domain: a counter that can be
// incremented freely and decremented while it stays non-negative.
package counter

import (
	"fmt"

	cqrs "github.com/terraskye/cqrs"
)

// Commands.

type Increment struct {
	CounterID string
	Amount    uint64
}

func (c Increment) AggregateID() string { return c.CounterID }

type Decrement struct {
	CounterID string
	Amount    uint64
}

func (c Decrement) AggregateID() string { return c.CounterID }

// Events.

type Incremented struct {
	CounterID string `json:"counter_id"`
	Amount    uint64 `json:"amount"`
}

func (e *Incremented) AggregateID() string { return e.CounterID }
func (e *Incremented) EventName() string   { return "Incremented" }

type Decremented struct {
	CounterID string `json:"counter_id"`
	Amount    uint64 `json:"amount"`
}

func (e *Decremented) AggregateID() string { return e.CounterID }
func (e *Decremented) EventName() string   { return "Decremented" }

func init() {
	cqrs.RegisterEvent(func() cqrs.EventPayload { return &Incremented{} })
	cqrs.RegisterEvent(func() cqrs.EventPayload { return &Decremented{} })
}

// Counter is the aggregate.
type Counter struct {
	cqrs.AggregateBase

	Count uint64 `json:"count"`
}

// New returns a fresh default counter.
func New() *Counter {
	return &Counter{}
}

// Handle implements the Handle method of the Aggregate interface.
func (c *Counter) Handle(command cqrs.Command) ([]cqrs.EventPayload, error) {
	switch cmd := command.(type) {
	case Increment:
		return []cqrs.EventPayload{&Incremented{CounterID: c.AggregateID(), Amount: cmd.Amount}}, nil

	case Decrement:
		if cmd.Amount > c.Count {
			return nil, &cqrs.CommandValidationError{
				AggregateID: c.AggregateID(),
				Reason:      fmt.Sprintf("cannot decrement by %d, count is %d", cmd.Amount, c.Count),
			}
		}
		return []cqrs.EventPayload{&Decremented{CounterID: c.AggregateID(), Amount: cmd.Amount}}, nil

	default:
		return nil, &cqrs.CommandValidationError{
			AggregateID: c.AggregateID(),
			Reason:      fmt.Sprintf("unknown command %T", command),
		}
	}
}

// Apply implements the Apply method of the Aggregate interface.
func (c *Counter) Apply(event cqrs.EventPayload) {
	switch e := event.(type) {
	case *Incremented:
		c.Count += e.Amount
	case *Decremented:
		c.Count -= e.Amount
	}
}
