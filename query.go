package cqrs

import (
	"context"
	"fmt"
)

// ReadModel represents a query-side data model: derived, query-optimized
// state built by consumers from the event stream.
type ReadModel interface{}

// ModelReader updates a read model from committed events and serves it back
// to queries. Readers own their projection storage exclusively.
type ModelReader[M ReadModel] interface {
	// Update replaces the stored read model with the provided data.
	Update(ctx context.Context, data M) error
}

// Query is a request for information from a read model. Implementations are
// plain values identifying what to fetch.
type Query interface {
	QueryName() string
}

// QueryHandler handles a specific query type T and produces a result of type
// R. The interface allows generic, type-safe registration and execution of
// query logic.
type QueryHandler[T Query, R any] interface {
	HandleQuery(ctx context.Context, qry T) (R, error)
}

// queryHandlerFunc allows ordinary functions to implement QueryHandler.
type queryHandlerFunc[T Query, R any] func(ctx context.Context, qry T) (R, error)

func (f queryHandlerFunc[T, R]) HandleQuery(ctx context.Context, qry T) (R, error) {
	return f(ctx, qry)
}

// NewQueryHandlerFunc creates a QueryHandler from a function.
func NewQueryHandlerFunc[T Query, R any](fn func(ctx context.Context, qry T) (R, error)) QueryHandler[T, R] {
	return queryHandlerFunc[T, R](fn)
}

// QueryBus acts as a central registry for query handlers, keyed by their
// query and result types, so multiple query types can live on a single bus.
// Registered handlers are executed through a typed QueryGateway.
//
// Example Usage:
//
//	bus := NewQueryBus()
//	RegisterQueryHandler(bus, NewQueryHandlerFunc(func(ctx context.Context, q GetGame) (*GameModel, error) {
//	    return reader.Get(ctx, q.GameID)
//	}))
//
//	gateway := NewQueryGateway[GetGame, *GameModel](bus)
//	model, err := gateway.HandleQuery(ctx, GetGame{GameID: "g1"})
type QueryBus struct {
	handlers map[string]any
}

// NewQueryBus creates a new, empty bus ready for handler registration.
func NewQueryBus() *QueryBus {
	return &QueryBus{handlers: make(map[string]any)}
}

func queryKey[T Query, R any]() string {
	var qry T
	var res R
	return fmt.Sprintf("%T|%T", qry, res)
}

// RegisterQueryHandler registers a handler for the query type T producing R.
// Registering the same pair twice panics, as this is a wiring mistake.
func RegisterQueryHandler[T Query, R any](bus *QueryBus, handler QueryHandler[T, R]) {
	key := queryKey[T, R]()
	if _, exists := bus.handlers[key]; exists {
		panic(fmt.Sprintf("cqrs: duplicate query handler for %s", key))
	}
	bus.handlers[key] = handler
}

// QueryGateway is a typed front onto a QueryBus. It implements
// QueryHandler[T, R] itself, so it can be used wherever a handler is
// expected.
type QueryGateway[T Query, R any] struct {
	bus *QueryBus
}

// NewQueryGateway creates a typed gateway for a specific query type backed by
// the bus.
func NewQueryGateway[T Query, R any](bus *QueryBus) QueryGateway[T, R] {
	return QueryGateway[T, R]{bus: bus}
}

// HandleQuery executes the registered handler for the query.
func (g QueryGateway[T, R]) HandleQuery(ctx context.Context, qry T) (R, error) {
	var zero R

	h, ok := g.bus.handlers[queryKey[T, R]()]
	if !ok {
		return zero, fmt.Errorf("no handler registered for query %T -> %T", qry, zero)
	}

	handler, ok := h.(QueryHandler[T, R])
	if !ok {
		return zero, fmt.Errorf("handler type mismatch for query %T -> %T", qry, zero)
	}

	return handler.HandleQuery(ctx, qry)
}
