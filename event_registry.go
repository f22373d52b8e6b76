package cqrs

import (
	"fmt"
	"sync"
)

var (
	// registry maps event names to their factory functions. Each factory
	// must return a new pointer to a concrete EventPayload so the decoder
	// can unmarshal into it.
	registry = map[string]func() EventPayload{}

	// mu protects access to the registry for concurrent operations.
	mu sync.RWMutex
)

// RegisterEvent registers an EventPayload type under its default event name.
//
// The factory must return a fresh pointer instance on every call; it is
// invoked once at registration time to obtain the name, and again whenever an
// envelope of this type is decoded.
//
// Panics if the factory is nil, returns nil, or the name is already taken.
// Registration normally happens from init functions, where a panic is the
// right failure mode.
//
// Example Usage:
//
//	func init() {
//	    cqrs.RegisterEvent(func() cqrs.EventPayload { return &GameStarted{} })
//	}
func RegisterEvent(fn func() EventPayload) {
	if fn == nil {
		panic("cqrs: cannot register nil event factory")
	}
	ev := fn()
	if ev == nil {
		panic("cqrs: event factory returned nil")
	}
	RegisterEventByName(ev.EventName(), fn)
}

// RegisterEventByName registers an EventPayload factory under a custom name,
// independent of EventName(). Same panics as RegisterEvent.
func RegisterEventByName(name string, fn func() EventPayload) {
	if fn == nil {
		panic("cqrs: cannot register nil event factory")
	}

	mu.Lock()
	defer mu.Unlock()

	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("cqrs: event already registered: %s", name))
	}

	ev := fn()
	if ev == nil {
		panic(fmt.Sprintf("cqrs: event factory returned nil for: %s", name))
	}

	registry[name] = fn
}

// NewEventByName creates a new instance of a registered EventPayload by name.
// Returns an error if the name is unknown; decode paths surface that as a
// payload deserialization failure.
func NewEventByName(name string) (EventPayload, error) {
	mu.RLock()
	factory, ok := registry[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("event not registered: %s", name)
	}
	ev := factory()
	if ev == nil {
		return nil, fmt.Errorf("event factory returned nil for: %s", name)
	}
	return ev, nil
}
