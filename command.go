package cqrs

// Command is a request to change aggregate state. Commands are not persisted;
// they are consumed exactly once by the target aggregate's Handle method,
// which either accepts them (producing events) or rejects them.
type Command interface {
	AggregateID() string
}
