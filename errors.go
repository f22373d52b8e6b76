package cqrs

import (
	"errors"
	"fmt"
)

// ErrSnapshotNotFound is returned by snapshot stores when no snapshot exists
// for an aggregate. Callers fall back to replay; it must never surface as a
// fatal error at the command-execution boundary.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// PayloadDeserializationError indicates an event or snapshot payload could not
// be decoded as the type the caller expected.
type PayloadDeserializationError struct {
	EventType string
	Err       error
}

func (e *PayloadDeserializationError) Error() string {
	return fmt.Sprintf("deserialize payload %q: %v", e.EventType, e.Err)
}

func (e *PayloadDeserializationError) Unwrap() error { return e.Err }

// StoreOperationError indicates the event store failed to read or write. It
// always aborts the current execution; retrying is safe when it occurred
// before the persistence step.
type StoreOperationError struct {
	AggregateID string
	Err         error
}

func (e *StoreOperationError) Error() string {
	return fmt.Sprintf("event store operation for aggregate %q: %v", e.AggregateID, e.Err)
}

func (e *StoreOperationError) Unwrap() error { return e.Err }

// WrapStoreError wraps a backend failure in a StoreOperationError, passing
// nil and already-typed errors through untouched.
func WrapStoreError(aggregateID string, err error) error {
	if err == nil {
		return nil
	}
	var so *StoreOperationError
	if errors.As(err, &so) {
		return err
	}
	return &StoreOperationError{AggregateID: aggregateID, Err: err}
}

// ConcurrencyError reports an expected-vs-actual version mismatch on append.
// Callers should reload the aggregate and retry the command.
type ConcurrencyError struct {
	AggregateID string
	Expected    uint64
	Actual      uint64
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("concurrency conflict for aggregate %q: expected version %d, found %d",
		e.AggregateID, e.Expected, e.Actual)
}

// AggregateNotFoundError reports the absence of prior events for an identity.
// Most call sites treat it as "this is a new aggregate" and proceed with
// default state rather than failing.
type AggregateNotFoundError struct {
	AggregateID string
}

func (e *AggregateNotFoundError) Error() string {
	return fmt.Sprintf("aggregate %q not found", e.AggregateID)
}

// IsAggregateNotFound reports whether err is an AggregateNotFoundError.
func IsAggregateNotFound(err error) bool {
	var nf *AggregateNotFoundError
	return errors.As(err, &nf)
}

// CommandValidationError indicates the command is inapplicable to the current
// aggregate state, or that a command handler emitted an event tagged with a
// foreign aggregate identity. Nothing is persisted.
type CommandValidationError struct {
	AggregateID string
	Reason      string
}

func (e *CommandValidationError) Error() string {
	return fmt.Sprintf("command rejected for aggregate %q: %s", e.AggregateID, e.Reason)
}

// SnapshotError reports a failed snapshot step. It occurs only after the
// write path has already durably succeeded, so it does not roll anything back.
type SnapshotError struct {
	AggregateID string
	Err         error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("snapshot for aggregate %q: %v", e.AggregateID, e.Err)
}

func (e *SnapshotError) Unwrap() error { return e.Err }

// CommandDispatchError reports that a follow-up command could not be
// submitted to the command bus.
type CommandDispatchError struct {
	Err error
}

func (e *CommandDispatchError) Error() string {
	return fmt.Sprintf("dispatch follow-up command: %v", e.Err)
}

func (e *CommandDispatchError) Unwrap() error { return e.Err }

// ErrSkippedEvent is returned when a consumer cannot handle the event type.
// The fan-out treats it as a no-op, not a failure.
type ErrSkippedEvent struct {
	EventType string
}

func (e *ErrSkippedEvent) Error() string {
	return fmt.Sprintf("skipped event of type %s", e.EventType)
}

// IsSkippedEvent reports whether err is an ErrSkippedEvent.
func IsSkippedEvent(err error) bool {
	var skipped *ErrSkippedEvent
	return errors.As(err, &skipped)
}
