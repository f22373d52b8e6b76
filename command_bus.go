package cqrs

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
)

// queuedCommand is one command enqueued for processing, together with its
// context and an optional response channel for synchronous dispatch.
type queuedCommand struct {
	ctx        context.Context
	command    Command
	responseCh chan<- error
}

// CommandBus is an in-memory, sharded command dispatcher. Commands are routed
// to a shard by their aggregate identity, so commands for the same aggregate
// are processed one at a time and in submission order, while distinct
// aggregates proceed in parallel.
//
// The orchestrator uses the bus as its outbound channel for follow-up
// commands produced by consumers; applications may also drive it directly.
type CommandBus struct {
	handlers map[string]func(ctx context.Context, command Command) error

	queues []chan queuedCommand
	stopCh chan struct{}
	wg     sync.WaitGroup
	mu     sync.RWMutex

	// closeMu keeps Close from closing the shard queues while an enqueue is
	// still selecting on one of them.
	closeMu   sync.RWMutex
	closeOnce sync.Once

	errs chan error
}

// NewCommandBus creates a bus with the given per-shard queue capacity and
// shard count, and starts its workers.
func NewCommandBus(bufferSize, shardCount int) *CommandBus {
	if shardCount <= 0 {
		shardCount = 1
	}

	bus := &CommandBus{
		handlers: make(map[string]func(ctx context.Context, command Command) error),
		queues:   make([]chan queuedCommand, shardCount),
		stopCh:   make(chan struct{}),
		errs:     make(chan error, 64),
	}

	for i := range bus.queues {
		bus.queues[i] = make(chan queuedCommand, bufferSize)
		bus.wg.Add(1)
		go bus.worker(bus.queues[i])
	}

	return bus
}

// RegisterCommandHandler registers a typed handler on the bus. The handler is
// keyed by the concrete command type; registering two handlers for the same
// type panics, as this is a wiring mistake.
func RegisterCommandHandler[C Command](bus *CommandBus, handler func(ctx context.Context, command C) error) {
	var zero C
	name := TypeName(zero)

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if _, exists := bus.handlers[name]; exists {
		panic(fmt.Sprintf("cqrs: duplicate command handler for %s", name))
	}
	bus.handlers[name] = func(ctx context.Context, command Command) error {
		typed, ok := command.(C)
		if !ok {
			return &CommandDispatchError{Err: fmt.Errorf("command %T routed to handler for %s", command, name)}
		}
		return handler(ctx, typed)
	}
}

// Dispatch enqueues a command and waits for its handler to complete. It is
// safe to call concurrently.
func (b *CommandBus) Dispatch(ctx context.Context, command Command) error {
	responseCh := make(chan error, 1)
	if err := b.enqueue(ctx, command, responseCh); err != nil {
		return err
	}

	select {
	case err := <-responseCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit enqueues a command without waiting for its result. Handler failures
// are reported on the Errors channel. Returns a CommandDispatchError when the
// bus is stopped or the shard queue never accepts the command.
func (b *CommandBus) Submit(ctx context.Context, command Command) error {
	return b.enqueue(ctx, command, nil)
}

// Errors returns the channel carrying failures from asynchronously submitted
// commands. The channel is buffered; when full, further errors are dropped.
func (b *CommandBus) Errors() <-chan error {
	return b.errs
}

// Close stops the bus and waits for the workers to drain their queues.
// Subsequent Dispatch and Submit calls fail with a CommandDispatchError.
func (b *CommandBus) Close() error {
	b.closeOnce.Do(func() {
		// Closing stopCh first wakes any enqueue blocked on a full shard;
		// the write lock then waits for all in-flight enqueues to leave
		// before the queues are closed underneath them.
		close(b.stopCh)
		b.closeMu.Lock()
		for _, q := range b.queues {
			close(q)
		}
		b.closeMu.Unlock()
		b.wg.Wait()
		close(b.errs)
	})
	return nil
}

func (b *CommandBus) enqueue(ctx context.Context, command Command, responseCh chan<- error) error {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()

	select {
	case <-b.stopCh:
		return &CommandDispatchError{Err: fmt.Errorf("command bus is stopped")}
	default:
	}

	shard := b.shardFor(command.AggregateID())
	select {
	case b.queues[shard] <- queuedCommand{ctx: ctx, command: command, responseCh: responseCh}:
		return nil
	case <-ctx.Done():
		return &CommandDispatchError{Err: ctx.Err()}
	case <-b.stopCh:
		return &CommandDispatchError{Err: fmt.Errorf("command bus is stopped")}
	}
}

func (b *CommandBus) shardFor(aggregateID string) int {
	h := fnv.New32a()
	h.Write([]byte(aggregateID))
	return int(h.Sum32()) % len(b.queues)
}

func (b *CommandBus) worker(queue <-chan queuedCommand) {
	defer b.wg.Done()

	for qc := range queue {
		err := b.process(qc)
		if qc.responseCh != nil {
			qc.responseCh <- err
			continue
		}
		if err != nil {
			select {
			case b.errs <- err:
			default:
			}
		}
	}
}

// process runs one command through its registered handler, recovering panics
// so a broken handler cannot take the worker down.
func (b *CommandBus) process(qc queuedCommand) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CommandDispatchError{Err: fmt.Errorf("handler for %T panicked: %v", qc.command, r)}
		}
	}()

	b.mu.RLock()
	handler, ok := b.handlers[TypeName(qc.command)]
	b.mu.RUnlock()

	if !ok {
		return &CommandDispatchError{Err: fmt.Errorf("no handler registered for command %T", qc.command)}
	}
	return handler(qc.ctx, qc.command)
}
