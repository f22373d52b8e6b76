// Package logging provides logging decorators for dispatchers and consumers.
package logging

import (
	"context"

	"github.com/sirupsen/logrus"
	cqrs "github.com/terraskye/cqrs"
)

type loggedDispatcher[A cqrs.Aggregate] struct {
	logger *logrus.Entry
	next   cqrs.Dispatcher[A]
}

// WithDispatcherLogging wraps a Dispatcher with logging. It logs the command
// type and aggregate ID before execution, and the error if the command fails.
func WithDispatcherLogging[A cqrs.Aggregate](logger *logrus.Entry, next cqrs.Dispatcher[A]) cqrs.Dispatcher[A] {
	return &loggedDispatcher[A]{logger: logger, next: next}
}

func (d *loggedDispatcher[A]) Execute(ctx context.Context, aggregateID string, command cqrs.Command) (A, error) {
	entry := d.logger.WithFields(logrus.Fields{
		"command":      cqrs.TypeName(command),
		"aggregate_id": aggregateID,
	})
	entry.Info("executing command")

	aggregate, err := d.next.Execute(ctx, aggregateID, command)
	if err != nil {
		entry.WithError(err).Error("command execution failed")
	}

	return aggregate, err
}
