package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cqrs "github.com/terraskye/cqrs"
	"github.com/terraskye/cqrs/fixtures"
)

func discardSlog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func discardLogrus() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func TestWithConsumerLogging_DelegatesAndPassesErrors(t *testing.T) {
	spy := &fixtures.ConsumerSpy{}
	consumer := WithConsumerLogging(discardSlog(), spy)
	ctx := context.Background()

	event := fixtures.NewTestEvent("order-1", 1, "hello")
	require.NoError(t, consumer.Process(cqrs.WithEvent(ctx, event), event))
	assert.Equal(t, 1, spy.Count())

	boom := errors.New("projection down")
	failing := WithConsumerLogging(discardSlog(), &fixtures.ConsumerSpy{FailOn: "TestPayload", Err: boom})
	assert.ErrorIs(t, failing.Process(cqrs.WithEvent(ctx, event), event), boom)

	skipping := WithConsumerLogging(discardSlog(), cqrs.ConsumerFunc(func(ctx context.Context, event cqrs.Event) error {
		return &cqrs.ErrSkippedEvent{EventType: event.EventType}
	}))
	assert.True(t, cqrs.IsSkippedEvent(skipping.Process(ctx, event)))
}

func TestWithDispatcherLogging_DelegatesAndPassesErrors(t *testing.T) {
	inner := &stubDispatcher{}
	dispatcher := WithDispatcherLogging[*stubAggregate](discardLogrus(), inner)

	aggregate, err := dispatcher.Execute(context.Background(), "order-1", fixtures.TestCommand{ID: "order-1"})
	require.NoError(t, err)
	assert.Equal(t, "order-1", aggregate.AggregateID())

	inner.err = errors.New("store down")
	_, err = dispatcher.Execute(context.Background(), "order-1", fixtures.TestCommand{ID: "order-1"})
	assert.ErrorIs(t, err, inner.err)
}

type stubAggregate struct {
	cqrs.AggregateBase
}

func (s *stubAggregate) Apply(event cqrs.EventPayload) {}
func (s *stubAggregate) Handle(command cqrs.Command) ([]cqrs.EventPayload, error) {
	return nil, nil
}

type stubDispatcher struct {
	err error
}

func (d *stubDispatcher) Execute(ctx context.Context, aggregateID string, command cqrs.Command) (*stubAggregate, error) {
	a := &stubAggregate{}
	a.SetAggregateID(aggregateID)
	return a, d.err
}
