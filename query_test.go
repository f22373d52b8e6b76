package cqrs

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type tallyTotalQuery struct {
	ID string
}

func (q tallyTotalQuery) QueryName() string { return "tallyTotal" }

type tallyHistoryQuery struct {
	ID string
}

func (q tallyHistoryQuery) QueryName() string { return "tallyHistory" }

func TestQueryBus_RoutesToRegisteredHandler(t *testing.T) {
	bus := NewQueryBus()
	RegisterQueryHandler(bus, NewQueryHandlerFunc(func(ctx context.Context, qry tallyTotalQuery) (uint64, error) {
		if qry.ID != "tally-1" {
			t.Errorf("handler received query for %q", qry.ID)
		}
		return 42, nil
	}))

	gateway := NewQueryGateway[tallyTotalQuery, uint64](bus)
	total, err := gateway.HandleQuery(context.Background(), tallyTotalQuery{ID: "tally-1"})
	if err != nil {
		t.Fatalf("HandleQuery: %v", err)
	}
	if total != 42 {
		t.Errorf("expected 42, got %d", total)
	}
}

func TestQueryBus_KeysHandlersByQueryAndResultType(t *testing.T) {
	bus := NewQueryBus()
	RegisterQueryHandler(bus, NewQueryHandlerFunc(func(ctx context.Context, qry tallyTotalQuery) (uint64, error) {
		return 7, nil
	}))
	RegisterQueryHandler(bus, NewQueryHandlerFunc(func(ctx context.Context, qry tallyHistoryQuery) ([]uint64, error) {
		return []uint64{3, 4}, nil
	}))

	total, err := NewQueryGateway[tallyTotalQuery, uint64](bus).HandleQuery(context.Background(), tallyTotalQuery{})
	if err != nil {
		t.Fatalf("total query: %v", err)
	}
	history, err := NewQueryGateway[tallyHistoryQuery, []uint64](bus).HandleQuery(context.Background(), tallyHistoryQuery{})
	if err != nil {
		t.Fatalf("history query: %v", err)
	}

	if total != 7 {
		t.Errorf("expected total 7, got %d", total)
	}
	if len(history) != 2 || history[0] != 3 || history[1] != 4 {
		t.Errorf("unexpected history %v", history)
	}
}

func TestQueryBus_UnregisteredQueryFails(t *testing.T) {
	gateway := NewQueryGateway[tallyTotalQuery, uint64](NewQueryBus())

	_, err := gateway.HandleQuery(context.Background(), tallyTotalQuery{})
	if err == nil {
		t.Fatal("expected error for unregistered query")
	}
	if !strings.Contains(err.Error(), "no handler registered") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestQueryBus_DuplicateRegistrationPanics(t *testing.T) {
	bus := NewQueryBus()
	handler := NewQueryHandlerFunc(func(ctx context.Context, qry tallyTotalQuery) (uint64, error) {
		return 0, nil
	})
	RegisterQueryHandler(bus, handler)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	RegisterQueryHandler(bus, handler)
}

func TestQueryBus_HandlerErrorsPropagate(t *testing.T) {
	bus := NewQueryBus()
	boom := errors.New("projection unavailable")
	RegisterQueryHandler(bus, NewQueryHandlerFunc(func(ctx context.Context, qry tallyTotalQuery) (uint64, error) {
		return 0, boom
	}))

	_, err := NewQueryGateway[tallyTotalQuery, uint64](bus).HandleQuery(context.Background(), tallyTotalQuery{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
}
