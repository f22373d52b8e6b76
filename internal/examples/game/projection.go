package game

import (
	"context"
	"sort"
	"sync"

	cqrs "github.com/terraskye/cqrs"
)

// GameModel is the query-optimized view of a game, built from the event
// stream by the projector.
type GameModel struct {
	ID      string
	Player1 Player
	Player2 Player
	Goal    uint32
	Status  string
	Winner  *Player
}

// GameReader owns the projection storage for game models and serves queries
// over it.
type GameReader struct {
	mu    sync.RWMutex
	games map[string]GameModel
}

// NewGameReader creates an empty reader.
func NewGameReader() *GameReader {
	return &GameReader{games: make(map[string]GameModel)}
}

var _ cqrs.ModelReader[GameModel] = (*GameReader)(nil)

// Update implements the Update method of the ModelReader interface.
func (r *GameReader) Update(ctx context.Context, data GameModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[data.ID] = data
	return nil
}

// Get returns the model for the given game, or false when it has not been
// projected yet.
func (r *GameReader) Get(ctx context.Context, gameID string) (GameModel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	model, ok := r.games[gameID]
	return model, ok
}

// List returns every projected model ordered by game ID.
func (r *GameReader) List(ctx context.Context) []GameModel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]GameModel, 0, len(r.games))
	for _, model := range r.games {
		models = append(models, model)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models
}

// Projector folds committed game events into the reader's models. It ignores
// event types it does not understand.
type Projector struct {
	reader *GameReader
}

// NewProjector creates a projector writing into the given reader.
func NewProjector(reader *GameReader) *Projector {
	return &Projector{reader: reader}
}

var _ cqrs.EventConsumer = (*Projector)(nil)

// Process implements the Process method of the EventConsumer interface.
func (p *Projector) Process(ctx context.Context, event cqrs.Event) error {
	model, _ := p.reader.Get(ctx, event.AggregateID)
	model.ID = event.AggregateID

	switch event.EventType {
	case "GameStarted":
		started, err := cqrs.DecodeAs[*GameStarted](event)
		if err != nil {
			return err
		}
		model.Player1 = started.Player1
		model.Player2 = started.Player2
		model.Goal = started.Goal
		model.Status = StatusPlaying
		model.Winner = nil

	case "PlayerAttacked":
		attacked, err := cqrs.DecodeAs[*PlayerAttacked](event)
		if err != nil {
			return err
		}
		switch attacked.Attacker {
		case model.Player1.ID:
			model.Player1.Points++
		case model.Player2.ID:
			model.Player2.Points++
		}

	case "GameEndedWithWinner":
		ended, err := cqrs.DecodeAs[*GameEndedWithWinner](event)
		if err != nil {
			return err
		}
		winner := ended.Winner
		model.Status = StatusFinished
		model.Winner = &winner

	default:
		return &cqrs.ErrSkippedEvent{EventType: event.EventType}
	}

	return p.reader.Update(ctx, model)
}

// GetGame asks for the projected model of one game.
type GetGame struct {
	GameID string
}

func (GetGame) QueryName() string { return "GetGame" }

// ListGames streams every projected game model, ordered by game ID.
type ListGames struct{}

func (ListGames) QueryName() string { return "ListGames" }

// RegisterQueries wires the game queries onto the bus.
func RegisterQueries(bus *cqrs.QueryBus, reader *GameReader) {
	cqrs.RegisterQueryHandler(bus, cqrs.NewQueryHandlerFunc(
		func(ctx context.Context, qry GetGame) (GameModel, error) {
			model, ok := reader.Get(ctx, qry.GameID)
			if !ok {
				return GameModel{}, &cqrs.AggregateNotFoundError{AggregateID: qry.GameID}
			}
			return model, nil
		}))

	cqrs.RegisterQueryHandler(bus, cqrs.NewQueryHandlerFunc(
		func(ctx context.Context, qry ListGames) (*cqrs.Iterator[GameModel], error) {
			return cqrs.NewSliceIterator(reader.List(ctx)), nil
		}))
}
