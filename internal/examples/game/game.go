// Package game is a turn-based example domain exercising the runtime end to
// end: two players attack each other until one reaches the goal score.
package game

import (
	"fmt"

	cqrs "github.com/terraskye/cqrs"
)

// Game status values.
const (
	StatusPlaying  = "playing"
	StatusFinished = "finished"
)

// Player is one participant and their score.
type Player struct {
	ID     string `json:"id"`
	Points uint32 `json:"points"`
}

// Commands.

type StartGame struct {
	GameID  string
	Player1 string
	Player2 string
	Goal    uint32
}

func (c StartGame) AggregateID() string { return c.GameID }

type AttackPlayer struct {
	GameID   string
	Attacker string
}

func (c AttackPlayer) AggregateID() string { return c.GameID }

// Events.

type GameStarted struct {
	GameID  string `json:"game_id"`
	Player1 Player `json:"player_1"`
	Player2 Player `json:"player_2"`
	Goal    uint32 `json:"goal"`
}

func (e *GameStarted) AggregateID() string { return e.GameID }
func (e *GameStarted) EventName() string   { return "GameStarted" }

type PlayerAttacked struct {
	GameID   string `json:"game_id"`
	Attacker string `json:"attacker"`
}

func (e *PlayerAttacked) AggregateID() string { return e.GameID }
func (e *PlayerAttacked) EventName() string   { return "PlayerAttacked" }

type GameEndedWithWinner struct {
	GameID string `json:"game_id"`
	Winner Player `json:"winner"`
}

func (e *GameEndedWithWinner) AggregateID() string { return e.GameID }
func (e *GameEndedWithWinner) EventName() string   { return "GameEndedWithWinner" }

func init() {
	cqrs.RegisterEvent(func() cqrs.EventPayload { return &GameStarted{} })
	cqrs.RegisterEvent(func() cqrs.EventPayload { return &PlayerAttacked{} })
	cqrs.RegisterEvent(func() cqrs.EventPayload { return &GameEndedWithWinner{} })
}

// Game is the aggregate: a match between two players racing to Goal points.
type Game struct {
	cqrs.AggregateBase

	Player1 Player  `json:"player_1"`
	Player2 Player  `json:"player_2"`
	Goal    uint32  `json:"goal"`
	Status  string  `json:"status"`
	Winner  *Player `json:"winner,omitempty"`
}

// New returns a fresh default game.
func New() *Game {
	return &Game{Status: StatusPlaying}
}

// Handle implements the Handle method of the Aggregate interface.
func (g *Game) Handle(command cqrs.Command) ([]cqrs.EventPayload, error) {
	if g.Status != StatusPlaying {
		reason := "game is already finished"
		if g.Winner != nil {
			reason = fmt.Sprintf("game is already finished, winner %q", g.Winner.ID)
		}
		return nil, &cqrs.CommandValidationError{AggregateID: g.AggregateID(), Reason: reason}
	}

	switch cmd := command.(type) {
	case StartGame:
		if cmd.Goal == 0 {
			return nil, &cqrs.CommandValidationError{
				AggregateID: g.AggregateID(),
				Reason:      "goal must be positive",
			}
		}
		return []cqrs.EventPayload{&GameStarted{
			GameID:  g.AggregateID(),
			Player1: Player{ID: cmd.Player1},
			Player2: Player{ID: cmd.Player2},
			Goal:    cmd.Goal,
		}}, nil

	case AttackPlayer:
		if g.Goal == 0 {
			return nil, &cqrs.CommandValidationError{
				AggregateID: g.AggregateID(),
				Reason:      "game has not been started",
			}
		}
		attacker := g.player(cmd.Attacker)
		if attacker == nil {
			return nil, &cqrs.CommandValidationError{
				AggregateID: g.AggregateID(),
				Reason:      fmt.Sprintf("unknown attacker %q", cmd.Attacker),
			}
		}

		events := []cqrs.EventPayload{&PlayerAttacked{
			GameID:   g.AggregateID(),
			Attacker: attacker.ID,
		}}

		// The scoring attack may also decide the game in the same command.
		if attacker.Points+1 >= g.Goal {
			events = append(events, &GameEndedWithWinner{
				GameID: g.AggregateID(),
				Winner: Player{ID: attacker.ID, Points: attacker.Points + 1},
			})
		}
		return events, nil

	default:
		return nil, &cqrs.CommandValidationError{
			AggregateID: g.AggregateID(),
			Reason:      fmt.Sprintf("unknown command %T", command),
		}
	}
}

// Apply implements the Apply method of the Aggregate interface.
func (g *Game) Apply(event cqrs.EventPayload) {
	switch e := event.(type) {
	case *GameStarted:
		g.Player1 = e.Player1
		g.Player2 = e.Player2
		g.Goal = e.Goal
		g.Status = StatusPlaying

	case *PlayerAttacked:
		if p := g.player(e.Attacker); p != nil {
			p.Points++
		}

	case *GameEndedWithWinner:
		winner := e.Winner
		g.Status = StatusFinished
		g.Winner = &winner
	}
}

func (g *Game) player(id string) *Player {
	switch id {
	case g.Player1.ID:
		return &g.Player1
	case g.Player2.ID:
		return &g.Player2
	}
	return nil
}
