package session

import (
	"fmt"

	"github.com/brensch/snekrush/game"
	"github.com/brensch/snekrush/rules"
)

// State is the controller's lifecycle state.
type State int8

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateGameOver
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateGameOver:
		return "game_over"
	}
	return fmt.Sprintf("state(%d)", int8(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// FoodView is the active food with its table entry resolved for renderers.
type FoodView struct {
	Pos    game.Point    `json:"pos"`
	Type   game.FoodType `json:"type"`
	Name   string        `json:"name"`
	Color  string        `json:"color"`
	Points int           `json:"points"`
}

// Snapshot is an immutable copy of everything a renderer needs for one frame.
type Snapshot struct {
	SessionID  string            `json:"sessionId,omitempty"`
	State      State             `json:"state"`
	Grid       game.Grid         `json:"grid"`
	Snake      []game.Point      `json:"snake"` // tail first
	Heading    game.Direction    `json:"heading"`
	Food       *FoodView         `json:"food,omitempty"`
	Score      int               `json:"score"`
	Length     int               `json:"length"`
	HighScore  int               `json:"highScore"`
	IntervalMs int64             `json:"intervalMs"`
	Palette    int               `json:"palette"`
	Tick       int               `json:"tick"`
	Reason     rules.DeathReason `json:"reason,omitempty"`
}

func buildSnapshot(id string, state State, settings rules.Settings, s *rules.Session, high int) Snapshot {
	snap := Snapshot{
		SessionID: id,
		State:     state,
		Grid:      settings.Grid,
		HighScore: high,
		Snake:     []game.Point{},
	}
	if s == nil {
		return snap
	}
	snap.Snake = s.Snake.Clone().Body
	snap.Heading = s.Heading
	// A full board has no food left; the last one was eaten by the head.
	if s.Reason != rules.DeathBoardFull {
		kind, _ := settings.Foods.Kind(s.Food.Type)
		snap.Food = &FoodView{
			Pos:    s.Food.Pos,
			Type:   s.Food.Type,
			Name:   kind.Name,
			Color:  kind.Color,
			Points: kind.Points,
		}
	}
	snap.Score = s.Score
	snap.Length = s.Snake.Len()
	snap.IntervalMs = s.Interval.Milliseconds()
	snap.Palette = s.Palette
	snap.Tick = s.Ticks
	snap.Reason = s.Reason
	return snap
}
