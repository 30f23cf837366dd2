package session

import (
	"time"

	"github.com/brensch/snekrush/game"
	"github.com/brensch/snekrush/rules"
)

// Sound names passed to Audio.Play.
const (
	SoundEat       = "eat"
	SoundMilestone = "milestone"
	SoundDeath     = "death"
	SoundFirework  = "firework"
)

// Event is a discrete notification emitted by the controller alongside snapshots.
type Event interface {
	EventName() string
}

type Started struct {
	SessionID string `json:"sessionId"`
	HighScore int    `json:"highScore"`
}

type FoodEaten struct {
	Type   game.FoodType `json:"type"`
	Name   string        `json:"name"`
	Pos    game.Point    `json:"pos"`
	Points int           `json:"points"`
	Score  int           `json:"score"`
}

// EffectTriggered is emitted for every food with an effect other than none.
type EffectTriggered struct {
	Effect     game.Effect `json:"effect"`
	IntervalMs int64       `json:"intervalMs"`
}

type PaletteChanged struct {
	Palette int `json:"palette"`
}

type Milestone struct {
	Score int `json:"score"`
	Level int `json:"level"`
}

// GameOver is emitted exactly once per game.
type GameOver struct {
	FinalScore     int               `json:"finalScore"`
	Length         int               `json:"length"`
	IsNewHighScore bool              `json:"isNewHighScore"`
	Reason         rules.DeathReason `json:"reason"`
}

type NewHighScore struct {
	Score    int `json:"score"`
	Previous int `json:"previous"`
}

// Celebration is one burst of the new high score sequence. Burst counts from 1.
type Celebration struct {
	Burst int           `json:"burst"`
	Of    int           `json:"of"`
	Delay time.Duration `json:"delay"`
}

type Paused struct{}

type Resumed struct{}

type ReturnedToMenu struct{}

func (Started) EventName() string         { return "started" }
func (FoodEaten) EventName() string       { return "food_eaten" }
func (EffectTriggered) EventName() string { return "effect" }
func (PaletteChanged) EventName() string  { return "palette_changed" }
func (Milestone) EventName() string       { return "milestone" }
func (GameOver) EventName() string        { return "game_over" }
func (NewHighScore) EventName() string    { return "new_high_score" }
func (Celebration) EventName() string     { return "celebration" }
func (Paused) EventName() string          { return "paused" }
func (Resumed) EventName() string         { return "resumed" }
func (ReturnedToMenu) EventName() string  { return "menu" }
