// Package rules advances a single snake session by one tick.
//
// A Session is plain data owned by exactly one caller (the session controller);
// nothing here is safe for concurrent use and nothing here keeps global state.
package rules

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brensch/snekrush/game"
)

// DeathReason says why a session ended.
type DeathReason string

const (
	DeathNone      DeathReason = ""
	DeathWall      DeathReason = "wall"
	DeathSelf      DeathReason = "self"
	DeathBoardFull DeathReason = "board_full"
)

// Session is the mutable state of one game.
type Session struct {
	Snake game.Snake
	// Heading is the direction of the last applied move. Reversal checks are
	// made against it, not against Staged.
	Heading game.Direction
	// Staged is applied at the next tick. Later valid requests overwrite it.
	Staged   game.Direction
	Food     game.Food
	Score    int
	Interval time.Duration
	Palette  int
	Ticks    int
	Alive    bool
	Reason   DeathReason
}

// NewSession builds the starting state and places the first food.
func NewSession(settings Settings, rng *rand.Rand) (*Session, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	s := &Session{
		Snake:    game.NewSnake(settings.InitialSnake...),
		Heading:  settings.InitialDirection,
		Staged:   settings.InitialDirection,
		Interval: settings.Speed.Base,
		Alive:    true,
	}
	food, err := game.PlaceFood(rng, settings.Grid, settings.Foods, s.Snake)
	if err != nil {
		return nil, fmt.Errorf("place first food: %w", err)
	}
	s.Food = food
	return s, nil
}

// Stage records d as the direction for the next tick. Requests are ignored
// when the session is over, d is invalid, or d reverses the current heading.
func (s *Session) Stage(d game.Direction) bool {
	if !s.Alive || !d.Valid() || d == s.Heading.Opposite() {
		return false
	}
	s.Staged = d
	return true
}

// Clone performs a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Snake = s.Snake.Clone()
	return &out
}

// Outcome describes what one tick did.
type Outcome struct {
	Moved   bool
	Ate     bool
	Eaten   game.Food
	Delta   ScoreDelta
	NewFood game.Food
	Died    bool
	Reason  DeathReason
}

// Step advances s by one tick:
//  1. the staged direction becomes the heading;
//  2. the next head is computed and checked for collision, excluding the
//     tail cell unless the head lands on food;
//  3. the snake moves, growing when it eats;
//  4. on eating, points and effects are applied and new food is placed.
//
// A board with no free cell for the next food ends the session with
// DeathBoardFull. Step on a dead session does nothing.
func Step(s *Session, settings Settings, rng *rand.Rand) Outcome {
	if !s.Alive {
		return Outcome{}
	}

	s.Heading = s.Staged
	next := game.NextHead(s.Snake, s.Heading, settings.Grid.CellSize)
	growing := next == s.Food.Pos

	if game.WillCollide(next, s.Snake, settings.Grid, growing) {
		reason := DeathSelf
		if !settings.Grid.InBounds(next) {
			reason = DeathWall
		}
		s.Alive = false
		s.Reason = reason
		return Outcome{Died: true, Reason: reason}
	}

	s.Snake = game.Advance(s.Snake, s.Heading, settings.Grid.CellSize, growing)
	s.Ticks++
	out := Outcome{Moved: true}
	if !growing {
		return out
	}

	out.Ate = true
	out.Eaten = s.Food
	out.Delta = ApplyConsumption(s, settings, s.Food.Type, rng)

	food, err := game.PlaceFood(rng, settings.Grid, settings.Foods, s.Snake)
	if err != nil {
		// PlaceFood only fails when no cell is free.
		s.Alive = false
		s.Reason = DeathBoardFull
		out.Died = true
		out.Reason = DeathBoardFull
		return out
	}
	s.Food = food
	out.NewFood = food
	return out
}
