package rules

import (
	"errors"
	"fmt"
	"time"

	"github.com/brensch/snekrush/game"
)

// Settings is everything the tick transition needs besides the session itself.
type Settings struct {
	Grid               game.Grid
	Foods              game.FoodTable
	Speed              Speed
	MilestoneThreshold int
	Palettes           int

	// InitialSnake is tail-first; InitialDirection is the starting heading.
	InitialSnake     []game.Point
	InitialDirection game.Direction
}

// DefaultSettings matches the stock arcade game: a 20x20 board of 20px cells,
// 100ms ticks between 75ms and 150ms in 10ms steps, and a milestone every 20 points.
func DefaultSettings() Settings {
	grid := game.Grid{Width: 20, Height: 20, CellSize: 20}
	return Settings{
		Grid:  grid,
		Foods: game.DefaultFoodTable(),
		Speed: Speed{
			Base:     100 * time.Millisecond,
			Min:      75 * time.Millisecond,
			Max:      150 * time.Millisecond,
			StepUp:   10 * time.Millisecond,
			StepDown: 10 * time.Millisecond,
		},
		MilestoneThreshold: 20,
		Palettes:           3,
		InitialSnake:       []game.Point{grid.Cell(1, 1), grid.Cell(1, 2), grid.Cell(1, 3)},
		InitialDirection:   game.Down,
	}
}

// Validate checks that the settings describe a playable game.
func (s Settings) Validate() error {
	if s.Grid.Width <= 0 || s.Grid.Height <= 0 {
		return fmt.Errorf("grid must be at least 1x1, got %dx%d", s.Grid.Width, s.Grid.Height)
	}
	if s.Grid.CellSize <= 0 {
		return fmt.Errorf("cell size must be > 0, got %d", s.Grid.CellSize)
	}
	if err := s.Foods.Validate(); err != nil {
		return err
	}
	if err := s.Speed.Validate(); err != nil {
		return err
	}
	if s.MilestoneThreshold < 0 {
		return fmt.Errorf("milestone threshold must be >= 0, got %d", s.MilestoneThreshold)
	}
	if s.Palettes < 1 {
		return fmt.Errorf("palettes must be >= 1, got %d", s.Palettes)
	}
	if !s.InitialDirection.Valid() {
		return errors.New("initial direction is invalid")
	}
	if err := game.NewSnake(s.InitialSnake...).Validate(s.Grid); err != nil {
		return fmt.Errorf("initial snake: %w", err)
	}
	return nil
}
