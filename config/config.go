// Package config loads game tuning from JSON and converts it into rule settings.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/brensch/snekrush/game"
	"github.com/brensch/snekrush/rules"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

type FoodType struct {
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Points      int     `json:"points"`
	Effect      string  `json:"effect"`
	Probability float64 `json:"probability"`
}

// Config mirrors the JSON file. Speeds are tick intervals in milliseconds.
type Config struct {
	GridWidth          int        `json:"gridWidth"`
	GridHeight         int        `json:"gridHeight"`
	CellSize           int        `json:"cellSize"`
	BaseSpeed          int        `json:"baseSpeed"`
	MinSpeed           int        `json:"minSpeed"`
	MaxSpeed           int        `json:"maxSpeed"`
	SpeedStepUp        int        `json:"speedStepUp"`
	SpeedStepDown      int        `json:"speedStepDown"`
	MilestoneThreshold int        `json:"milestoneThreshold"`
	FoodTypes          []FoodType `json:"foodTypes"`
	Palettes           int        `json:"palettes"`
	// Seed fixes the random source when non-zero.
	Seed int64 `json:"seed,omitempty"`
}

func Default() Config {
	table := game.DefaultFoodTable()
	foods := make([]FoodType, len(table))
	for i, k := range table {
		foods[i] = FoodType{
			Name:        k.Name,
			Color:       k.Color,
			Points:      k.Points,
			Effect:      k.Effect.String(),
			Probability: k.Probability,
		}
	}
	return Config{
		GridWidth:          20,
		GridHeight:         20,
		CellSize:           20,
		BaseSpeed:          100,
		MinSpeed:           75,
		MaxSpeed:           150,
		SpeedStepUp:        10,
		SpeedStepDown:      10,
		MilestoneThreshold: 20,
		FoodTypes:          foods,
		Palettes:           3,
	}
}

// Load reads path and overlays it on Default. Keys missing from the file keep
// their default values; a present foodTypes list replaces the default table.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	// The outer FoodTypes shadows the embedded one so a present list is
	// decoded fresh instead of into the default table's backing array.
	ov := struct {
		Config
		FoodTypes *[]FoodType `json:"foodTypes"`
	}{Config: Default()}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ov); err != nil {
		return Config{}, fmt.Errorf("%w: decode: %v", ErrInvalid, err)
	}
	cfg := ov.Config
	if ov.FoodTypes != nil {
		cfg.FoodTypes = *ov.FoodTypes
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := c.Settings(); err != nil {
		return err
	}
	return nil
}

// FoodTable converts the configured food types.
func (c Config) FoodTable() (game.FoodTable, error) {
	table := make(game.FoodTable, 0, len(c.FoodTypes))
	for i, f := range c.FoodTypes {
		effect, err := game.ParseEffect(f.Effect)
		if err != nil {
			return nil, fmt.Errorf("%w: foodTypes[%d]: %v", ErrInvalid, i, err)
		}
		table = append(table, game.FoodKind{
			Name:        f.Name,
			Color:       f.Color,
			Points:      f.Points,
			Effect:      effect,
			Probability: f.Probability,
		})
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return table, nil
}

// Settings converts the config into validated rule settings. The snake starts
// in column 1, rows 1 to 3, heading down; boards too small for that start at
// the top left corner with a single segment.
func (c Config) Settings() (rules.Settings, error) {
	table, err := c.FoodTable()
	if err != nil {
		return rules.Settings{}, err
	}
	grid := game.Grid{Width: c.GridWidth, Height: c.GridHeight, CellSize: c.CellSize}
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }

	s := rules.Settings{
		Grid:  grid,
		Foods: table,
		Speed: rules.Speed{
			Base:     ms(c.BaseSpeed),
			Min:      ms(c.MinSpeed),
			Max:      ms(c.MaxSpeed),
			StepUp:   ms(c.SpeedStepUp),
			StepDown: ms(c.SpeedStepDown),
		},
		MilestoneThreshold: c.MilestoneThreshold,
		Palettes:           c.Palettes,
		InitialDirection:   game.Down,
	}
	if grid.Width >= 2 && grid.Height >= 5 {
		s.InitialSnake = []game.Point{grid.Cell(1, 1), grid.Cell(1, 2), grid.Cell(1, 3)}
	} else {
		s.InitialSnake = []game.Point{grid.Cell(0, 0)}
	}

	if err := s.Validate(); err != nil {
		return rules.Settings{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return s, nil
}
