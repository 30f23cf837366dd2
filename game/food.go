// food.go implements typed food: the configurable food table, the weighted
// type draw and food placement.

package game

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// Effect is the side effect a food type has when eaten, besides points.
type Effect int8

const (
	EffectNone Effect = iota
	EffectSpeedUp
	EffectSlowDown
	EffectRainbow
)

func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "none"
	case EffectSpeedUp:
		return "speed_up"
	case EffectSlowDown:
		return "slow_down"
	case EffectRainbow:
		return "rainbow"
	}
	return fmt.Sprintf("effect(%d)", int8(e))
}

// ParseEffect maps a config name to an Effect. The empty string means none;
// "speed_boost" is accepted as an alias for speed_up.
func ParseEffect(s string) (Effect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return EffectNone, nil
	case "speed_up", "speed_boost":
		return EffectSpeedUp, nil
	case "slow_down":
		return EffectSlowDown, nil
	case "rainbow":
		return EffectRainbow, nil
	}
	return EffectNone, fmt.Errorf("unknown food effect %q", s)
}

func (e Effect) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

func (e *Effect) UnmarshalText(b []byte) error {
	v, err := ParseEffect(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// FoodKind describes one entry of the food table.
type FoodKind struct {
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Points      int     `json:"points"`
	Effect      Effect  `json:"effect"`
	Probability float64 `json:"probability"`
}

// FoodType indexes a FoodTable.
type FoodType int

// FoodTable is the ordered set of food kinds. Order matters: the draw
// partitions [0,1) by cumulative probability in table order.
type FoodTable []FoodKind

// DefaultFoodTable returns the stock table: normal, golden, special and rainbow.
func DefaultFoodTable() FoodTable {
	return FoodTable{
		{Name: "normal", Color: "#FF0033", Points: 1, Effect: EffectNone, Probability: 0.62},
		{Name: "golden", Color: "#FFD700", Points: 3, Effect: EffectSpeedUp, Probability: 0.23},
		{Name: "special", Color: "#9400D3", Points: 5, Effect: EffectSlowDown, Probability: 0.10},
		{Name: "rainbow", Color: "#FF1493", Points: 10, Effect: EffectRainbow, Probability: 0.05},
	}
}

const probabilityTolerance = 1e-9

// Validate checks names, points and that probabilities form a distribution.
func (t FoodTable) Validate() error {
	if len(t) == 0 {
		return errors.New("food table is empty")
	}
	seen := make(map[string]bool, len(t))
	sum := 0.0
	for i, k := range t {
		if k.Name == "" {
			return fmt.Errorf("food type %d: name is required", i)
		}
		if seen[k.Name] {
			return fmt.Errorf("food type %q: duplicate name", k.Name)
		}
		seen[k.Name] = true
		if k.Points < 0 {
			return fmt.Errorf("food type %q: points must be >= 0, got %d", k.Name, k.Points)
		}
		if k.Probability < 0 || math.IsNaN(k.Probability) {
			return fmt.Errorf("food type %q: probability must be >= 0, got %v", k.Name, k.Probability)
		}
		sum += k.Probability
	}
	if math.Abs(sum-1) > probabilityTolerance {
		return fmt.Errorf("food probabilities sum to %v, want 1", sum)
	}
	return nil
}

// Kind returns the kind for ft, or false when ft is out of range.
func (t FoodTable) Kind(ft FoodType) (FoodKind, bool) {
	if ft < 0 || int(ft) >= len(t) {
		return FoodKind{}, false
	}
	return t[ft], true
}

// Lookup finds a food type by name.
func (t FoodTable) Lookup(name string) (FoodType, bool) {
	for i, k := range t {
		if k.Name == name {
			return FoodType(i), true
		}
	}
	return 0, false
}

// Select maps a uniform draw u in [0,1) onto a food type. Boundaries are
// half-open: u equal to a cumulative boundary belongs to the next type.
// Cumulative sums are rounded to 12 decimals so that boundaries written in
// decimal (0.62, 0.85, 0.95) are honored exactly.
func (t FoodTable) Select(u float64) FoodType {
	acc := 0.0
	for i, k := range t {
		acc = math.Round((acc+k.Probability)*1e12) / 1e12
		if u < acc {
			return FoodType(i)
		}
	}
	return FoodType(len(t) - 1)
}

// Draw performs a single uniform draw. A nil rng uses the package-level source.
func (t FoodTable) Draw(rng *rand.Rand) FoodType {
	if rng == nil {
		return t.Select(rand.Float64())
	}
	return t.Select(rng.Float64())
}

// Food is the single active food item on the board.
type Food struct {
	Pos  Point    `json:"pos"`
	Type FoodType `json:"type"`
}

// PlaceFood picks a free cell not covered by the snake and draws a type for it.
// ErrBoardFull is returned unchanged so callers can end the game.
func PlaceFood(rng *rand.Rand, grid Grid, table FoodTable, snake Snake) (Food, error) {
	pos, err := grid.RandomFreeCell(rng, snake.Body)
	if err != nil {
		return Food{}, err
	}
	return Food{Pos: pos, Type: table.Draw(rng)}, nil
}
