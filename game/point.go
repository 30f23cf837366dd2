// Package game defines the board geometry, snake body and food types.
//
// Everything in this package is a value or a pure function over values. Mutable
// session state (score, speed, staged direction) lives in the rules package.
package game

import (
	"fmt"
	"strings"
)

// Point is a board coordinate in pixels.
// Coordinates are grid-aligned: both components are multiples of the cell size.
// (0,0) is the top-left cell and Y grows downward.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

func (p Point) Scale(k int) Point { return Point{X: p.X * k, Y: p.Y * k} }

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Direction is one of the four movement directions.
// The numeric values match the policy index used by the autopilot model.
type Direction int8

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Directions lists every direction in policy order.
var Directions = [4]Direction{Up, Down, Left, Right}

func (d Direction) Valid() bool { return d >= Up && d <= Right }

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	}
	return d
}

// Delta is the unit step for d in cell units.
func (d Direction) Delta() Point {
	switch d {
	case Up:
		return Point{X: 0, Y: -1}
	case Down:
		return Point{X: 0, Y: 1}
	case Left:
		return Point{X: -1, Y: 0}
	case Right:
		return Point{X: 1, Y: 0}
	}
	return Point{}
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("direction(%d)", int8(d))
}

// ParseDirection accepts the lowercase direction names, case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid direction %d", int8(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
