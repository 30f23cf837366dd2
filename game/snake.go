package game

import (
	"errors"
	"fmt"
)

// Snake is the ordered list of body segments, tail first and head last.
type Snake struct {
	Body []Point `json:"body"`
}

// NewSnake copies body into a new Snake. body is tail-first.
func NewSnake(body ...Point) Snake {
	out := make([]Point, len(body))
	copy(out, body)
	return Snake{Body: out}
}

func (s Snake) Len() int { return len(s.Body) }

// Head is the last segment. It panics on an empty snake, which Validate rejects.
func (s Snake) Head() Point { return s.Body[len(s.Body)-1] }

// Tail is the first segment, the one vacated on a non-growing move.
func (s Snake) Tail() Point { return s.Body[0] }

func (s Snake) Contains(p Point) bool {
	for _, b := range s.Body {
		if b == p {
			return true
		}
	}
	return false
}

// Clone performs a deep copy of the body.
func (s Snake) Clone() Snake { return NewSnake(s.Body...) }

// Validate checks the body invariants: non-empty, in bounds, grid-aligned,
// no repeated segment.
func (s Snake) Validate(grid Grid) error {
	if len(s.Body) == 0 {
		return errors.New("snake has no segments")
	}
	seen := make(map[Point]bool, len(s.Body))
	for i, p := range s.Body {
		if !grid.InBounds(p) {
			return fmt.Errorf("segment %d at %v is out of bounds", i, p)
		}
		if !grid.Aligned(p) {
			return fmt.Errorf("segment %d at %v is not cell aligned", i, p)
		}
		if seen[p] {
			return fmt.Errorf("segment %d at %v overlaps another segment", i, p)
		}
		seen[p] = true
	}
	return nil
}

// NextHead is the head position after one step in d.
func NextHead(s Snake, d Direction, cellSize int) Point {
	return s.Head().Add(d.Delta().Scale(cellSize))
}

// WillCollide reports whether moving the head to next kills the snake.
//
// next collides when it is out of bounds or lands on a body segment. When the
// snake is not growing this tick the tail segment moves away as the head moves
// in, so the current tail cell is not counted.
func WillCollide(next Point, s Snake, grid Grid, growing bool) bool {
	if !grid.InBounds(next) {
		return true
	}
	body := s.Body
	if !growing && len(body) > 0 {
		body = body[1:]
	}
	for _, p := range body {
		if p == next {
			return true
		}
	}
	return false
}

// Advance returns the snake after one step in d. The tail is dropped unless
// ate is set, in which case the snake grows by one segment.
func Advance(s Snake, d Direction, cellSize int, ate bool) Snake {
	next := NextHead(s, d, cellSize)
	body := make([]Point, 0, len(s.Body)+1)
	body = append(body, s.Body...)
	body = append(body, next)
	if !ate {
		body = body[1:]
	}
	return Snake{Body: body}
}
