// Package autopilot steers a snake without a human at the keyboard.
//
// A Pilot picks the next direction from a snapshot. Greedy heads for the food
// while avoiding moves that box the snake in; OnnxPilot asks a policy network
// and falls back to Greedy when the network proposes a fatal move.
package autopilot

import (
	"github.com/brensch/snekrush/game"
	"github.com/brensch/snekrush/session"
)

// Pilot chooses the next move. ok is false when there is nothing to decide,
// for example on an empty snapshot.
type Pilot interface {
	Choose(snap session.Snapshot) (d game.Direction, ok bool)
}

// candidate is one legal direction with what the pilots need to rank it.
type candidate struct {
	dir     game.Direction
	next    game.Point
	eats    bool
	safe    bool
	room    int
	foodGap int
}

// candidates lists every direction except the reversal of the heading.
func candidates(snap session.Snapshot) []candidate {
	if len(snap.Snake) == 0 {
		return nil
	}
	snake := game.Snake{Body: snap.Snake}
	cell := snap.Grid.CellSize
	out := make([]candidate, 0, 3)
	for _, d := range game.Directions {
		if len(snap.Snake) > 1 && d == snap.Heading.Opposite() {
			continue
		}
		next := game.NextHead(snake, d, cell)
		c := candidate{dir: d, next: next}
		c.eats = snap.Food != nil && next == snap.Food.Pos
		c.safe = !game.WillCollide(next, snake, snap.Grid, c.eats)
		if c.safe {
			after := game.Advance(snake, d, cell, c.eats)
			c.room = reachable(snap.Grid, after)
		}
		if snap.Food != nil {
			c.foodGap = manhattan(snap.Grid, next, snap.Food.Pos)
		}
		out = append(out, c)
	}
	return out
}

// reachable counts the free cells the head of s can reach. The tail is treated
// as free since it moves away on the next non-growing step.
func reachable(g game.Grid, s game.Snake) int {
	blocked := make(map[game.Point]bool, s.Len())
	for _, p := range s.Body[1:] {
		blocked[p] = true
	}
	head := s.Head()
	seen := map[game.Point]bool{head: true}
	queue := []game.Point{head}
	count := 0
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, d := range game.Directions {
			q := p.Add(d.Delta().Scale(g.CellSize))
			if !g.InBounds(q) || blocked[q] || seen[q] {
				continue
			}
			seen[q] = true
			count++
			queue = append(queue, q)
		}
	}
	return count
}

func manhattan(g game.Grid, a, b game.Point) int {
	ac, ar := g.CellOf(a)
	bc, br := g.CellOf(b)
	return abs(ac-bc) + abs(ar-br)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Greedy moves toward the food. Among safe moves it prefers those that leave
// at least as much room as the snake is long, then the shortest distance to
// the food. When every move is fatal it keeps the current heading.
type Greedy struct{}

func (Greedy) Choose(snap session.Snapshot) (game.Direction, bool) {
	cs := candidates(snap)
	if len(cs) == 0 {
		return 0, false
	}
	need := len(snap.Snake)
	best := -1
	for i, c := range cs {
		if !c.safe {
			continue
		}
		if best < 0 || greedyBetter(c, cs[best], need) {
			best = i
		}
	}
	if best < 0 {
		return snap.Heading, true
	}
	return cs[best].dir, true
}

func greedyBetter(a, b candidate, need int) bool {
	aRoomy, bRoomy := a.room >= need, b.room >= need
	if aRoomy != bRoomy {
		return aRoomy
	}
	if !aRoomy && a.room != b.room {
		return a.room > b.room
	}
	if a.eats != b.eats {
		return a.eats
	}
	if a.foodGap != b.foodGap {
		return a.foodGap < b.foodGap
	}
	return a.room > b.room
}
