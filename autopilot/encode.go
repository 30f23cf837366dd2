package autopilot

import (
	"github.com/brensch/snekrush/session"
)

// Planes is the number of feature planes produced by Encode.
const Planes = 3

// Feature planes, each Height x Width, row-major.
const (
	PlaneBody = iota
	PlaneHead
	PlaneFood
)

// Encode converts a snapshot into a [Planes, Height, Width] float32 tensor.
// Body cells hold a value rising from the tail toward the head so the network
// can tell which segments leave first.
func Encode(snap session.Snapshot) []float32 {
	g := snap.Grid
	area := g.Width * g.Height
	out := make([]float32, Planes*area)
	if area == 0 {
		return out
	}
	at := func(plane, col, row int) int { return plane*area + row*g.Width + col }

	n := len(snap.Snake)
	for i, p := range snap.Snake {
		if !g.InBounds(p) {
			continue
		}
		col, row := g.CellOf(p)
		out[at(PlaneBody, col, row)] = float32(i+1) / float32(n)
	}
	if n > 0 {
		if head := snap.Snake[n-1]; g.InBounds(head) {
			col, row := g.CellOf(head)
			out[at(PlaneHead, col, row)] = 1
		}
	}
	if snap.Food != nil && g.InBounds(snap.Food.Pos) {
		col, row := g.CellOf(snap.Food.Pos)
		out[at(PlaneFood, col, row)] = float32(snap.Food.Points)
	}
	return out
}
