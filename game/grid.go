package game

import (
	"errors"
	"math/rand"
)

// ErrBoardFull is returned when every cell of the grid is occupied.
var ErrBoardFull = errors.New("no free cell on board")

// Grid is a fixed-size board of Width x Height cells, each CellSize pixels wide.
type Grid struct {
	Width    int `json:"width"`
	Height   int `json:"height"`
	CellSize int `json:"cellSize"`
}

// Cells is the number of cells on the board.
func (g Grid) Cells() int { return g.Width * g.Height }

// InBounds reports whether p lies within [0, Width*CellSize) x [0, Height*CellSize).
func (g Grid) InBounds(p Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < g.Width*g.CellSize && p.Y < g.Height*g.CellSize
}

// Aligned reports whether p sits on a cell boundary.
func (g Grid) Aligned(p Point) bool {
	if g.CellSize <= 0 {
		return false
	}
	return p.X%g.CellSize == 0 && p.Y%g.CellSize == 0
}

// Cell returns the pixel position of the cell at column col and row row.
func (g Grid) Cell(col, row int) Point {
	return Point{X: col * g.CellSize, Y: row * g.CellSize}
}

// Center is the cell in the middle of the board, rounding toward the origin.
func (g Grid) Center() Point {
	return g.Cell((g.Width-1)/2, (g.Height-1)/2)
}

// CellOf converts a pixel position into column and row.
func (g Grid) CellOf(p Point) (col, row int) {
	if g.CellSize <= 0 {
		return 0, 0
	}
	return p.X / g.CellSize, p.Y / g.CellSize
}

// RandomFreeCell picks a cell uniformly among those not in excluding.
// It returns ErrBoardFull when no cell is free.
// A nil rng falls back to the package-level math/rand source.
func (g Grid) RandomFreeCell(rng *rand.Rand, excluding []Point) (Point, error) {
	if g.Width <= 0 || g.Height <= 0 || g.CellSize <= 0 {
		return Point{}, ErrBoardFull
	}

	occupied := make(map[Point]struct{}, len(excluding))
	for _, p := range excluding {
		occupied[p] = struct{}{}
	}

	available := make([]Point, 0, g.Cells()-len(occupied))
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			p := g.Cell(col, row)
			if _, ok := occupied[p]; ok {
				continue
			}
			available = append(available, p)
		}
	}
	if len(available) == 0 {
		return Point{}, ErrBoardFull
	}

	intn := rand.Intn
	if rng != nil {
		intn = rng.Intn
	}
	return available[intn(len(available))], nil
}
