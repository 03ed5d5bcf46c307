// Package hexgrid implements set algebra over a hexagonal grid in axial coordinates (q, r).
// The third cube coordinate is derived as s = -q - r.
package hexgrid

import (
	"fmt"
	"math"
)

// Cell is a hex grid position in axial coordinates.
type Cell struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (c Cell) S() int {
	return -c.Q - c.R
}

func (c Cell) Add(o Cell) Cell {
	return Cell{Q: c.Q + o.Q, R: c.R + o.R}
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Q, c.R)
}

// Directions are the six neighbor offsets.
var Directions = [6]Cell{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent cells.
func (c Cell) Neighbors() [6]Cell {
	var result [6]Cell
	for i, dir := range Directions {
		result[i] = c.Add(dir)
	}
	return result
}

// Distance returns the hex grid distance between two cells.
func Distance(a, b Cell) int {
	return max(abs(a.Q-b.Q), abs(a.R-b.R), abs(a.S()-b.S()))
}

// StepToward returns the cell reached by moving at most steps cells from `from`
// along the hex line to `to`. It never overshoots: when to is within reach it is returned.
func StepToward(from, to Cell, steps int) Cell {
	if steps <= 0 {
		return from
	}
	n := Distance(from, to)
	if n <= steps {
		return to
	}
	t := float64(steps) / float64(n)
	// Nudge both ends off cell edges so ties round consistently.
	return cubeRound(
		lerp(float64(from.Q)+1e-6, float64(to.Q)+1e-6, t),
		lerp(float64(from.R)+2e-6, float64(to.R)+2e-6, t),
		lerp(float64(from.S())-3e-6, float64(to.S())-3e-6, t),
	)
}

// Line returns the cells of the hex line from a to b, both ends included.
func Line(a, b Cell) []Cell {
	n := Distance(a, b)
	cells := make([]Cell, 0, n+1)
	for i := 0; i <= n; i++ {
		cells = append(cells, StepToward(a, b, i))
	}
	return cells
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// cubeRound snaps fractional cube coordinates to the nearest cell, fixing up the
// component with the largest rounding error so that q + r + s stays zero.
func cubeRound(q, r, s float64) Cell {
	rq, rr, rs := math.Round(q), math.Round(r), math.Round(s)
	dq, dr, ds := math.Abs(rq-q), math.Abs(rr-r), math.Abs(rs-s)

	switch {
	case dq > dr && dq > ds:
		rq = -rr - rs
	case dr > ds:
		rr = -rq - rs
	}
	return Cell{Q: int(rq), R: int(rr)}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
