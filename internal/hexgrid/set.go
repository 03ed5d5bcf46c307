package hexgrid

import (
	"encoding/json"
	"sort"
)

// Set is an unordered collection of cells. Enumeration order is unspecified;
// use Cells for a stable order.
type Set map[Cell]struct{}

func NewSet(cells ...Cell) Set {
	s := make(Set, len(cells))
	for _, c := range cells {
		s[c] = struct{}{}
	}
	return s
}

func (s Set) Add(c Cell) {
	s[c] = struct{}{}
}

// Contains reports exact membership.
func (s Set) Contains(c Cell) bool {
	_, ok := s[c]
	return ok
}

func (s Set) Len() int {
	return len(s)
}

// Equal reports whether both sets hold the same cells.
func (s Set) Equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	for c := range s {
		if !o.Contains(c) {
			return false
		}
	}
	return true
}

// Cells returns the members sorted by r, then q.
func (s Set) Cells() []Cell {
	cells := make([]Cell, 0, len(s))
	for c := range s {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].R != cells[j].R {
			return cells[i].R < cells[j].R
		}
		return cells[i].Q < cells[j].Q
	})
	return cells
}

// MarshalJSON encodes the set as a sorted list of [q, r] pairs.
func (s Set) MarshalJSON() ([]byte, error) {
	pairs := make([][2]int, 0, len(s))
	for _, c := range s.Cells() {
		pairs = append(pairs, [2]int{c.Q, c.R})
	}
	return json.Marshal(pairs)
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var pairs [][2]int
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}
	out := make(Set, len(pairs))
	for _, p := range pairs {
		out.Add(Cell{Q: p[0], R: p[1]})
	}
	*s = out
	return nil
}

// DistanceSet returns every cell whose hex distance from center is at most radius.
// A negative radius yields the empty set.
func DistanceSet(center Cell, radius int) Set {
	if radius < 0 {
		return Set{}
	}
	s := make(Set, 1+3*radius*(radius+1))
	for dq := -radius; dq <= radius; dq++ {
		lo := max(-radius, -dq-radius)
		hi := min(radius, -dq+radius)
		for dr := lo; dr <= hi; dr++ {
			s.Add(Cell{Q: center.Q + dq, R: center.R + dr})
		}
	}
	return s
}

// Union returns a new set holding every cell of every input. No input is modified.
func Union(sets ...Set) Set {
	size := 0
	for _, s := range sets {
		size += len(s)
	}
	out := make(Set, size)
	for _, s := range sets {
		for c := range s {
			out[c] = struct{}{}
		}
	}
	return out
}
