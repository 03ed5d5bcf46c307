package hexgrid

import "testing"

func TestDistance(t *testing.T) {
	cases := []struct {
		a, b Cell
		want int
	}{
		{Cell{0, 0}, Cell{0, 0}, 0},
		{Cell{0, 0}, Cell{1, 0}, 1},
		{Cell{0, 0}, Cell{1, -1}, 1},
		{Cell{0, 0}, Cell{2, -1}, 2},
		{Cell{-3, 1}, Cell{2, 2}, 6},
	}
	for _, tc := range cases {
		if got := Distance(tc.a, tc.b); got != tc.want {
			t.Fatalf("Distance(%v, %v) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
		if got := Distance(tc.b, tc.a); got != tc.want {
			t.Fatalf("Distance(%v, %v) = %d, want %d", tc.b, tc.a, got, tc.want)
		}
	}
}

func TestNeighborsAreAtDistanceOne(t *testing.T) {
	c := Cell{Q: 4, R: -7}
	seen := NewSet()
	for _, n := range c.Neighbors() {
		if d := Distance(c, n); d != 1 {
			t.Fatalf("neighbor %v at distance %d", n, d)
		}
		seen.Add(n)
	}
	if seen.Len() != 6 {
		t.Fatalf("expected 6 distinct neighbors, got %d", seen.Len())
	}
}

func TestStepTowardClampsAtDestination(t *testing.T) {
	from := Cell{0, 0}
	to := Cell{10, 0}

	pos := from
	want := []Cell{{3, 0}, {6, 0}, {9, 0}, {10, 0}, {10, 0}}
	for i, w := range want {
		pos = StepToward(pos, to, 3)
		if pos != w {
			t.Fatalf("step %d: got %v, want %v", i+1, pos, w)
		}
	}
}

func TestStepTowardReducesDistanceExactly(t *testing.T) {
	from := Cell{-4, 7}
	to := Cell{5, -2}
	total := Distance(from, to)

	pos := from
	for moved := 0; pos != to; {
		next := StepToward(pos, to, 2)
		moved += Distance(pos, next)
		if Distance(next, to) != total-moved {
			t.Fatalf("at %v: remaining %d, want %d", next, Distance(next, to), total-moved)
		}
		pos = next
	}
}

func TestLineEndpoints(t *testing.T) {
	line := Line(Cell{0, 0}, Cell{3, -2})
	if len(line) != 4 {
		t.Fatalf("expected 4 cells, got %d", len(line))
	}
	if line[0] != (Cell{0, 0}) || line[3] != (Cell{3, -2}) {
		t.Fatalf("unexpected endpoints %v", line)
	}
	for i := 1; i < len(line); i++ {
		if Distance(line[i-1], line[i]) != 1 {
			t.Fatalf("cells %v and %v are not adjacent", line[i-1], line[i])
		}
	}
}
