package world

import (
	"testing"
	"time"

	"empires-server/internal/hexgrid"
)

func TestTicksOwedAndAdvance(t *testing.T) {
	anchor := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w := New(anchor, time.Minute)

	if owed := w.TicksOwed(anchor.Add(59 * time.Second)); owed != 0 {
		t.Fatalf("owed = %d, want 0", owed)
	}
	at := anchor.Add(11*time.Minute + 30*time.Second)
	owed := w.TicksOwed(at)
	if owed != 11 {
		t.Fatalf("owed = %d, want 11", owed)
	}

	w = w.Advance(owed)
	if w.Now != 11 {
		t.Fatalf("now = %d, want 11", w.Now)
	}
	if !w.LastTickTimestamp.Equal(anchor.Add(11 * time.Minute)) {
		t.Fatalf("anchor = %v", w.LastTickTimestamp)
	}
	if got := w.RemainingSeconds(at); got != 30 {
		t.Fatalf("remaining = %v, want 30", got)
	}
	if w.TicksOwed(at) != 0 {
		t.Fatalf("no ticks should be owed right after advancing")
	}
}

func TestAdvanceNeverMovesBackwards(t *testing.T) {
	w := New(time.Now(), time.Second)
	w = w.Advance(5)
	if w.Advance(-3).Now != 5 || w.Advance(0).Now != 5 {
		t.Fatalf("clock moved backwards")
	}
	if w.TicksOwed(w.LastTickTimestamp.Add(-time.Hour)) != 0 {
		t.Fatalf("clock skew should not owe ticks")
	}
}

func TestRemainingCapacity(t *testing.T) {
	c := Celestial{ID: 1, MaxSize: 10}
	cons := []Construction{
		{CelestialID: 1, Size: 3, BaseID: "hab/colony"},
		{CelestialID: 1, Size: 2, BaseID: "construction/mine"},
		{CelestialID: 2, Size: 9},
	}
	if got := RemainingCapacity(c, cons, 0); got != 5 {
		t.Fatalf("remaining = %d, want 5", got)
	}
	if got := RemainingCapacity(c, cons, 4); got != 1 {
		t.Fatalf("remaining with reservation = %d, want 1", got)
	}
	if !HasConstruction(cons, "hab/colony") || HasConstruction(cons, "construction/shipyard") {
		t.Fatalf("HasConstruction mismatch")
	}
}

func TestMovementSteps(t *testing.T) {
	dest := hexgrid.Cell{Q: 10, R: 0}
	m := Movable{Position: hexgrid.Cell{}, Destination: &dest, Speed: 3}

	if next := m.NextPosition(); next != (hexgrid.Cell{Q: 3, R: 0}) {
		t.Fatalf("next position = %v", next)
	}
	if m.Position != (hexgrid.Cell{}) {
		t.Fatalf("NextPosition mutated the movable")
	}

	m = Step(m)
	if m.Position != (hexgrid.Cell{Q: 3, R: 0}) || m.Destination == nil {
		t.Fatalf("after one step: %+v", m)
	}
	for i := 0; i < 3; i++ {
		m = Step(m)
		if m.Position.Q > 10 {
			t.Fatalf("overshot destination: %v", m.Position)
		}
	}
	if m.Position != dest {
		t.Fatalf("after four steps: %v", m.Position)
	}
	if m.Destination != nil {
		t.Fatalf("destination should be cleared on arrival")
	}
	if Step(m).Position != dest {
		t.Fatalf("idle movable moved")
	}
}

func TestStepNAndTicksToArrive(t *testing.T) {
	dest := hexgrid.Cell{Q: -4, R: 6}
	m := Movable{Destination: &dest, Speed: 2}
	ticks := TicksToArrive(m.Position, dest, m.Speed)
	if ticks != 3 {
		t.Fatalf("ticks = %d, want 3", ticks)
	}
	arrived := StepN(m, 100)
	if arrived.Position != dest || arrived.Destination != nil {
		t.Fatalf("StepN did not arrive: %+v", arrived)
	}
	if partial := StepN(m, ticks-1); partial.Destination == nil {
		t.Fatalf("arrived too early at %v", partial.Position)
	}
	if TicksToArrive(dest, dest, 5) != 1 {
		t.Fatalf("a zero-length trip still takes one tick")
	}
}
