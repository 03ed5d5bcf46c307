// Package world holds the simulated entities and the pure rules derived from them:
// the world clock, celestial capacity and movement.
package world

import (
	"time"
)

// World is the singleton clock. Now only moves forward, through Advance.
type World struct {
	Now               int64         `json:"now"`
	LastTickTimestamp time.Time     `json:"last_tick_timestamp"`
	TickDuration      time.Duration `json:"-"`
}

// New creates the clock at tick zero anchored at the given wall-clock time.
func New(anchor time.Time, tickDuration time.Duration) World {
	return World{
		Now:               0,
		LastTickTimestamp: anchor,
		TickDuration:      tickDuration,
	}
}

func (w World) TickDurationSeconds() float64 {
	return w.TickDuration.Seconds()
}

// TicksOwed is the number of whole ticks elapsed since the anchor.
func (w World) TicksOwed(at time.Time) int64 {
	if w.TickDuration <= 0 {
		return 0
	}
	elapsed := at.Sub(w.LastTickTimestamp)
	if elapsed < 0 {
		return 0
	}
	return int64(elapsed / w.TickDuration)
}

// Advance moves the clock by ticks and shifts the anchor by the same amount of
// wall-clock time, so fractional progress toward the next tick is kept.
func (w World) Advance(ticks int64) World {
	if ticks <= 0 {
		return w
	}
	w.Now += ticks
	w.LastTickTimestamp = w.LastTickTimestamp.Add(time.Duration(ticks) * w.TickDuration)
	return w
}

// RemainingSeconds until the next tick is owed, never negative.
func (w World) RemainingSeconds(at time.Time) float64 {
	next := w.LastTickTimestamp.Add(time.Duration(w.TicksOwed(at)+1) * w.TickDuration)
	remaining := next.Sub(at).Seconds()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// View is the read model of the world clock.
type View struct {
	Now                 int64     `json:"now"`
	LastTickTimestamp   time.Time `json:"last_tick_timestamp"`
	TickDurationSeconds float64   `json:"tick_duration_seconds"`
	RemainingSeconds    float64   `json:"remaining_seconds"`
}

func (w World) View(at time.Time) View {
	return View{
		Now:                 w.Now,
		LastTickTimestamp:   w.LastTickTimestamp,
		TickDurationSeconds: w.TickDurationSeconds(),
		RemainingSeconds:    w.RemainingSeconds(at),
	}
}
