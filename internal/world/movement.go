package world

import "empires-server/internal/hexgrid"

func (m Movable) Moving() bool {
	return m.Destination != nil
}

// NextPosition is where the movable will be after one tick. It does not change m.
func (m Movable) NextPosition() hexgrid.Cell {
	if m.Destination == nil {
		return m.Position
	}
	return hexgrid.StepToward(m.Position, *m.Destination, m.Speed)
}

// Step moves the movable one tick toward its destination, clearing the destination on arrival.
func Step(m Movable) Movable {
	if m.Destination == nil {
		return m
	}
	dest := *m.Destination
	m.Position = m.NextPosition()
	if m.Position == dest {
		m.Destination = nil
	}
	return m
}

// StepN applies Step n times, stopping early on arrival.
func StepN(m Movable, n int64) Movable {
	for i := int64(0); i < n && m.Destination != nil; i++ {
		m = Step(m)
	}
	return m
}

// TicksToArrive is the number of steps needed to reach dest at the given speed, at least one.
func TicksToArrive(from, dest hexgrid.Cell, speed int) int64 {
	if speed <= 0 {
		return 0
	}
	d := hexgrid.Distance(from, dest)
	ticks := int64((d + speed - 1) / speed)
	if ticks < 1 {
		ticks = 1
	}
	return ticks
}

// MovableView adds the projected next position to a movable.
type MovableView struct {
	Movable
	NextPosition hexgrid.Cell `json:"next_position"`
	Ships        []Ship       `json:"ship_set"`
	Owner        *int64       `json:"owner"`
}

func NewMovableView(m Movable, ships []Ship) MovableView {
	v := MovableView{Movable: m, NextPosition: m.NextPosition(), Ships: ships}
	if v.Ships == nil {
		v.Ships = []Ship{}
	}
	if len(ships) > 0 {
		owner := ships[0].EmpireID
		v.Owner = &owner
	}
	return v
}
