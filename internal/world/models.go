package world

import (
	"time"

	"empires-server/internal/catalog"
	"empires-server/internal/hexgrid"
)

type Empire struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Origin    *hexgrid.Cell `json:"origin,omitempty"`
	ColorHue  float64       `json:"color_hue"`
	CreatedAt time.Time     `json:"created_at"`
}

// Blueprint is an empire's copy of a catalog entry. Data is a snapshot taken at
// creation and never follows later catalog edits.
type Blueprint struct {
	ID       int64            `json:"id"`
	BaseID   string           `json:"base_id"`
	EmpireID int64            `json:"empire"`
	Data     catalog.Snapshot `json:"data"`
}

type Sector struct {
	ID       int64        `json:"id"`
	Position hexgrid.Cell `json:"position"`
	Name     string       `json:"name"`
}

type Celestial struct {
	ID          int64    `json:"id"`
	SectorID    int64    `json:"sector"`
	Position    int      `json:"position"`
	Features    []string `json:"features"`
	MaxSize     int      `json:"max_size"`
	HabitatedBy *int64   `json:"habitated_by"`
}

func (c Celestial) HabitatedByEmpire(empireID int64) bool {
	return c.HabitatedBy != nil && *c.HabitatedBy == empireID
}

// Construction is a completed build. BaseID and Size are read through its blueprint.
type Construction struct {
	ID          int64  `json:"id"`
	BlueprintID int64  `json:"blueprint"`
	CelestialID int64  `json:"celestial"`
	BaseID      string `json:"base_id"`
	Size        int    `json:"size"`
	EmpireID    int64  `json:"owner"`
}

type Movable struct {
	ID          int64         `json:"id"`
	Position    hexgrid.Cell  `json:"position"`
	Destination *hexgrid.Cell `json:"destination"`
	Speed       int           `json:"speed"`
	ProcessID   *int64        `json:"process"`
}

// Ship rides a movable. EmpireID is the owner, read through the blueprint.
type Ship struct {
	ID          int64  `json:"id"`
	BlueprintID int64  `json:"blueprint"`
	MovableID   int64  `json:"movable"`
	EmpireID    int64  `json:"owner"`
	BaseID      string `json:"type_id"`
	Name        string `json:"type"`
}
