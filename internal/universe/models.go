package universe

import (
	"empires-server/internal/hexgrid"
	"empires-server/internal/shared/errors"
	"empires-server/internal/world"
)

type Config struct {
	Radius              int   `json:"radius"`
	CelestialsPerSector int   `json:"celestials_per_sector"`
	MaxCelestialSize    int   `json:"max_celestial_size"`
	Seed                int64 `json:"seed"`
}

const maxRadius = 64

func (c Config) Validate() error {
	if c.Radius < 0 || c.Radius > maxRadius {
		return errors.Validationf("radius must be between 0 and %d", maxRadius)
	}
	if c.CelestialsPerSector < 0 {
		return errors.Validation("celestials per sector must not be negative")
	}
	if c.MaxCelestialSize < 1 {
		return errors.Validation("max celestial size must be positive")
	}
	return nil
}

// SectorPlan is a sector and its celestials before they are stored.
type SectorPlan struct {
	Position   hexgrid.Cell
	Name       string
	Celestials []CelestialPlan
}

type CelestialPlan struct {
	Position int
	MaxSize  int
	Features []string
}

type Summary struct {
	Sectors    int  `json:"sectors"`
	Celestials int  `json:"celestials"`
	Skipped    bool `json:"skipped"`
}

// SectorView is a sector with its celestials.
type SectorView struct {
	world.Sector
	Celestials []world.Celestial `json:"celestial_set"`
}

// CelestialView adds derived capacity to a celestial.
type CelestialView struct {
	world.Celestial
	Constructions     []world.Construction `json:"construction_set"`
	Reserved          int                  `json:"reserved_capacity"`
	RemainingCapacity int                  `json:"remaining_capacity"`
}
