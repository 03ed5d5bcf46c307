package empire

import (
	"empires-server/internal/hexgrid"
	"empires-server/internal/world"
)

type CreateRequest struct {
	Name     string        `json:"name"`
	Origin   *hexgrid.Cell `json:"origin,omitempty"`
	ColorHue float64       `json:"color_hue"`
}

// Created is an empire together with the blueprints it was seeded with.
type Created struct {
	Empire     world.Empire      `json:"empire"`
	Blueprints []world.Blueprint `json:"blueprint_set"`
}

// TerritoryRadius is how far an empire's presence reaches around a sector or movable.
const TerritoryRadius = 1

// Territory is the union of the neighborhoods around the given cells.
func Territory(cells []hexgrid.Cell) hexgrid.Set {
	sets := make([]hexgrid.Set, 0, len(cells))
	for _, c := range cells {
		sets = append(sets, hexgrid.DistanceSet(c, TerritoryRadius))
	}
	return hexgrid.Union(sets...)
}
