// Package blueprint validates build requests against the catalog and the state of a
// celestial, and schedules the processes that carry them out.
package blueprint

import (
	"context"

	"empires-server/internal/catalog"
	"empires-server/internal/process"
	apperrors "empires-server/internal/shared/errors"
	"empires-server/internal/store"
	"empires-server/internal/world"
)

type Resolver struct {
	catalog *catalog.Catalog
}

func NewResolver(c *catalog.Catalog) *Resolver {
	return &Resolver{catalog: c}
}

// Lookup fails with a not found error when baseID is malformed or absent from the catalog.
func (r *Resolver) Lookup(baseID string) (catalog.Entry, error) {
	return r.catalog.Lookup(baseID)
}

func (r *Resolver) Catalog() *catalog.Catalog {
	return r.catalog
}

// Check runs the build checks in order and reports the first that fails:
// ownership, then remaining capacity, then prerequisites.
func Check(requesterID int64, bp world.Blueprint, entry catalog.Entry, c world.Celestial, constructions []world.Construction, reserved int) error {
	if bp.EmpireID != requesterID {
		return apperrors.PermissionDeniedf("blueprint %d does not belong to empire %d", bp.ID, requesterID)
	}
	if !c.HabitatedByEmpire(requesterID) {
		return apperrors.PermissionDeniedf("celestial %d is not habitated by empire %d", c.ID, requesterID)
	}

	if remaining := world.RemainingCapacity(c, constructions, reserved); remaining < bp.Data.Size {
		return apperrors.InsufficientCapacityf("celestial %d has %d capacity left, %s needs %d",
			c.ID, remaining, bp.BaseID, bp.Data.Size)
	}

	for _, req := range entry.Requirements {
		if !world.HasConstruction(constructions, req) {
			return apperrors.UnmetPrerequisitef("%s requires %s on celestial %d", bp.BaseID, req, c.ID)
		}
	}
	return nil
}

// ValidateBuild loads what Check needs from tx. Pending construction processes count
// against capacity, except excludeProcessID.
func (r *Resolver) ValidateBuild(ctx context.Context, tx store.Tx, requesterID int64, bp world.Blueprint, c world.Celestial, excludeProcessID int64) (catalog.Entry, error) {
	entry, err := r.catalog.Lookup(bp.BaseID)
	if err != nil {
		return catalog.Entry{}, err
	}

	constructions, err := tx.ListConstructions(ctx, c.ID)
	if err != nil {
		return catalog.Entry{}, store.AppError(err, "constructions of celestial", c.ID)
	}

	reserved, err := tx.ReservedCapacity(ctx, c.ID, excludeProcessID)
	if err != nil {
		return catalog.Entry{}, store.AppError(err, "reserved capacity of celestial", c.ID)
	}

	if err := Check(requesterID, bp, entry, c, constructions, reserved); err != nil {
		return catalog.Entry{}, err
	}
	return entry, nil
}

// HandlerFor names the process handler that turns a finished build into state.
func HandlerFor(entry catalog.Entry) string {
	if entry.IsShip() {
		return process.HandlerShip
	}
	return process.HandlerConstruction
}

// Payload is the process data of a build. Only construction builds reserve capacity.
func Payload(bp world.Blueprint, entry catalog.Entry, celestialID int64) process.BuildPayload {
	payload := process.BuildPayload{
		BlueprintID: bp.ID,
		CelestialID: celestialID,
	}
	if !entry.IsShip() {
		payload.Size = bp.Data.Size
	}
	return payload
}
