package engine

import (
	"context"
	"fmt"

	"empires-server/internal/blueprint"
	"empires-server/internal/process"
	apperrors "empires-server/internal/shared/errors"
	"empires-server/internal/store"
	"empires-server/internal/world"
)

// RegisterDefaults installs the construction, ship and movement handlers.
func RegisterDefaults(r *Registry, resolver *blueprint.Resolver) error {
	handlers := map[string]Handler{
		process.HandlerConstruction: ConstructionHandler(resolver),
		process.HandlerShip:         ShipHandler(resolver),
		process.HandlerMovement:     MovementHandler(),
	}
	for _, id := range []string{process.HandlerConstruction, process.HandlerShip, process.HandlerMovement} {
		if err := r.Register(id, handlers[id]); err != nil {
			return err
		}
	}
	return nil
}

// revalidate repeats the build checks against the state at resolution time. The
// resolving process no longer reserves capacity.
func revalidate(ctx context.Context, env Env, resolver *blueprint.Resolver, p process.Process) (*world.Blueprint, *world.Celestial, error) {
	var payload process.BuildPayload
	if err := p.Decode(&payload); err != nil {
		return nil, nil, apperrors.WrapValidation("malformed build payload", err)
	}

	bp, err := env.Tx.GetBlueprint(ctx, payload.BlueprintID)
	if err != nil {
		return nil, nil, store.AppError(err, "blueprint", payload.BlueprintID)
	}

	celestial, err := env.Tx.LockCelestial(ctx, payload.CelestialID)
	if err != nil {
		return nil, nil, store.AppError(err, "celestial", payload.CelestialID)
	}

	if _, err := resolver.ValidateBuild(ctx, env.Tx, bp.EmpireID, *bp, *celestial, p.ID); err != nil {
		return nil, nil, err
	}
	return bp, celestial, nil
}

func ConstructionHandler(resolver *blueprint.Resolver) Handler {
	return func(ctx context.Context, env Env, p process.Process) error {
		bp, celestial, err := revalidate(ctx, env, resolver, p)
		if err != nil {
			return err
		}

		c := world.Construction{BlueprintID: bp.ID, CelestialID: celestial.ID}
		if err := env.Tx.CreateConstruction(ctx, &c); err != nil {
			return store.AppError(err, "construction", bp.BaseID)
		}

		env.Logger.Info("Construction completed",
			"process_id", p.ID,
			"construction_id", c.ID,
			"base_id", bp.BaseID,
			"celestial_id", celestial.ID)
		return nil
	}
}

// ShipHandler launches the ship on a new movable at the sector holding the celestial.
func ShipHandler(resolver *blueprint.Resolver) Handler {
	return func(ctx context.Context, env Env, p process.Process) error {
		bp, celestial, err := revalidate(ctx, env, resolver, p)
		if err != nil {
			return err
		}

		sector, err := env.Tx.GetSector(ctx, celestial.SectorID)
		if err != nil {
			return store.AppError(err, "sector", celestial.SectorID)
		}

		m := world.Movable{Position: sector.Position, Speed: bp.Data.Speed}
		if err := env.Tx.CreateMovable(ctx, &m); err != nil {
			return store.AppError(err, "movable", sector.Position)
		}

		ship := world.Ship{BlueprintID: bp.ID, MovableID: m.ID}
		if err := env.Tx.CreateShip(ctx, &ship); err != nil {
			return store.AppError(err, "ship", bp.BaseID)
		}

		env.Logger.Info("Ship launched",
			"process_id", p.ID,
			"ship_id", ship.ID,
			"movable_id", m.ID,
			"base_id", bp.BaseID,
			"position", sector.Position.String())
		return nil
	}
}

// MovementHandler confirms that a movable reached the destination its process was
// scheduled for. Movables rerouted since then leave the process stale.
func MovementHandler() Handler {
	return func(ctx context.Context, env Env, p process.Process) error {
		var payload process.MovementPayload
		if err := p.Decode(&payload); err != nil {
			return apperrors.WrapValidation("malformed movement payload", err)
		}

		m, err := env.Tx.LockMovable(ctx, payload.MovableID)
		if err != nil {
			return store.AppError(err, "movable", payload.MovableID)
		}

		if m.ProcessID == nil || *m.ProcessID != p.ID {
			return apperrors.Unprocessable(apperrors.ReasonStaleDestination,
				fmt.Sprintf("movable %d was rerouted after process %d was scheduled", m.ID, p.ID))
		}
		if m.Moving() || m.Position != payload.Destination {
			return apperrors.Unprocessable(apperrors.ReasonStaleDestination,
				fmt.Sprintf("movable %d is at %s, expected %s", m.ID, m.Position, payload.Destination))
		}

		m.ProcessID = nil
		if err := env.Tx.UpdateMovable(ctx, *m); err != nil {
			return store.AppError(err, "movable", m.ID)
		}

		env.Logger.Info("Movable arrived",
			"process_id", p.ID,
			"movable_id", m.ID,
			"position", m.Position.String())
		return nil
	}
}
