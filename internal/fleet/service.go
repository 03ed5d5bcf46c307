// Package fleet moves and scraps the ships an empire has launched.
package fleet

import (
	"context"
	"log/slog"

	"empires-server/internal/hexgrid"
	"empires-server/internal/process"
	apperrors "empires-server/internal/shared/errors"
	"empires-server/internal/store"
	"empires-server/internal/world"
)

// Scheduler persists a process in the caller's transaction.
type Scheduler interface {
	Schedule(ctx context.Context, tx store.Tx, startTick, durationTicks int64, handlerID string, payload any) (*process.Process, error)
}

type Service struct {
	store     store.Store
	scheduler Scheduler
	logger    *slog.Logger
}

func NewService(s store.Store, scheduler Scheduler, logger *slog.Logger) *Service {
	logger.Debug("Initializing fleet service")

	return &Service{
		store:     s,
		scheduler: scheduler,
		logger:    logger,
	}
}

func ownsAny(ships []world.Ship, empireID int64) bool {
	for _, s := range ships {
		if s.EmpireID == empireID {
			return true
		}
	}
	return false
}

// Move sends a movable toward dest and schedules the process that confirms its
// arrival. A movable already under way is rerouted; its earlier process goes stale.
func (s *Service) Move(ctx context.Context, requesterID, movableID int64, dest hexgrid.Cell) (*process.Process, error) {
	logger := s.logger.With("component", "fleet_service", "operation", "move",
		"empire_id", requesterID, "movable_id", movableID, "destination", dest.String())

	var scheduled *process.Process
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		w, err := tx.ShareWorld(ctx)
		if err != nil {
			return store.AppError(err, "world", 1)
		}
		m, err := tx.LockMovable(ctx, movableID)
		if err != nil {
			return store.AppError(err, "movable", movableID)
		}
		ships, err := tx.ListShips(ctx, movableID)
		if err != nil {
			return store.AppError(err, "ships of movable", movableID)
		}
		if !ownsAny(ships, requesterID) {
			return apperrors.PermissionDeniedf("empire %d has no ship on movable %d", requesterID, movableID)
		}
		if m.Speed <= 0 {
			return apperrors.Validationf("movable %d cannot move", movableID)
		}
		if m.Position == dest {
			return apperrors.Validationf("movable %d is already at %s", movableID, dest)
		}

		ticks := world.TicksToArrive(m.Position, dest, m.Speed)
		scheduled, err = s.scheduler.Schedule(ctx, tx, w.Now, ticks, process.HandlerMovement,
			process.MovementPayload{MovableID: movableID, Destination: dest})
		if err != nil {
			return err
		}

		m.Destination = &dest
		m.ProcessID = &scheduled.ID
		return store.AppError(tx.UpdateMovable(ctx, *m), "movable", movableID)
	})
	if err != nil {
		logger.Debug("Move rejected", "error", err)
		return nil, err
	}

	logger.Info("Move scheduled", "process_id", scheduled.ID, "end_tick", scheduled.EndTick)
	return scheduled, nil
}

func (s *Service) GetMovable(ctx context.Context, id int64) (*world.MovableView, error) {
	var view world.MovableView
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		m, err := tx.GetMovable(ctx, id)
		if err != nil {
			return store.AppError(err, "movable", id)
		}
		ships, err := tx.ListShips(ctx, id)
		if err != nil {
			return store.AppError(err, "ships of movable", id)
		}
		view = world.NewMovableView(*m, ships)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *Service) ListEmpireMovables(ctx context.Context, empireID int64) ([]world.MovableView, error) {
	views := []world.MovableView{}
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetEmpire(ctx, empireID); err != nil {
			return store.AppError(err, "empire", empireID)
		}
		movables, err := tx.ListEmpireMovables(ctx, empireID)
		if err != nil {
			return store.AppError(err, "movables of empire", empireID)
		}
		for _, m := range movables {
			ships, err := tx.ListShips(ctx, m.ID)
			if err != nil {
				return store.AppError(err, "ships of movable", m.ID)
			}
			views = append(views, world.NewMovableView(m, ships))
		}
		return nil
	})
	return views, err
}

// DemolishShip scraps a ship. The movable it rode goes too once no ships are left on it.
func (s *Service) DemolishShip(ctx context.Context, requesterID, shipID int64) error {
	logger := s.logger.With("component", "fleet_service", "operation", "demolish_ship",
		"empire_id", requesterID, "ship_id", shipID)

	movableRemoved := false
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		ship, err := tx.GetShip(ctx, shipID)
		if err != nil {
			return store.AppError(err, "ship", shipID)
		}
		if ship.EmpireID != requesterID {
			return apperrors.PermissionDeniedf("ship %d does not belong to empire %d", shipID, requesterID)
		}
		if _, err := tx.LockMovable(ctx, ship.MovableID); err != nil {
			return store.AppError(err, "movable", ship.MovableID)
		}
		if err := tx.DeleteShip(ctx, shipID); err != nil {
			return store.AppError(err, "ship", shipID)
		}

		remaining, err := tx.ListShips(ctx, ship.MovableID)
		if err != nil {
			return store.AppError(err, "ships of movable", ship.MovableID)
		}
		if len(remaining) > 0 {
			return nil
		}
		movableRemoved = true
		return store.AppError(tx.DeleteMovable(ctx, ship.MovableID), "movable", ship.MovableID)
	})
	if err != nil {
		return err
	}

	logger.Info("Ship demolished", "movable_removed", movableRemoved)
	return nil
}
