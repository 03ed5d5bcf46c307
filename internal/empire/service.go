package empire

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"empires-server/internal/catalog"
	"empires-server/internal/hexgrid"
	apperrors "empires-server/internal/shared/errors"
	"empires-server/internal/store"
	"empires-server/internal/world"
)

const maxNameLength = 50

type Service struct {
	store   store.Store
	catalog *catalog.Catalog
	logger  *slog.Logger
}

func NewService(s store.Store, c *catalog.Catalog, logger *slog.Logger) *Service {
	logger.Debug("Initializing empire service")

	return &Service{
		store:   s,
		catalog: c,
		logger:  logger,
	}
}

// Create stores the empire and one blueprint per catalog entry in a single transaction.
// Each blueprint holds a copy of its entry, so later catalog changes leave it alone.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Created, error) {
	name := strings.TrimSpace(req.Name)
	logger := s.logger.With("component", "empire_service", "operation", "create", "name", name)

	if name == "" {
		return nil, apperrors.Validation("empire name is required")
	}
	if len(name) > maxNameLength {
		return nil, apperrors.Validationf("empire name must be at most %d characters", maxNameLength)
	}
	if req.ColorHue < 0 || req.ColorHue > 1 {
		return nil, apperrors.Validationf("color hue must be between 0 and 1, got %v", req.ColorHue)
	}

	created := Created{Empire: world.Empire{Name: name, Origin: req.Origin, ColorHue: req.ColorHue}}
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if err := tx.CreateEmpire(ctx, &created.Empire); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return apperrors.Conflictf("empire name %q is already taken", name)
			}
			return store.AppError(err, "empire", name)
		}

		for _, entry := range s.catalog.Entries() {
			bp := world.Blueprint{
				BaseID:   entry.BaseID,
				EmpireID: created.Empire.ID,
				Data:     entry.Snapshot(),
			}
			if err := tx.CreateBlueprint(ctx, &bp); err != nil {
				return store.AppError(err, "blueprint", entry.BaseID)
			}
			created.Blueprints = append(created.Blueprints, bp)
		}
		return nil
	})
	if err != nil {
		logger.Debug("Empire creation rejected", "error", err)
		return nil, err
	}

	logger.Info("Empire created", "empire_id", created.Empire.ID, "blueprints", len(created.Blueprints))
	return &created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*world.Empire, error) {
	var e *world.Empire
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		e, err = tx.GetEmpire(ctx, id)
		return store.AppError(err, "empire", id)
	})
	return e, err
}

func (s *Service) List(ctx context.Context) ([]world.Empire, error) {
	var empires []world.Empire
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		empires, err = tx.ListEmpires(ctx)
		return store.AppError(err, "empires", "")
	})
	if empires == nil {
		empires = []world.Empire{}
	}
	return empires, err
}

// Settle makes an unhabitated celestial the empire's.
func (s *Service) Settle(ctx context.Context, empireID, celestialID int64) (*world.Celestial, error) {
	logger := s.logger.With("component", "empire_service", "operation", "settle",
		"empire_id", empireID, "celestial_id", celestialID)

	var settled world.Celestial
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetEmpire(ctx, empireID); err != nil {
			return store.AppError(err, "empire", empireID)
		}
		c, err := tx.LockCelestial(ctx, celestialID)
		if err != nil {
			return store.AppError(err, "celestial", celestialID)
		}
		if c.HabitatedBy != nil {
			return apperrors.Conflictf("celestial %d is already habitated", celestialID)
		}
		c.HabitatedBy = &empireID
		settled = *c
		return tx.UpdateCelestial(ctx, settled)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Celestial settled")
	return &settled, nil
}

// Territory is the radius-one neighborhood of every sector holding a celestial the empire habitates.
func (s *Service) Territory(ctx context.Context, empireID int64) (hexgrid.Set, error) {
	var cells []hexgrid.Cell
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		cells, err = s.sectorCells(ctx, tx, empireID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return Territory(cells), nil
}

// Unveiled adds the neighborhoods of the empire's movables to its territory.
func (s *Service) Unveiled(ctx context.Context, empireID int64) (hexgrid.Set, error) {
	var cells []hexgrid.Cell
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		cells, err = s.sectorCells(ctx, tx, empireID)
		if err != nil {
			return err
		}
		movables, err := tx.ListEmpireMovables(ctx, empireID)
		if err != nil {
			return store.AppError(err, "movables of empire", empireID)
		}
		for _, m := range movables {
			cells = append(cells, m.Position)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return Territory(cells), nil
}

func (s *Service) sectorCells(ctx context.Context, tx store.Tx, empireID int64) ([]hexgrid.Cell, error) {
	if _, err := tx.GetEmpire(ctx, empireID); err != nil {
		return nil, store.AppError(err, "empire", empireID)
	}
	sectors, err := tx.ListHabitatedSectors(ctx, empireID)
	if err != nil {
		return nil, store.AppError(err, "sectors of empire", empireID)
	}
	cells := make([]hexgrid.Cell, 0, len(sectors))
	for _, sector := range sectors {
		cells = append(cells, sector.Position)
	}
	return cells, nil
}

func (s *Service) ListBlueprints(ctx context.Context, empireID int64) ([]world.Blueprint, error) {
	var bps []world.Blueprint
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetEmpire(ctx, empireID); err != nil {
			return store.AppError(err, "empire", empireID)
		}
		var err error
		bps, err = tx.ListBlueprints(ctx, empireID)
		return store.AppError(err, "blueprints of empire", empireID)
	})
	if bps == nil {
		bps = []world.Blueprint{}
	}
	return bps, err
}

// DemolishConstruction removes a construction and so frees its size on the celestial.
func (s *Service) DemolishConstruction(ctx context.Context, requesterID, constructionID int64) error {
	logger := s.logger.With("component", "empire_service", "operation", "demolish_construction",
		"empire_id", requesterID, "construction_id", constructionID)

	err := s.store.InTx(ctx, func(tx store.Tx) error {
		c, err := tx.GetConstruction(ctx, constructionID)
		if err != nil {
			return store.AppError(err, "construction", constructionID)
		}
		if c.EmpireID != requesterID {
			return apperrors.PermissionDeniedf("construction %d does not belong to empire %d", constructionID, requesterID)
		}
		if _, err := tx.LockCelestial(ctx, c.CelestialID); err != nil {
			return store.AppError(err, "celestial", c.CelestialID)
		}
		return store.AppError(tx.DeleteConstruction(ctx, constructionID), "construction", constructionID)
	})
	if err != nil {
		return err
	}

	logger.Info("Construction demolished")
	return nil
}
