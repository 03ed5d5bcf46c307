package universe

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"empires-server/internal/hexgrid"
	"empires-server/internal/shared/errors"
	"empires-server/internal/store"
	"empires-server/internal/world"
)

var sectorNames = []string{
	"Alpha", "Beta", "Gamma", "Delta", "Epsilon", "Zeta", "Eta", "Theta",
	"Iota", "Kappa", "Lambda", "Mu", "Nu", "Xi", "Omicron", "Pi",
	"Rho", "Sigma", "Tau", "Upsilon", "Phi", "Chi", "Psi", "Omega",
}

var features = []string{"asteroids", "rings", "moons", "nebula", "ice", "volcanic"}

type Service struct {
	store  store.Store
	logger *slog.Logger
}

func NewService(s store.Store, logger *slog.Logger) *Service {
	logger.Debug("Initializing universe service")

	return &Service{
		store:  s,
		logger: logger,
	}
}

// Plan lays out one sector per cell within the radius, in cell order. The same config
// always yields the same plan.
func Plan(cfg Config) []SectorPlan {
	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)^0x9e3779b97f4a7c15))
	maxSize := max(cfg.MaxCelestialSize, 1)

	cells := hexgrid.DistanceSet(hexgrid.Cell{}, cfg.Radius).Cells()
	plans := make([]SectorPlan, 0, len(cells))
	for i, cell := range cells {
		plan := SectorPlan{Position: cell, Name: sectorName(i)}
		for pos := 1; pos <= cfg.CelestialsPerSector; pos++ {
			plan.Celestials = append(plan.Celestials, CelestialPlan{
				Position: pos,
				MaxSize:  1 + rng.IntN(maxSize),
				Features: pickFeatures(rng),
			})
		}
		plans = append(plans, plan)
	}
	return plans
}

func sectorName(i int) string {
	name := sectorNames[i%len(sectorNames)]
	if round := i / len(sectorNames); round > 0 {
		return fmt.Sprintf("%s %d", name, round+1)
	}
	return name
}

// pickFeatures draws up to two distinct features.
func pickFeatures(rng *rand.Rand) []string {
	out := []string{}
	for _, idx := range rng.Perm(len(features))[:rng.IntN(3)] {
		out = append(out, features[idx])
	}
	return out
}

// Generate stores the planned universe unless sectors already exist.
func (s *Service) Generate(ctx context.Context, cfg Config) (Summary, error) {
	logger := s.logger.With("component", "universe_service", "operation", "generate",
		"radius", cfg.Radius, "celestials_per_sector", cfg.CelestialsPerSector, "seed", cfg.Seed)
	logger.Debug("Generating universe")

	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}

	var summary Summary
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		existing, err := tx.CountSectors(ctx)
		if err != nil {
			return err
		}
		if existing > 0 {
			summary.Skipped = true
			return nil
		}

		for _, plan := range Plan(cfg) {
			if err := ctx.Err(); err != nil {
				return errors.WrapInternal("universe generation cancelled", err)
			}

			sector := world.Sector{Position: plan.Position, Name: plan.Name}
			if err := tx.CreateSector(ctx, &sector); err != nil {
				return fmt.Errorf("failed to create sector at %s: %w", plan.Position, err)
			}
			summary.Sectors++

			for _, cp := range plan.Celestials {
				c := world.Celestial{SectorID: sector.ID, Position: cp.Position, MaxSize: cp.MaxSize, Features: cp.Features}
				if err := tx.CreateCelestial(ctx, &c); err != nil {
					return fmt.Errorf("failed to create celestial %d in sector %d: %w", cp.Position, sector.ID, err)
				}
				summary.Celestials++
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to generate universe", "error", err)
		return Summary{}, errors.WrapInternal("failed to generate universe", err)
	}

	if summary.Skipped {
		logger.Debug("Universe already generated")
	} else {
		logger.Info("Universe generation completed", "sectors", summary.Sectors, "celestials", summary.Celestials)
	}
	return summary, nil
}

func (s *Service) ListSectors(ctx context.Context) ([]world.Sector, error) {
	var sectors []world.Sector
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		sectors, err = tx.ListSectors(ctx)
		return store.AppError(err, "sectors", "")
	})
	if sectors == nil {
		sectors = []world.Sector{}
	}
	return sectors, err
}

func (s *Service) GetSector(ctx context.Context, id int64) (*SectorView, error) {
	var view SectorView
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		sector, err := tx.GetSector(ctx, id)
		if err != nil {
			return store.AppError(err, "sector", id)
		}
		celestials, err := tx.ListCelestials(ctx, id)
		if err != nil {
			return store.AppError(err, "celestials of sector", id)
		}
		view = SectorView{Sector: *sector, Celestials: celestials}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if view.Celestials == nil {
		view.Celestials = []world.Celestial{}
	}
	return &view, nil
}

// GetCelestial computes remaining capacity on read from constructions and pending reservations.
func (s *Service) GetCelestial(ctx context.Context, id int64) (*CelestialView, error) {
	var view CelestialView
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		c, err := tx.GetCelestial(ctx, id)
		if err != nil {
			return store.AppError(err, "celestial", id)
		}
		cons, err := tx.ListConstructions(ctx, id)
		if err != nil {
			return store.AppError(err, "constructions of celestial", id)
		}
		reserved, err := tx.ReservedCapacity(ctx, id, 0)
		if err != nil {
			return store.AppError(err, "reserved capacity of celestial", id)
		}
		if cons == nil {
			cons = []world.Construction{}
		}
		view = CelestialView{
			Celestial:         *c,
			Constructions:     cons,
			Reserved:          reserved,
			RemainingCapacity: world.RemainingCapacity(*c, cons, reserved),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}
