package blueprint

import (
	"context"
	"log/slog"

	"empires-server/internal/process"
	"empires-server/internal/store"
)

// Scheduler persists a process in the caller's transaction.
type Scheduler interface {
	Schedule(ctx context.Context, tx store.Tx, startTick, durationTicks int64, handlerID string, payload any) (*process.Process, error)
}

type Service struct {
	store     store.Store
	resolver  *Resolver
	scheduler Scheduler
	logger    *slog.Logger
}

func NewService(s store.Store, resolver *Resolver, scheduler Scheduler, logger *slog.Logger) *Service {
	logger.Debug("Initializing blueprint service")

	return &Service{
		store:     s,
		resolver:  resolver,
		scheduler: scheduler,
		logger:    logger,
	}
}

// Build validates a build request and schedules its process starting at the current tick.
// The celestial stays locked from the capacity check until the process is stored, so
// concurrent builds on one celestial cannot jointly overcommit it.
func (s *Service) Build(ctx context.Context, empireID, blueprintID, celestialID int64) (*process.Process, error) {
	logger := s.logger.With("component", "blueprint_service", "operation", "build",
		"empire_id", empireID, "blueprint_id", blueprintID, "celestial_id", celestialID)
	logger.Debug("Validating build request")

	var scheduled *process.Process
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		w, err := tx.ShareWorld(ctx)
		if err != nil {
			return store.AppError(err, "world", 1)
		}

		bp, err := tx.GetBlueprint(ctx, blueprintID)
		if err != nil {
			return store.AppError(err, "blueprint", blueprintID)
		}

		celestial, err := tx.LockCelestial(ctx, celestialID)
		if err != nil {
			return store.AppError(err, "celestial", celestialID)
		}

		entry, err := s.resolver.ValidateBuild(ctx, tx, empireID, *bp, *celestial, 0)
		if err != nil {
			return err
		}

		scheduled, err = s.scheduler.Schedule(ctx, tx, w.Now, entry.Duration, HandlerFor(entry), Payload(*bp, entry, celestialID))
		return err
	})
	if err != nil {
		logger.Debug("Build rejected", "error", err)
		return nil, err
	}

	logger.Info("Build scheduled",
		"process_id", scheduled.ID,
		"handler_id", scheduled.HandlerID,
		"end_tick", scheduled.EndTick)
	return scheduled, nil
}
