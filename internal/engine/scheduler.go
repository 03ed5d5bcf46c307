package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"empires-server/internal/process"
	apperrors "empires-server/internal/shared/errors"
	"empires-server/internal/store"
	"empires-server/internal/world"
)

const advanceLockKey = "world:advance"

// Report summarizes one advance.
type Report struct {
	FromTick      int64 `json:"from_tick"`
	ToTick        int64 `json:"to_tick"`
	ResolvedCount int   `json:"resolved_count"`
	FailedCount   int   `json:"failed_count"`
	Moved         int   `json:"moved"`
	// Skipped is set when another advance held the lock.
	Skipped bool `json:"skipped,omitempty"`
}

type Scheduler struct {
	store    store.Store
	registry *Registry
	locker   Locker
	notifier Notifier
	lockTTL  time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu sync.Mutex
}

type Option func(*Scheduler)

func WithLocker(l Locker, ttl time.Duration) Option {
	return func(s *Scheduler) {
		s.locker = l
		s.lockTTL = ttl
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Scheduler) { s.notifier = n }
}

// WithClock replaces the wall clock used to compute owed ticks.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func NewScheduler(st store.Store, registry *Registry, logger *slog.Logger, opts ...Option) *Scheduler {
	logger.Debug("Initializing tick scheduler")

	s := &Scheduler{
		store:    st,
		registry: registry,
		locker:   NewMemoryLocker(),
		lockTTL:  30 * time.Second,
		now:      time.Now,
		logger:   logger.With("component", "scheduler"),
	}
	s.notifier = NewLogNotifier(logger)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureWorld creates the world singleton at tick zero unless it already exists.
func (s *Scheduler) EnsureWorld(ctx context.Context, tickDuration time.Duration) (world.World, error) {
	var w world.World
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		existing, err := tx.GetWorld(ctx)
		if err == nil {
			w = *existing
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		w = world.New(s.now().UTC(), tickDuration)
		return tx.CreateWorld(ctx, w)
	})
	if err != nil {
		return world.World{}, apperrors.WrapInternal("failed to initialize world", err)
	}
	return w, nil
}

// World returns the clock as stored.
func (s *Scheduler) World(ctx context.Context) (world.World, error) {
	var w world.World
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		got, err := tx.GetWorld(ctx)
		if err != nil {
			return store.AppError(err, "world", 1)
		}
		w = *got
		return nil
	})
	return w, err
}

// View reports the clock as of the scheduler's wall clock.
func (s *Scheduler) View(ctx context.Context) (world.View, error) {
	w, err := s.World(ctx)
	if err != nil {
		return world.View{}, err
	}
	return w.View(s.now()), nil
}

// Advance consumes every whole tick owed since the last advance, steps moving
// movables once per tick, then resolves all processes due by the new tick, each in
// its own transaction. A failing handler is recorded and does not stop its siblings.
// Errors are returned only when the clock itself could not be read or written.
func (s *Scheduler) Advance(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.logger.With("operation", "advance")

	release, ok, err := s.locker.Acquire(ctx, advanceLockKey, s.lockTTL)
	if err != nil {
		return Report{}, apperrors.WrapExternal("failed to acquire advance lock", err)
	}
	if !ok {
		logger.Debug("Advance already in progress elsewhere")
		return Report{Skipped: true}, nil
	}
	defer release()

	report, current, err := s.tick(ctx, s.now())
	if err != nil {
		logger.Error("Failed to advance clock", "error", err)
		return Report{}, err
	}

	s.resolveDue(ctx, current, &report)

	s.notifier.Advanced(ctx, report)
	return report, nil
}

func (s *Scheduler) tick(ctx context.Context, at time.Time) (Report, world.World, error) {
	var report Report
	var current world.World

	err := s.store.InTx(ctx, func(tx store.Tx) error {
		w, err := tx.LockWorld(ctx)
		if err != nil {
			return store.AppError(err, "world", 1)
		}
		report = Report{FromTick: w.Now, ToTick: w.Now}
		current = *w

		owed := w.TicksOwed(at)
		if owed < 1 {
			return nil
		}

		current = w.Advance(owed)
		if err := tx.UpdateWorld(ctx, current); err != nil {
			return store.AppError(err, "world", 1)
		}
		report.ToTick = current.Now

		moving, err := tx.LockMovingMovables(ctx)
		if err != nil {
			return store.AppError(err, "moving movables", "")
		}
		for _, m := range moving {
			stepped := world.StepN(m, owed)
			if stepped.Position == m.Position && stepped.Moving() == m.Moving() {
				continue
			}
			if err := tx.UpdateMovable(ctx, stepped); err != nil {
				return store.AppError(err, "movable", m.ID)
			}
			report.Moved++
		}
		return nil
	})
	return report, current, err
}

func (s *Scheduler) resolveDue(ctx context.Context, current world.World, report *Report) {
	var pending []process.Process
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		pending, err = tx.ListProcesses(ctx, process.Filter{DueBy: current.Now})
		return err
	})
	if err != nil {
		s.logger.Error("Failed to list due processes", "operation", "resolve_due", "tick", current.Now, "error", err)
		return
	}

	due, _ := process.ResolveDue(current.Now, pending)
	for i, p := range due {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("Resolution interrupted", "operation", "resolve_due", "remaining", len(due)-i, "error", err)
			return
		}
		switch s.resolve(ctx, current, p) {
		case outcomeResolved:
			report.ResolvedCount++
		case outcomeFailed:
			report.FailedCount++
		}
	}
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeResolved
	outcomeFailed
)

// resolve claims the process by deleting it and runs its handler in the same
// transaction, so a process is applied at most once and removed only when applied or recorded.
func (s *Scheduler) resolve(ctx context.Context, current world.World, p process.Process) outcome {
	logger := s.logger.With("operation", "resolve", "process_id", p.ID, "handler_id", p.HandlerID, "end_tick", p.EndTick)

	claimed := false
	err := s.store.InTx(ctx, func(tx store.Tx) (err error) {
		claimed, err = tx.DeleteProcess(ctx, p.ID)
		if err != nil || !claimed {
			return err
		}

		h, ok := s.registry.Lookup(p.HandlerID)
		if !ok {
			return apperrors.Unprocessable(apperrors.ReasonHandlerFailed, "no handler registered for "+p.HandlerID)
		}
		defer func() {
			if r := recover(); r != nil {
				err = apperrors.Unprocessable(apperrors.ReasonHandlerFailed, fmt.Sprintf("handler panicked: %v", r))
			}
		}()
		return h(ctx, Env{Tx: tx, World: current, Logger: logger}, p)
	})
	if err == nil {
		if !claimed {
			logger.Debug("Process already resolved")
			return outcomeSkipped
		}
		return outcomeResolved
	}

	failure := process.Failure{
		ProcessID: p.ID,
		HandlerID: p.HandlerID,
		Tick:      current.Now,
		Reason:    apperrors.GetReason(err),
		Message:   err.Error(),
		Data:      p.Data,
	}
	recorded := false
	recordErr := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		recorded, err = tx.DeleteProcess(ctx, p.ID)
		if err != nil || !recorded {
			return err
		}
		return tx.RecordFailure(ctx, &failure)
	})
	if recordErr != nil {
		logger.Error("Failed to record process failure", "error", recordErr, "reason", failure.Reason)
		return outcomeSkipped
	}
	if !recorded {
		return outcomeSkipped
	}

	s.notifier.ProcessFailed(ctx, failure)
	return outcomeFailed
}

// Run advances on every interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	logger := s.logger.With("operation", "run", "interval", interval.String())
	logger.Info("Advance loop started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Advance(ctx); err != nil {
			logger.Error("Advance failed", "error", err)
		}
		select {
		case <-ctx.Done():
			logger.Info("Advance loop stopped")
			return
		case <-ticker.C:
		}
	}
}

// Pending lists processes still waiting for resolution.
func (s *Scheduler) Pending(ctx context.Context, filter process.Filter) ([]process.Process, error) {
	out := []process.Process{}
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		ps, err := tx.ListProcesses(ctx, filter)
		if err != nil {
			return store.AppError(err, "processes", "")
		}
		out = append(out, ps...)
		return nil
	})
	return out, err
}

// Failures lists the most recent discarded processes first.
func (s *Scheduler) Failures(ctx context.Context, limit int) ([]process.Failure, error) {
	out := []process.Failure{}
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		fs, err := tx.ListFailures(ctx, limit)
		if err != nil {
			return store.AppError(err, "failures", "")
		}
		out = append(out, fs...)
		return nil
	})
	return out, err
}
