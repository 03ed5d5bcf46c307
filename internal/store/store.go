// Package store defines the persistence boundary of the simulation. Every read and
// write happens inside a transaction obtained from Store.InTx.
package store

import (
	"context"
	"errors"
	"fmt"

	"empires-server/internal/process"
	apperrors "empires-server/internal/shared/errors"
	"empires-server/internal/world"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("conflict")
)

type Store interface {
	// InTx runs fn in a transaction. Writes made by fn are discarded when it returns an error.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

type Tx interface {
	WorldTx
	EmpireTx
	SpaceTx
	FleetTx
	ProcessTx
}

type WorldTx interface {
	GetWorld(ctx context.Context) (*world.World, error)
	// LockWorld reads the world row and holds it until the transaction ends.
	LockWorld(ctx context.Context) (*world.World, error)
	// ShareWorld reads the world row and blocks LockWorld until the transaction ends.
	// Intents read the clock this way so they never schedule against a tick being advanced.
	ShareWorld(ctx context.Context) (*world.World, error)
	// CreateWorld inserts the singleton; ErrConflict if it already exists.
	CreateWorld(ctx context.Context, w world.World) error
	UpdateWorld(ctx context.Context, w world.World) error
}

type EmpireTx interface {
	CreateEmpire(ctx context.Context, e *world.Empire) error
	GetEmpire(ctx context.Context, id int64) (*world.Empire, error)
	ListEmpires(ctx context.Context) ([]world.Empire, error)

	CreateBlueprint(ctx context.Context, b *world.Blueprint) error
	GetBlueprint(ctx context.Context, id int64) (*world.Blueprint, error)
	ListBlueprints(ctx context.Context, empireID int64) ([]world.Blueprint, error)
}

type SpaceTx interface {
	CreateSector(ctx context.Context, s *world.Sector) error
	GetSector(ctx context.Context, id int64) (*world.Sector, error)
	ListSectors(ctx context.Context) ([]world.Sector, error)
	CountSectors(ctx context.Context) (int, error)
	// ListHabitatedSectors returns sectors holding at least one celestial habitated by the empire.
	ListHabitatedSectors(ctx context.Context, empireID int64) ([]world.Sector, error)

	CreateCelestial(ctx context.Context, c *world.Celestial) error
	GetCelestial(ctx context.Context, id int64) (*world.Celestial, error)
	// LockCelestial reads a celestial and serializes other lockers of it until the transaction ends.
	LockCelestial(ctx context.Context, id int64) (*world.Celestial, error)
	ListCelestials(ctx context.Context, sectorID int64) ([]world.Celestial, error)
	UpdateCelestial(ctx context.Context, c world.Celestial) error

	CreateConstruction(ctx context.Context, c *world.Construction) error
	GetConstruction(ctx context.Context, id int64) (*world.Construction, error)
	ListConstructions(ctx context.Context, celestialID int64) ([]world.Construction, error)
	DeleteConstruction(ctx context.Context, id int64) error
}

type FleetTx interface {
	CreateMovable(ctx context.Context, m *world.Movable) error
	GetMovable(ctx context.Context, id int64) (*world.Movable, error)
	LockMovable(ctx context.Context, id int64) (*world.Movable, error)
	UpdateMovable(ctx context.Context, m world.Movable) error
	DeleteMovable(ctx context.Context, id int64) error
	// LockMovingMovables returns movables with a destination, ordered by id, and
	// holds them until the transaction ends.
	LockMovingMovables(ctx context.Context) ([]world.Movable, error)
	ListEmpireMovables(ctx context.Context, empireID int64) ([]world.Movable, error)

	CreateShip(ctx context.Context, s *world.Ship) error
	GetShip(ctx context.Context, id int64) (*world.Ship, error)
	ListShips(ctx context.Context, movableID int64) ([]world.Ship, error)
	DeleteShip(ctx context.Context, id int64) error
}

type ProcessTx interface {
	CreateProcess(ctx context.Context, p *process.Process) error
	GetProcess(ctx context.Context, id int64) (*process.Process, error)
	// ListProcesses returns pending processes ordered by end tick, then id.
	ListProcesses(ctx context.Context, filter process.Filter) ([]process.Process, error)
	// DeleteProcess removes a pending process and reports whether it was still there.
	DeleteProcess(ctx context.Context, id int64) (bool, error)
	// ReservedCapacity sums the sizes held by pending construction processes on a celestial,
	// leaving out excludeProcessID.
	ReservedCapacity(ctx context.Context, celestialID, excludeProcessID int64) (int, error)

	RecordFailure(ctx context.Context, f *process.Failure) error
	ListFailures(ctx context.Context, limit int) ([]process.Failure, error)
}

// AppError converts store sentinels into application errors naming the entity.
func AppError(err error, entity string, id any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return apperrors.NotFoundf("%s %v not found", entity, id)
	case errors.Is(err, ErrConflict):
		return apperrors.Conflictf("%s %v conflicts with existing data", entity, id)
	default:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return apperrors.WrapInternal(fmt.Sprintf("failed to access %s", entity), err)
	}
}
