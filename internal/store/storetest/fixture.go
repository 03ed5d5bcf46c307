// Package storetest seeds a store for tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"empires-server/internal/catalog"
	"empires-server/internal/hexgrid"
	"empires-server/internal/store"
	"empires-server/internal/store/memstore"
	"empires-server/internal/world"
)

// Epoch anchors the seeded world clock.
var Epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

const TickDuration = time.Minute

type Fixture struct {
	Store      store.Store
	Catalog    *catalog.Catalog
	Empire     world.Empire
	Blueprints map[string]world.Blueprint
	Sector     world.Sector
	Celestial  world.Celestial
}

// New seeds an in-memory store with a world at tick zero, one empire holding a blueprint
// per catalog entry, and a celestial of the given size habitated by that empire in the
// sector at the origin.
func New(t testing.TB, maxSize int) *Fixture {
	t.Helper()
	return NewOn(t, memstore.New(), maxSize)
}

// NewOn seeds st the way New does. st must be empty.
func NewOn(t testing.TB, st store.Store, maxSize int) *Fixture {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	f := &Fixture{Store: st, Catalog: cat}
	f.Do(t, func(ctx context.Context, tx store.Tx) error {
		return tx.CreateWorld(ctx, world.New(Epoch, TickDuration))
	})
	f.Empire, f.Blueprints = f.AddEmpire(t, "Vega")
	f.Sector = f.AddSector(t, hexgrid.Cell{})
	f.Celestial = f.AddCelestial(t, f.Sector.ID, maxSize, &f.Empire.ID)
	return f
}

// Do runs fn in a transaction and fails the test on error.
func (f *Fixture) Do(t testing.TB, fn func(ctx context.Context, tx store.Tx) error) {
	t.Helper()
	ctx := context.Background()
	if err := f.Store.InTx(ctx, func(tx store.Tx) error { return fn(ctx, tx) }); err != nil {
		t.Fatalf("fixture transaction: %v", err)
	}
}

func (f *Fixture) AddEmpire(t testing.TB, name string) (world.Empire, map[string]world.Blueprint) {
	t.Helper()
	e := world.Empire{Name: name, ColorHue: 0.5}
	bps := map[string]world.Blueprint{}
	f.Do(t, func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateEmpire(ctx, &e); err != nil {
			return err
		}
		for _, entry := range f.Catalog.Entries() {
			bp := world.Blueprint{BaseID: entry.BaseID, EmpireID: e.ID, Data: entry.Snapshot()}
			if err := tx.CreateBlueprint(ctx, &bp); err != nil {
				return err
			}
			bps[entry.BaseID] = bp
		}
		return nil
	})
	return e, bps
}

func (f *Fixture) AddSector(t testing.TB, at hexgrid.Cell) world.Sector {
	t.Helper()
	s := world.Sector{Position: at, Name: "Sector " + at.String()}
	f.Do(t, func(ctx context.Context, tx store.Tx) error {
		return tx.CreateSector(ctx, &s)
	})
	return s
}

func (f *Fixture) AddCelestial(t testing.TB, sectorID int64, maxSize int, habitatedBy *int64) world.Celestial {
	t.Helper()
	c := world.Celestial{SectorID: sectorID, MaxSize: maxSize, Features: []string{}, HabitatedBy: habitatedBy}
	f.Do(t, func(ctx context.Context, tx store.Tx) error {
		return tx.CreateCelestial(ctx, &c)
	})
	return c
}

// Construct places a finished construction of the fixture empire's blueprint for baseID.
func (f *Fixture) Construct(t testing.TB, celestialID int64, baseID string) world.Construction {
	t.Helper()
	bp, ok := f.Blueprints[baseID]
	if !ok {
		t.Fatalf("no blueprint %s", baseID)
	}
	c := world.Construction{BlueprintID: bp.ID, CelestialID: celestialID}
	f.Do(t, func(ctx context.Context, tx store.Tx) error {
		return tx.CreateConstruction(ctx, &c)
	})
	return c
}

// AddShip puts a ship of baseID on a new movable at the given cell.
func (f *Fixture) AddShip(t testing.TB, bps map[string]world.Blueprint, baseID string, at hexgrid.Cell) (world.Movable, world.Ship) {
	t.Helper()
	bp, ok := bps[baseID]
	if !ok {
		t.Fatalf("no blueprint %s", baseID)
	}
	m := world.Movable{Position: at, Speed: bp.Data.Speed}
	s := world.Ship{BlueprintID: bp.ID}
	f.Do(t, func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateMovable(ctx, &m); err != nil {
			return err
		}
		s.MovableID = m.ID
		return tx.CreateShip(ctx, &s)
	})
	return m, s
}

// SetNow moves the clock to tick now and anchors it at the given wall-clock time.
func (f *Fixture) SetNow(t testing.TB, now int64, anchor time.Time) {
	t.Helper()
	f.Do(t, func(ctx context.Context, tx store.Tx) error {
		w, err := tx.GetWorld(ctx)
		if err != nil {
			return err
		}
		w.Now = now
		w.LastTickTimestamp = anchor
		return tx.UpdateWorld(ctx, *w)
	})
}
