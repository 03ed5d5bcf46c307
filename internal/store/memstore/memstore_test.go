package memstore

import (
	"context"
	"errors"
	"testing"

	"empires-server/internal/catalog"
	"empires-server/internal/hexgrid"
	"empires-server/internal/process"
	"empires-server/internal/store"
	"empires-server/internal/world"
)

func TestRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx store.Tx) error {
		if err := tx.CreateEmpire(ctx, &world.Empire{Name: "Vega"}); err != nil {
			t.Fatalf("create empire: %v", err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx error = %v", err)
	}

	_ = s.InTx(ctx, func(tx store.Tx) error {
		empires, _ := tx.ListEmpires(ctx)
		if len(empires) != 0 {
			t.Fatalf("rolled back empire is visible: %+v", empires)
		}
		return nil
	})
}

func TestUniqueEmpireName(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.InTx(ctx, func(tx store.Tx) error {
		if err := tx.CreateEmpire(ctx, &world.Empire{Name: "Vega"}); err != nil {
			return err
		}
		return tx.CreateEmpire(ctx, &world.Empire{Name: "Vega"})
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("error = %v, want conflict", err)
	}
}

func TestDerivedFieldsAndReservations(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.InTx(ctx, func(tx store.Tx) error {
		e := &world.Empire{Name: "Vega"}
		if err := tx.CreateEmpire(ctx, e); err != nil {
			return err
		}
		bp := &world.Blueprint{BaseID: "hab/colony", EmpireID: e.ID, Data: catalog.Snapshot{Name: "Colony", Size: 2}}
		if err := tx.CreateBlueprint(ctx, bp); err != nil {
			return err
		}
		sector := &world.Sector{Position: hexgrid.Cell{Q: 1, R: 1}}
		if err := tx.CreateSector(ctx, sector); err != nil {
			return err
		}
		cel := &world.Celestial{SectorID: sector.ID, MaxSize: 8}
		if err := tx.CreateCelestial(ctx, cel); err != nil {
			return err
		}
		con := &world.Construction{BlueprintID: bp.ID, CelestialID: cel.ID}
		if err := tx.CreateConstruction(ctx, con); err != nil {
			return err
		}
		if con.BaseID != "hab/colony" || con.Size != 2 || con.EmpireID != e.ID {
			t.Fatalf("derived construction fields missing: %+v", con)
		}

		for _, size := range []int{3, 1} {
			p, err := process.New(0, 2, process.HandlerConstruction, process.BuildPayload{BlueprintID: bp.ID, CelestialID: cel.ID, Size: size})
			if err != nil {
				return err
			}
			if err := tx.CreateProcess(ctx, &p); err != nil {
				return err
			}
		}
		reserved, err := tx.ReservedCapacity(ctx, cel.ID, 0)
		if err != nil {
			return err
		}
		if reserved != 4 {
			t.Fatalf("reserved = %d, want 4", reserved)
		}
		pending, _ := tx.ListProcesses(ctx, process.Filter{CelestialID: cel.ID})
		if len(pending) != 2 {
			t.Fatalf("pending on celestial = %d, want 2", len(pending))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
}

func TestDeleteProcessReportsPresence(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.InTx(ctx, func(tx store.Tx) error {
		p, _ := process.New(0, 1, process.HandlerMovement, process.MovementPayload{MovableID: 1})
		_ = tx.CreateProcess(ctx, &p)
		if ok, _ := tx.DeleteProcess(ctx, p.ID); !ok {
			t.Fatalf("first delete should find the process")
		}
		if ok, _ := tx.DeleteProcess(ctx, p.ID); ok {
			t.Fatalf("second delete should find nothing")
		}
		return nil
	})
}

func TestMovableCopiesAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.InTx(ctx, func(tx store.Tx) error {
		dest := hexgrid.Cell{Q: 4}
		m := &world.Movable{Destination: &dest, Speed: 1}
		_ = tx.CreateMovable(ctx, m)
		dest.Q = 99
		got, _ := tx.GetMovable(ctx, m.ID)
		if got.Destination.Q != 4 {
			t.Fatalf("stored movable aliases caller memory")
		}
		moving, _ := tx.LockMovingMovables(ctx)
		if len(moving) != 1 {
			t.Fatalf("moving = %d, want 1", len(moving))
		}
		return nil
	})
}
