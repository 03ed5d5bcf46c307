package blueprint

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"empires-server/internal/catalog"
	"empires-server/internal/process"
	apperrors "empires-server/internal/shared/errors"
	"empires-server/internal/store"
	"empires-server/internal/store/storetest"
	"empires-server/internal/world"
)

type directScheduler struct{}

func (directScheduler) Schedule(ctx context.Context, tx store.Tx, startTick, durationTicks int64, handlerID string, payload any) (*process.Process, error) {
	p, err := process.New(startTick, durationTicks, handlerID, payload)
	if err != nil {
		return nil, err
	}
	if err := tx.CreateProcess(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func newService(f *storetest.Fixture) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(f.Store, NewResolver(f.Catalog), directScheduler{}, logger)
}

func pending(t *testing.T, f *storetest.Fixture) []process.Process {
	t.Helper()
	var out []process.Process
	f.Do(t, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListProcesses(ctx, process.Filter{})
		return err
	})
	return out
}

func TestCheckReportsFirstFailure(t *testing.T) {
	owner := int64(1)
	c := world.Celestial{ID: 10, MaxSize: 5, HabitatedBy: &owner}
	bp := world.Blueprint{ID: 3, BaseID: "construction/mine", EmpireID: owner, Data: catalog.Snapshot{Size: 6}}
	entry := catalog.Entry{BaseID: "construction/mine", Requirements: []string{"hab/colony"}}

	tests := []struct {
		name      string
		requester int64
		bp        world.Blueprint
		cons      []world.Construction
		reserved  int
		want      apperrors.Reason
	}{
		{"foreign requester", 2, bp, nil, 0, apperrors.ReasonPermissionDenied},
		{"too large", owner, bp, nil, 0, apperrors.ReasonInsufficientCapacity},
		{"reserved by pending", owner, withSize(bp, 3), nil, 3, apperrors.ReasonInsufficientCapacity},
		{"missing prerequisite", owner, withSize(bp, 2), nil, 0, apperrors.ReasonUnmetPrerequisite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.requester, tt.bp, entry, c, tt.cons, tt.reserved)
			if err == nil {
				t.Fatal("expected failure")
			}
			if got := apperrors.GetReason(err); got != tt.want {
				t.Fatalf("reason = %s, want %s (%v)", got, tt.want, err)
			}
		})
	}

	cons := []world.Construction{{CelestialID: c.ID, BaseID: "hab/colony", Size: 1}}
	if err := Check(owner, withSize(bp, 2), entry, c, cons, 0); err != nil {
		t.Fatalf("valid build rejected: %v", err)
	}
}

func withSize(bp world.Blueprint, size int) world.Blueprint {
	bp.Data.Size = size
	return bp
}

func TestBuildInsufficientCapacitySchedulesNothing(t *testing.T) {
	f := storetest.New(t, 5)
	big := world.Blueprint{BaseID: "hab/colony", EmpireID: f.Empire.ID, Data: catalog.Snapshot{Name: "Arcology", Size: 6}}
	f.Do(t, func(ctx context.Context, tx store.Tx) error {
		return tx.CreateBlueprint(ctx, &big)
	})

	_, err := newService(f).Build(context.Background(), f.Empire.ID, big.ID, f.Celestial.ID)
	if apperrors.GetReason(err) != apperrors.ReasonInsufficientCapacity {
		t.Fatalf("error = %v, want insufficient capacity", err)
	}
	if got := pending(t, f); len(got) != 0 {
		t.Fatalf("scheduled %d processes after rejection", len(got))
	}
}

func TestBuildRequiresPrerequisite(t *testing.T) {
	f := storetest.New(t, 10)
	svc := newService(f)
	mine := f.Blueprints["construction/mine"]

	_, err := svc.Build(context.Background(), f.Empire.ID, mine.ID, f.Celestial.ID)
	if apperrors.GetReason(err) != apperrors.ReasonUnmetPrerequisite {
		t.Fatalf("error = %v, want unmet prerequisite", err)
	}

	f.Construct(t, f.Celestial.ID, "hab/colony")
	p, err := svc.Build(context.Background(), f.Empire.ID, mine.ID, f.Celestial.ID)
	if err != nil {
		t.Fatalf("build after colony: %v", err)
	}
	if p.HandlerID != process.HandlerConstruction || p.StartTick != 0 || p.EndTick != 2 {
		t.Fatalf("unexpected process %+v", p)
	}

	var payload process.BuildPayload
	if err := p.Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if payload.BlueprintID != mine.ID || payload.CelestialID != f.Celestial.ID || payload.Size != 2 {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestBuildPermission(t *testing.T) {
	f := storetest.New(t, 10)
	rival, rivalBlueprints := f.AddEmpire(t, "Rigel")
	svc := newService(f)

	_, err := svc.Build(context.Background(), rival.ID, rivalBlueprints["hab/colony"].ID, f.Celestial.ID)
	if apperrors.GetReason(err) != apperrors.ReasonPermissionDenied {
		t.Fatalf("foreign celestial: error = %v", err)
	}

	_, err = svc.Build(context.Background(), f.Empire.ID, rivalBlueprints["hab/colony"].ID, f.Celestial.ID)
	if apperrors.GetReason(err) != apperrors.ReasonPermissionDenied {
		t.Fatalf("foreign blueprint: error = %v", err)
	}

	_, err = svc.Build(context.Background(), f.Empire.ID, 9999, f.Celestial.ID)
	if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Fatalf("missing blueprint: error = %v", err)
	}
}

func TestBuildShipUsesShipHandler(t *testing.T) {
	f := storetest.New(t, 5)
	f.Construct(t, f.Celestial.ID, "hab/colony")
	f.Construct(t, f.Celestial.ID, "construction/shipyard")

	p, err := newService(f).Build(context.Background(), f.Empire.ID, f.Blueprints["ship/scout"].ID, f.Celestial.ID)
	if err != nil {
		t.Fatalf("build scout: %v", err)
	}
	if p.HandlerID != process.HandlerShip {
		t.Fatalf("handler = %s, want ship", p.HandlerID)
	}

	var payload process.BuildPayload
	if err := p.Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if payload.Size != 0 {
		t.Fatalf("ship build reserved %d capacity", payload.Size)
	}
}

func TestConcurrentBuildsDoNotOvercommit(t *testing.T) {
	f := storetest.New(t, 6)
	f.Construct(t, f.Celestial.ID, "hab/colony")
	svc := newService(f)
	shipyard := f.Blueprints["construction/shipyard"]

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Build(context.Background(), f.Empire.ID, shipyard.ID, f.Celestial.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperrors.GetReason(err) != apperrors.ReasonInsufficientCapacity:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("%d builds succeeded, want exactly 1", succeeded)
	}
	if got := pending(t, f); len(got) != 1 {
		t.Fatalf("%d processes pending, want 1", len(got))
	}
}
