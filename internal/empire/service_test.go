package empire

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"empires-server/internal/hexgrid"
	apperrors "empires-server/internal/shared/errors"
	"empires-server/internal/store/storetest"
)

func newService(f *storetest.Fixture) *Service {
	return NewService(f.Store, f.Catalog, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateSeedsBlueprints(t *testing.T) {
	f := storetest.New(t, 5)
	svc := newService(f)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateRequest{Name: "  Altair ", ColorHue: 0.25})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Empire.Name != "Altair" || len(created.Blueprints) != f.Catalog.Len() {
		t.Fatalf("created = %+v", created)
	}
	for _, bp := range created.Blueprints {
		entry, err := f.Catalog.Lookup(bp.BaseID)
		if err != nil {
			t.Fatal(err)
		}
		if bp.Data != entry.Snapshot() || bp.EmpireID != created.Empire.ID {
			t.Fatalf("blueprint %s = %+v, want snapshot %+v", bp.BaseID, bp, entry.Snapshot())
		}
	}

	if _, err := svc.Create(ctx, CreateRequest{Name: "Altair", ColorHue: 0.5}); !apperrors.IsType(err, apperrors.ErrorTypeConflict) {
		t.Fatalf("duplicate name: error = %v", err)
	}
	if _, err := svc.Create(ctx, CreateRequest{Name: "Deneb", ColorHue: 1.5}); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("bad hue: error = %v", err)
	}
	if _, err := svc.Create(ctx, CreateRequest{Name: " "}); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("blank name: error = %v", err)
	}
}

func TestSettleAndTerritory(t *testing.T) {
	f := storetest.New(t, 5)
	svc := newService(f)
	ctx := context.Background()

	far := f.AddSector(t, hexgrid.Cell{Q: 4, R: -1})
	free := f.AddCelestial(t, far.ID, 3, nil)

	if _, err := svc.Settle(ctx, f.Empire.ID, f.Celestial.ID); !apperrors.IsType(err, apperrors.ErrorTypeConflict) {
		t.Fatalf("settling a habitated celestial: error = %v", err)
	}
	settled, err := svc.Settle(ctx, f.Empire.ID, free.ID)
	if err != nil || !settled.HabitatedByEmpire(f.Empire.ID) {
		t.Fatalf("settle = %+v, %v", settled, err)
	}

	territory, err := svc.Territory(ctx, f.Empire.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := hexgrid.Union(hexgrid.DistanceSet(hexgrid.Cell{}, 1), hexgrid.DistanceSet(far.Position, 1))
	if !territory.Equal(want) || territory.Len() != 14 {
		t.Fatalf("territory = %v", territory.Cells())
	}
}

func TestUnveiledIncludesMovables(t *testing.T) {
	f := storetest.New(t, 5)
	svc := newService(f)
	f.AddShip(t, f.Blueprints, "ship/scout", hexgrid.Cell{Q: -5, R: 0})

	unveiled, err := svc.Unveiled(context.Background(), f.Empire.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !unveiled.Contains(hexgrid.Cell{Q: -5, R: 1}) || !unveiled.Contains(hexgrid.Cell{Q: 1, R: 0}) {
		t.Fatalf("unveiled = %v", unveiled.Cells())
	}
	if unveiled.Len() != 14 {
		t.Fatalf("unveiled has %d cells, want 14", unveiled.Len())
	}

	if _, err := svc.Territory(context.Background(), 999); !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Fatalf("unknown empire: error = %v", err)
	}
}

func TestDemolishKeepsBlueprint(t *testing.T) {
	f := storetest.New(t, 5)
	svc := newService(f)
	ctx := context.Background()
	rival, _ := f.AddEmpire(t, "Rigel")

	colony := f.Construct(t, f.Celestial.ID, "hab/colony")
	bp := f.Blueprints["hab/colony"]

	if err := svc.DemolishConstruction(ctx, rival.ID, colony.ID); apperrors.GetReason(err) != apperrors.ReasonPermissionDenied {
		t.Fatalf("foreign demolish: error = %v", err)
	}
	if err := svc.DemolishConstruction(ctx, f.Empire.ID, colony.ID); err != nil {
		t.Fatalf("demolish: %v", err)
	}
	if err := svc.DemolishConstruction(ctx, f.Empire.ID, colony.ID); !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Fatalf("second demolish: error = %v", err)
	}

	bps, err := svc.ListBlueprints(ctx, f.Empire.ID)
	if err != nil || len(bps) != f.Catalog.Len() {
		t.Fatalf("blueprints = %d, %v", len(bps), err)
	}
	kept := false
	for _, b := range bps {
		kept = kept || b.ID == bp.ID
	}
	if !kept {
		t.Fatalf("blueprint %d gone after demolish", bp.ID)
	}
}
