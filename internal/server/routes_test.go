package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"empires-server/internal/auth"
	"empires-server/internal/blueprint"
	"empires-server/internal/empire"
	"empires-server/internal/engine"
	"empires-server/internal/fleet"
	"empires-server/internal/hexgrid"
	"empires-server/internal/middleware"
	"empires-server/internal/process"
	serverHandlers "empires-server/internal/server/handlers"
	"empires-server/internal/shared/config"
	"empires-server/internal/shared/response"
	"empires-server/internal/store/storetest"
	"empires-server/internal/universe"
	"empires-server/internal/world"
)

type api struct {
	t       *testing.T
	f       *storetest.Fixture
	handler http.Handler
	clock   *time.Time
	empire  string
	admin   string
	issuer  *auth.TokenIssuer
}

func newAPI(t *testing.T) *api {
	t.Helper()
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := storetest.New(t, 5)

	registry := engine.NewRegistry()
	resolver := blueprint.NewResolver(f.Catalog)
	if err := engine.RegisterDefaults(registry, resolver); err != nil {
		t.Fatal(err)
	}
	clock := storetest.Epoch
	sched := engine.NewScheduler(f.Store, registry, discard, engine.WithClock(func() time.Time { return clock }))

	issuer, err := auth.NewTokenIssuer(config.AuthConfig{JWTSecret: "0123456789abcdef0123456789abcdef"})
	if err != nil {
		t.Fatal(err)
	}

	services := Services{
		Empire:    empire.NewService(f.Store, f.Catalog, discard),
		Blueprint: blueprint.NewService(f.Store, resolver, registry, discard),
		Fleet:     fleet.NewService(f.Store, registry, discard),
		Universe:  universe.NewService(f.Store, discard),
		Scheduler: sched,
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	limiter := middleware.NewRateLimiter(ctx, config.RateLimitConfig{Enabled: false})
	health := map[string]serverHandlers.Pinger{"database": nil}

	a := &api{
		t:       t,
		f:       f,
		handler: NewRoutes(services, issuer, limiter, health, discard).Setup(),
		clock:   &clock,
		issuer:  issuer,
	}
	a.empire = a.token(f.Empire.ID, auth.RoleEmpire)
	a.admin = a.token(0, auth.RoleAdmin)
	return a
}

func (a *api) token(empireID int64, role string) string {
	a.t.Helper()
	tok, err := a.issuer.Generate(empireID, "test", role)
	if err != nil {
		a.t.Fatal(err)
	}
	return tok
}

// do sends the request and decodes a successful body into out when out is non-nil.
func (a *api) do(method, path, token string, body any, out any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			a.t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			a.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec
}

func (a *api) expect(rec *httptest.ResponseRecorder, code int) {
	a.t.Helper()
	if rec.Code != code {
		a.t.Fatalf("status = %d, want %d, body %s", rec.Code, code, rec.Body.String())
	}
}

func errorReason(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body response.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body.Reason
}

func TestHealthAndWorld(t *testing.T) {
	a := newAPI(t)

	var health serverHandlers.HealthResponse
	a.expect(a.do(http.MethodGet, "/api/server/health", "", nil, &health), http.StatusOK)
	if health.Status != "healthy" || health.Services["database"] != "disabled" {
		t.Fatalf("health = %+v", health)
	}

	*a.clock = storetest.Epoch.Add(20 * time.Second)
	var view world.View
	a.expect(a.do(http.MethodGet, "/api/world", "", nil, &view), http.StatusOK)
	if view.Now != 0 || view.TickDurationSeconds != 60 || view.RemainingSeconds != 40 {
		t.Fatalf("world = %+v", view)
	}
}

func TestCreateEmpireIssuesToken(t *testing.T) {
	a := newAPI(t)

	var created struct {
		Empire     world.Empire      `json:"empire"`
		Blueprints []world.Blueprint `json:"blueprint_set"`
		Token      string            `json:"token"`
	}
	rec := a.do(http.MethodPost, "/api/empires", "", map[string]any{"name": "Altair", "color_hue": 0.1}, &created)
	a.expect(rec, http.StatusCreated)
	if created.Empire.Name != "Altair" || len(created.Blueprints) != a.f.Catalog.Len() || created.Token == "" {
		t.Fatalf("created = %+v", created)
	}
	if len(rec.Result().Cookies()) != 1 {
		t.Fatalf("auth cookie not set")
	}

	claims, err := a.issuer.Validate(created.Token)
	if err != nil || claims.EmpireID != created.Empire.ID {
		t.Fatalf("token claims = %+v, %v", claims, err)
	}

	a.expect(a.do(http.MethodPost, "/api/empires", "", map[string]any{"name": "Altair"}, nil), http.StatusConflict)
	a.expect(a.do(http.MethodPost, "/api/empires", "", map[string]any{"name": "Altair", "bogus": 1}, nil), http.StatusBadRequest)

	var empires []world.Empire
	a.expect(a.do(http.MethodGet, "/api/empires", "", nil, &empires), http.StatusOK)
	if len(empires) != 2 {
		t.Fatalf("empires = %+v", empires)
	}
}

func TestBuildThenAdvance(t *testing.T) {
	a := newAPI(t)
	colony := a.f.Blueprints["hab/colony"]
	celestial := a.f.Celestial.ID

	var scheduled process.Process
	a.expect(a.do(http.MethodPost, "/api/build", a.empire,
		map[string]int64{"blueprint": colony.ID, "celestial": celestial}, &scheduled), http.StatusAccepted)
	if scheduled.HandlerID != process.HandlerConstruction || scheduled.EndTick != 3 {
		t.Fatalf("scheduled = %+v", scheduled)
	}

	var pending []process.Process
	a.expect(a.do(http.MethodGet, fmt.Sprintf("/api/processes?celestial=%d", celestial), "", nil, &pending), http.StatusOK)
	if len(pending) != 1 || pending[0].ID != scheduled.ID {
		t.Fatalf("pending = %+v", pending)
	}

	var view universe.CelestialView
	a.expect(a.do(http.MethodGet, fmt.Sprintf("/api/celestials/%d", celestial), "", nil, &view), http.StatusOK)
	if view.Reserved != 1 || view.RemainingCapacity != 4 {
		t.Fatalf("celestial before advance = %+v", view)
	}

	a.expect(a.do(http.MethodPost, "/api/world/advance", a.empire, nil, nil), http.StatusForbidden)

	*a.clock = storetest.Epoch.Add(3 * storetest.TickDuration)
	var report engine.Report
	a.expect(a.do(http.MethodPost, "/api/world/advance", a.admin, nil, &report), http.StatusOK)
	if report.ToTick != 3 || report.ResolvedCount != 1 {
		t.Fatalf("report = %+v", report)
	}

	a.expect(a.do(http.MethodGet, fmt.Sprintf("/api/celestials/%d", celestial), "", nil, &view), http.StatusOK)
	if len(view.Constructions) != 1 || view.Reserved != 0 || view.RemainingCapacity != 4 {
		t.Fatalf("celestial after advance = %+v", view)
	}
}

func TestBuildRejections(t *testing.T) {
	a := newAPI(t)
	body := map[string]int64{"blueprint": a.f.Blueprints["construction/shipyard"].ID, "celestial": a.f.Celestial.ID}

	a.expect(a.do(http.MethodPost, "/api/build", "", body, nil), http.StatusUnauthorized)
	a.expect(a.do(http.MethodPost, "/api/build", a.admin, body, nil), http.StatusForbidden)
	a.expect(a.do(http.MethodGet, "/api/build", a.empire, nil, nil), http.StatusMethodNotAllowed)

	rec := a.do(http.MethodPost, "/api/build", a.empire, body, nil)
	a.expect(rec, http.StatusUnprocessableEntity)
	if reason := errorReason(t, rec); reason != "unmet_prerequisite" {
		t.Fatalf("reason = %q", reason)
	}

	rival, _ := a.f.AddEmpire(t, "Rigel")
	rec = a.do(http.MethodPost, "/api/build", a.token(rival.ID, auth.RoleEmpire), body, nil)
	a.expect(rec, http.StatusForbidden)
	if reason := errorReason(t, rec); reason != "permission_denied" {
		t.Fatalf("reason = %q", reason)
	}
}

func TestMoveAndViews(t *testing.T) {
	a := newAPI(t)
	m, _ := a.f.AddShip(t, a.f.Blueprints, "ship/scout", hexgrid.Cell{})

	var scheduled process.Process
	a.expect(a.do(http.MethodPost, fmt.Sprintf("/api/movables/%d/move", m.ID), a.empire,
		map[string]any{"destination": hexgrid.Cell{Q: 6, R: 0}}, &scheduled), http.StatusAccepted)
	if scheduled.HandlerID != process.HandlerMovement || scheduled.EndTick != 2 {
		t.Fatalf("scheduled = %+v", scheduled)
	}
	a.expect(a.do(http.MethodPost, fmt.Sprintf("/api/movables/%d/move", m.ID), a.empire, map[string]any{}, nil), http.StatusBadRequest)

	var view world.MovableView
	a.expect(a.do(http.MethodGet, fmt.Sprintf("/api/movables/%d", m.ID), "", nil, &view), http.StatusOK)
	if view.NextPosition != (hexgrid.Cell{Q: 3, R: 0}) || view.Destination == nil {
		t.Fatalf("movable = %+v", view)
	}

	var unveiled hexgrid.Set
	a.expect(a.do(http.MethodGet, fmt.Sprintf("/api/empires/%d/unveiled", a.f.Empire.ID), a.empire, nil, &unveiled), http.StatusOK)
	if !unveiled.Contains(hexgrid.Cell{Q: 1, R: -1}) {
		t.Fatalf("unveiled = %v", unveiled.Cells())
	}

	rival, _ := a.f.AddEmpire(t, "Rigel")
	a.expect(a.do(http.MethodGet, fmt.Sprintf("/api/empires/%d/unveiled", a.f.Empire.ID), a.token(rival.ID, auth.RoleEmpire), nil, nil), http.StatusForbidden)
	a.expect(a.do(http.MethodGet, fmt.Sprintf("/api/empires/%d/unveiled", a.f.Empire.ID), a.admin, nil, nil), http.StatusOK)

	var territory hexgrid.Set
	a.expect(a.do(http.MethodGet, fmt.Sprintf("/api/empires/%d/territory", a.f.Empire.ID), "", nil, &territory), http.StatusOK)
	if territory.Len() != 7 {
		t.Fatalf("territory = %v", territory.Cells())
	}

	a.expect(a.do(http.MethodGet, "/api/movables/9999", "", nil, nil), http.StatusNotFound)
	a.expect(a.do(http.MethodGet, "/api/movables/abc", "", nil, nil), http.StatusBadRequest)
}

func TestDemolishAndFailures(t *testing.T) {
	a := newAPI(t)
	colony := a.f.Construct(t, a.f.Celestial.ID, "hab/colony")
	_, ship := a.f.AddShip(t, a.f.Blueprints, "ship/scout", hexgrid.Cell{})

	a.expect(a.do(http.MethodDelete, fmt.Sprintf("/api/constructions/%d", colony.ID), a.empire, nil, nil), http.StatusNoContent)
	a.expect(a.do(http.MethodDelete, fmt.Sprintf("/api/blueprints/%d", a.f.Blueprints["hab/colony"].ID), a.empire, nil, nil), http.StatusNotFound)

	var blueprints []world.Blueprint
	a.expect(a.do(http.MethodGet, fmt.Sprintf("/api/empires/%d/blueprints", a.f.Empire.ID), "", nil, &blueprints), http.StatusOK)
	if len(blueprints) != a.f.Catalog.Len() {
		t.Fatalf("blueprints after demolish = %d, want %d", len(blueprints), a.f.Catalog.Len())
	}
	a.expect(a.do(http.MethodDelete, fmt.Sprintf("/api/ships/%d", ship.ID), a.empire, nil, nil), http.StatusNoContent)

	var failures []process.Failure
	a.expect(a.do(http.MethodGet, "/api/failures", "", nil, nil), http.StatusUnauthorized)
	a.expect(a.do(http.MethodGet, "/api/failures?limit=5", a.admin, nil, &failures), http.StatusOK)
	if len(failures) != 0 {
		t.Fatalf("failures = %+v", failures)
	}
}

func TestGenerateUniverseRunsOnce(t *testing.T) {
	a := newAPI(t)
	cfg := universe.Config{Radius: 1, CelestialsPerSector: 1, MaxCelestialSize: 4, Seed: 3}

	var summary universe.Summary
	a.expect(a.do(http.MethodPost, "/api/universe", a.admin, cfg, &summary), http.StatusOK)
	if !summary.Skipped {
		t.Fatalf("fixture sector should block generation: %+v", summary)
	}

	var sectors []world.Sector
	a.expect(a.do(http.MethodGet, "/api/sectors", "", nil, &sectors), http.StatusOK)
	if len(sectors) != 1 {
		t.Fatalf("sectors = %+v", sectors)
	}

	var sector universe.SectorView
	a.expect(a.do(http.MethodGet, fmt.Sprintf("/api/sectors/%d", sectors[0].ID), "", nil, &sector), http.StatusOK)
	if len(sector.Celestials) != 1 {
		t.Fatalf("sector = %+v", sector)
	}
}
