package server

import (
	"log/slog"
	"net/http"

	"empires-server/internal/auth"
	"empires-server/internal/blueprint"
	blueprintHandlers "empires-server/internal/blueprint/handlers"
	"empires-server/internal/empire"
	empireHandlers "empires-server/internal/empire/handlers"
	"empires-server/internal/engine"
	engineHandlers "empires-server/internal/engine/handlers"
	"empires-server/internal/fleet"
	fleetHandlers "empires-server/internal/fleet/handlers"
	"empires-server/internal/middleware"
	serverHandlers "empires-server/internal/server/handlers"
	"empires-server/internal/universe"
	universeHandlers "empires-server/internal/universe/handlers"
)

type Services struct {
	Empire    *empire.Service
	Blueprint *blueprint.Service
	Fleet     *fleet.Service
	Universe  *universe.Service
	Scheduler *engine.Scheduler
}

type Routes struct {
	services    Services
	issuer      *auth.TokenIssuer
	rateLimiter *middleware.RateLimiter
	health      map[string]serverHandlers.Pinger
	logger      *slog.Logger
}

func NewRoutes(services Services, issuer *auth.TokenIssuer, rateLimiter *middleware.RateLimiter, health map[string]serverHandlers.Pinger, logger *slog.Logger) *Routes {
	return &Routes{
		services:    services,
		issuer:      issuer,
		rateLimiter: rateLimiter,
		health:      health,
		logger:      logger,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := r.logger.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()
	authn := middleware.NewAuthenticator(r.issuer)

	// intent wraps endpoints that change the world on an empire's behalf.
	intent := func(h http.Handler) http.Handler {
		return r.rateLimiter.Middleware(authn.RequireEmpire(h))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return authn.RequireAdmin(h)
	}

	healthHandler := serverHandlers.NewHealthHandler(r.health)
	worldHandler := engineHandlers.NewWorldHandler(r.services.Scheduler)
	empireHandler := empireHandlers.NewEmpireHandler(r.services.Empire, r.issuer)
	buildHandler := blueprintHandlers.NewBuildHandler(r.services.Blueprint)
	movableHandler := fleetHandlers.NewMovableHandler(r.services.Fleet)
	universeHandler := universeHandlers.NewUniverseHandler(r.services.Universe, r.logger)

	// Public endpoints
	mux.Handle("/api/server/health", healthHandler)
	mux.HandleFunc("/api/world", worldHandler.GetWorld)
	mux.HandleFunc("/api/processes", worldHandler.ListProcesses)
	mux.HandleFunc("GET /api/empires", empireHandler.ListEmpires)
	mux.Handle("POST /api/empires", r.rateLimiter.Middleware(http.HandlerFunc(empireHandler.CreateEmpire)))
	mux.HandleFunc("/api/empires/{id}", empireHandler.GetEmpire)
	mux.HandleFunc("/api/empires/{id}/territory", empireHandler.GetTerritory)
	mux.HandleFunc("/api/empires/{id}/blueprints", empireHandler.ListBlueprints)
	mux.HandleFunc("/api/empires/{id}/movables", movableHandler.ListEmpireMovables)
	mux.HandleFunc("/api/sectors", universeHandler.ListSectors)
	mux.HandleFunc("/api/sectors/{id}", universeHandler.GetSector)
	mux.HandleFunc("/api/celestials/{id}", universeHandler.GetCelestial)
	mux.HandleFunc("/api/movables/{id}", movableHandler.GetMovable)
	mux.HandleFunc("/auth/logout", empireHandler.Logout)

	// Own empire (or admin)
	mux.Handle("/api/empires/{id}/unveiled", authn.RequireOwnEmpire(http.HandlerFunc(empireHandler.GetUnveiled)))

	// Intents (empire token)
	mux.Handle("/api/build", intent(buildHandler))
	mux.Handle("/api/celestials/{id}/settle", intent(http.HandlerFunc(empireHandler.Settle)))
	mux.Handle("/api/movables/{id}/move", intent(http.HandlerFunc(movableHandler.Move)))
	mux.Handle("/api/constructions/{id}", intent(http.HandlerFunc(empireHandler.DemolishConstruction)))
	mux.Handle("/api/ships/{id}", intent(http.HandlerFunc(movableHandler.DemolishShip)))

	// Admin-only endpoints
	mux.Handle("/api/world/advance", admin(worldHandler.Advance))
	mux.Handle("/api/failures", admin(worldHandler.ListFailures))
	mux.Handle("/api/universe", admin(universeHandler.Generate))

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{"/api/server/health", "/api/world", "/api/processes", "/api/empires", "/api/sectors", "/api/celestials/{id}", "/api/movables/{id}"},
		"intent_endpoints", []string{"/api/build", "/api/celestials/{id}/settle", "/api/movables/{id}/move", "/api/blueprints/{id}", "/api/constructions/{id}", "/api/ships/{id}"},
		"admin_endpoints", []string{"/api/world/advance", "/api/failures", "/api/universe"},
	)

	return mux
}
