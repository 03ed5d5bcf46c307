package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"empires-server/internal/auth"
	"empires-server/internal/blueprint"
	"empires-server/internal/catalog"
	"empires-server/internal/empire"
	"empires-server/internal/engine"
	"empires-server/internal/fleet"
	"empires-server/internal/middleware"
	"empires-server/internal/server"
	serverHandlers "empires-server/internal/server/handlers"
	"empires-server/internal/shared/config"
	"empires-server/internal/shared/database"
	"empires-server/internal/shared/logger"
	"empires-server/internal/shared/redis"
	"empires-server/internal/store"
	"empires-server/internal/store/memstore"
	"empires-server/internal/store/pgstore"
	"empires-server/internal/universe"
)

func main() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init()

	if err := run(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.GlobalConfig
	log := slog.With("component", "main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := map[string]serverHandlers.Pinger{"database": nil, "redis": nil}

	st, closeStore, err := openStore(ctx, cfg, health)
	if err != nil {
		return err
	}
	defer closeStore()

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer rdb.Close()

	cat, err := catalog.Load(cfg.World.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load blueprint catalog: %w", err)
	}
	log.Info("Blueprint catalog loaded", "entries", cat.Len(), "path", cfg.World.CatalogPath)

	resolver := blueprint.NewResolver(cat)
	registry := engine.NewRegistry()
	if err := engine.RegisterDefaults(registry, resolver); err != nil {
		return fmt.Errorf("failed to register process handlers: %w", err)
	}
	log.Debug("Process handlers registered", "handlers", registry.HandlerIDs())

	base := slog.Default()
	opts := []engine.Option{}
	if rdb != nil {
		health["redis"] = rdb
		opts = append(opts,
			engine.WithLocker(engine.NewRedisLocker(rdb.Client, base), cfg.Redis.AdvanceLockTTL),
			engine.WithNotifier(engine.MultiNotifier{
				engine.NewLogNotifier(base),
				engine.NewRedisNotifier(rdb.Client, cfg.Redis.EventsChannel, base),
			}),
		)
	}
	scheduler := engine.NewScheduler(st, registry, base, opts...)

	w, err := scheduler.EnsureWorld(ctx, cfg.World.TickDuration)
	if err != nil {
		return err
	}
	log.Info("World clock ready", "now", w.Now, "tick_duration", w.TickDuration.String())

	universeService := universe.NewService(st, base)
	if _, err := universeService.Generate(ctx, universe.Config{
		Radius:              cfg.Universe.Radius,
		CelestialsPerSector: cfg.Universe.CelestialsPerSector,
		MaxCelestialSize:    cfg.Universe.MaxCelestialSize,
		Seed:                cfg.Universe.Seed,
	}); err != nil {
		return err
	}

	issuer, err := auth.NewTokenIssuer(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}

	services := server.Services{
		Empire:    empire.NewService(st, cat, base),
		Blueprint: blueprint.NewService(st, resolver, registry, base),
		Fleet:     fleet.NewService(st, registry, base),
		Universe:  universeService,
		Scheduler: scheduler,
	}
	rateLimiter := middleware.NewRateLimiter(ctx, cfg.RateLimit)
	mux := server.NewRoutes(services, issuer, rateLimiter, health, base).Setup()
	corsMiddleware := middleware.NewCORS(cfg.Frontend)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           corsMiddleware.Middleware(mux),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		scheduler.Run(ctx, cfg.World.AdvanceInterval)
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Empires server starting", "port", cfg.Server.Port, "environment", cfg.Server.Environment)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			stop()
			<-loopDone
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
	}
	<-loopDone

	log.Info("Server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, health map[string]serverHandlers.Pinger) (store.Store, func(), error) {
	log := slog.With("component", "main", "operation", "open_store", "store", cfg.World.Store)

	if cfg.World.Store == "memory" {
		log.Warn("Using in-memory world store, state is lost on restart")
		return memstore.New(), func() {}, nil
	}

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.RunMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	health["database"] = db

	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", "error", err)
		}
	}
	return pgstore.New(db, slog.Default()), closeDB, nil
}
