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

	"github.com/redis/go-redis/v9"

	"github.com/praveshjainnn/BasketBuddy/internal/api"
	"github.com/praveshjainnn/BasketBuddy/internal/cache"
	"github.com/praveshjainnn/BasketBuddy/internal/catalog"
	"github.com/praveshjainnn/BasketBuddy/internal/config"
	"github.com/praveshjainnn/BasketBuddy/internal/db"
	"github.com/praveshjainnn/BasketBuddy/internal/health"
	"github.com/praveshjainnn/BasketBuddy/internal/importer"
	"github.com/praveshjainnn/BasketBuddy/internal/store"
)

func cmdServe(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	database, err := db.OpenAndMigrate(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	version, err := db.CurrentVersion(database)
	if err != nil {
		return err
	}
	slog.Info("database ready", "path", cfg.Database.Path, "schema_version", version)

	logger := slog.Default()
	s := store.New(database, store.WithLogger(logger))

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := s.JWTSecret(ctx)
	if err != nil {
		return fmt.Errorf("loading JWT secret: %w", err)
	}

	// The cache is optional; without Redis every aggregate is computed.
	var redisClient *redis.Client
	itemCache := cache.Cache(cache.Nop{})
	if cfg.Redis.Enabled() {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, running without cache", "error", err)
		} else {
			defer redisClient.Close()
			itemCache = cache.NewRedisCache(redisClient, &cfg.Cache)
			slog.Info("redis cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Cache.DefaultTTL)
		}
	}

	healthHandler, err := health.NewHealthHandler(&health.Endpoints{DB: database, RedisClient: redisClient})
	if err != nil {
		return err
	}

	handler := api.NewRouter(api.Deps{
		Store:     s,
		Catalog:   catalog.New(s, catalog.WithCache(itemCache), catalog.WithLogger(logger)),
		Importer:  importer.New(s, logger),
		Health:    healthHandler.Handler(),
		JWTSecret: jwtSecret,
		RateLimit: cfg.RateLimit,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:              cfg.HTTPServer.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.HTTPServer.Addr, "env", cfg.Env)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}
