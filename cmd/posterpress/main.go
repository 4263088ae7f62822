// Package main is the entry point for the PosterPress gallery server.
// It loads configuration, connects to services, primes the catalog
// mirror, and starts the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"posterpress/internal/cache"
	"posterpress/internal/catalog"
	"posterpress/internal/config"
	"posterpress/internal/database"
	"posterpress/internal/download"
	"posterpress/internal/feed"
	"posterpress/internal/handlers"
	"posterpress/internal/middleware"
	"posterpress/internal/router"
	"posterpress/internal/storage"
	"posterpress/internal/store"
	"posterpress/internal/upload"
)

func main() {
	// Structured logger for the whole process.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr())

	// PostgreSQL: connect, migrate, and seed development data.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Valkey backs both the gallery cache and the change feed.
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyAddr(), cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	changeFeed := feed.NewValkey(valkeyClient)
	posterStore := store.NewPosterStore(db, changeFeed, cfg.BackendTimeout)

	// S3-compatible object storage (optional — the gallery works
	// read-only without it, uploads answer 503).
	storageClient, err := storage.New(
		cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey,
		cfg.S3Bucket, cfg.S3PublicURL, cfg.BackendTimeout,
	)
	if err != nil {
		slog.Error("failed to initialize object storage", "error", err)
		os.Exit(1)
	}
	if storageClient == nil {
		slog.Warn("object storage not configured, poster uploads disabled")
	}

	// Prime the in-memory catalog mirror. A failed initial load is not
	// fatal: the mirror stays empty and the feed consumer fills it in.
	cat := catalog.New()
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	if err := cat.Load(loadCtx, posterStore); err != nil {
		slog.Warn("initial catalog load failed", "error", err)
	}
	cancelLoad()
	slog.Info("catalog primed", "posters", cat.Len())

	// Background consumers live until shutdown.
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	// Feed consumer 1: merge change events into the catalog mirror.
	go func() {
		if err := cat.Run(runCtx, changeFeed); err != nil && runCtx.Err() == nil {
			slog.Error("catalog feed consumer stopped", "error", err)
		}
	}()

	// Feed consumer 2: drop every cached gallery view on any change.
	galleryCache := cache.NewGalleryCache(valkeyClient, cache.DefaultGalleryTTL)
	go func() {
		events, release, err := changeFeed.Subscribe(runCtx)
		if err != nil {
			slog.Error("cache invalidation subscribe failed", "error", err)
			return
		}
		defer release()
		for {
			select {
			case <-runCtx.Done():
				return
			case e, open := <-events:
				if !open {
					return
				}
				slog.Debug("invalidating gallery cache", "op", e.Op, "id", e.ID)
				galleryCache.InvalidateAll(runCtx)
			}
		}
	}()

	// Assemble the handler group. Interfaces stay nil when storage is
	// absent so handlers can answer 503 instead of panicking.
	var uploader *upload.Pipeline
	var remover handlers.ObjectRemover
	if storageClient != nil {
		uploader = upload.New(storageClient, posterStore)
		remover = storageClient
	}
	downloader := download.New(posterStore, cat, nil)

	api := handlers.New(cat, posterStore, uploader, remover, downloader, galleryCache, changeFeed, nil)

	limiter := middleware.NewRateLimiter(30, time.Minute)
	defer limiter.Stop()

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router.New(api, limiter),
		// No WriteTimeout: the SSE event stream holds its connection
		// open for the client's whole session.
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: stop the feed consumers, then drain requests.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	cancelRun()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
