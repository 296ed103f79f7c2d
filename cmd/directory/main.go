// Command directory serves locations.json over a read-only JSON API and
// reloads it whenever the converter rewrites the file.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	httpadapter "github.com/couchcryptid/rubbish-tips-etl/internal/adapter/http"
	"github.com/couchcryptid/rubbish-tips-etl/internal/adapter/fswatch"
	"github.com/couchcryptid/rubbish-tips-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/rubbish-tips-etl/internal/config"
	"github.com/couchcryptid/rubbish-tips-etl/internal/directory"
	"github.com/couchcryptid/rubbish-tips-etl/internal/domain"
	"github.com/couchcryptid/rubbish-tips-etl/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Address search is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		cached, err := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		if err != nil {
			logger.Error("failed to create geocoder", "error", err)
			os.Exit(1)
		}
		geocoder = cached
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	store := directory.NewStore(metrics, logger)
	// A missing file is not fatal: /readyz stays 503 until the watcher sees one.
	if err := store.Reload(cfg.DataPath); err != nil {
		logger.Warn("starting without a directory", "path", cfg.DataPath)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, store, geocoder, httpadapter.Options{
		NearbyRadiusKm: cfg.NearbyRadiusKm,
		NearbyLimit:    cfg.NearbyLimit,
	}, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.WatchEnabled {
		g.Go(func() error {
			return fswatch.New(cfg.DataPath, store, logger).Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("directory service stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
