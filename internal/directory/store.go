package directory

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/rubbish-tips-etl/internal/observability"
)

// ErrNotLoaded is returned by readiness checks before the first successful load.
var ErrNotLoaded = errors.New("directory not loaded")

// Store holds the directory currently being served. Readers never block on a
// reload; a reload swaps the whole directory at once.
type Store struct {
	current atomic.Pointer[Directory]
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewStore creates an empty store.
func NewStore(metrics *observability.Metrics, logger *slog.Logger) *Store {
	return &Store{metrics: metrics, logger: logger}
}

// Current returns the served directory, or nil before the first load.
func (s *Store) Current() *Directory { return s.current.Load() }

// Set replaces the served directory.
func (s *Store) Set(d *Directory) {
	s.current.Store(d)
	s.metrics.DirectoryLocations.Set(float64(d.Len()))
}

// Reload loads path and swaps it in. On failure the previous directory stays.
func (s *Store) Reload(path string) error {
	d, err := Load(path)
	if err != nil {
		s.metrics.DirectoryReloads.WithLabelValues("error").Inc()
		s.logger.Error("directory reload failed", "path", path, "error", err)
		return err
	}
	s.Set(d)
	s.metrics.DirectoryReloads.WithLabelValues("success").Inc()
	meta := d.Metadata()
	s.logger.Info("directory loaded",
		"path", path,
		"locations", d.Len(),
		"cities", len(d.Cities()),
		"last_updated", meta.LastUpdated,
	)
	return nil
}

// CheckReadiness reports ErrNotLoaded until a directory has been loaded.
func (s *Store) CheckReadiness(_ context.Context) error {
	if s.current.Load() == nil {
		return ErrNotLoaded
	}
	return nil
}
