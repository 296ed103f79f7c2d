// Package postgres mirrors each conversion into a waste_locations table.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/rubbish-tips-etl/internal/domain"
)

const connectTimeout = 10 * time.Second

// Writer replaces the waste_locations snapshot on every run.
type Writer struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewWriter connects to the database at dsn and verifies the connection.
func NewWriter(ctx context.Context, dsn string, logger *slog.Logger) (*Writer, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Writer{pool: pool, logger: logger}, nil
}

// Close releases the pool.
func (w *Writer) Close() {
	if w.pool != nil {
		w.pool.Close()
	}
}

// Name identifies the loader in logs and metrics.
func (w *Writer) Name() string { return "postgres" }

// EnsureSchema creates the table and indexes if they are missing.
func (w *Writer) EnsureSchema(ctx context.Context) error {
	sql := `
	CREATE TABLE IF NOT EXISTS waste_locations (
		id INTEGER PRIMARY KEY,
		city_slug TEXT NOT NULL,
		slug TEXT NOT NULL,
		name TEXT NOT NULL,
		address TEXT NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		phone TEXT,
		city TEXT,
		state TEXT,
		facility_type TEXT NOT NULL,
		accepted_materials TEXT[] NOT NULL,
		opening_hours TEXT,
		region TEXT,
		permalink TEXT,
		content TEXT,
		description TEXT,
		converted_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_waste_locations_city ON waste_locations(city_slug, slug);
	CREATE INDEX IF NOT EXISTS idx_waste_locations_state ON waste_locations(state);
	`

	if _, err := w.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const insertSQL = `
INSERT INTO waste_locations (
	id, city_slug, slug, name, address, latitude, longitude, phone, city, state,
	facility_type, accepted_materials, opening_hours, region, permalink, content, description, converted_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

// Load deletes the previous snapshot and inserts every location in one
// transaction using a single batch.
func (w *Writer) Load(ctx context.Context, res domain.ConversionResult) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `DELETE FROM waste_locations`); err != nil {
		return fmt.Errorf("clear waste_locations: %w", err)
	}

	batch := &pgx.Batch{}
	for _, g := range res.Output.Cities {
		for _, l := range g.Locations {
			batch.Queue(insertSQL,
				l.ID, l.CitySlug, l.Slug, l.Name, l.Address, l.Latitude, l.Longitude, l.Phone, l.City, l.State,
				l.Type, l.AcceptedMaterials, l.OpeningHours, l.Region, l.Permalink, l.Content, l.Description,
				res.GeneratedAt,
			)
		}
	}

	if batch.Len() > 0 {
		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("batch insert failed at row %d: %w", i, err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	w.logger.Info("postgres snapshot written", "locations", batch.Len())
	return nil
}
