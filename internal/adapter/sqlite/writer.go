// Package sqlite exports each conversion as a queryable SQLite snapshot.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/rubbish-tips-etl/internal/domain"
)

// Writer replaces the database contents with the latest conversion.
type Writer struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and ensures the schema.
func Open(path string, logger *slog.Logger) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory for %s: %w", path, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	w := &Writer{db: db, path: path, logger: logger}
	if err := w.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite %s: %w", path, err)
	}
	return w, nil
}

// Close releases the database handle.
func (w *Writer) Close() error { return w.db.Close() }

// Name identifies the loader in logs and metrics.
func (w *Writer) Name() string { return "sqlite" }

func (w *Writer) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cities (
			slug TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			state TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS locations (
			id INTEGER PRIMARY KEY,
			city_slug TEXT NOT NULL REFERENCES cities(slug),
			slug TEXT NOT NULL,
			name TEXT NOT NULL,
			address TEXT,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			phone TEXT,
			city TEXT,
			state TEXT,
			type TEXT,
			opening_hours TEXT,
			region TEXT,
			permalink TEXT,
			content TEXT,
			description TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_locations_city_slug ON locations(city_slug, slug);`,
		`CREATE TABLE IF NOT EXISTS location_materials (
			location_id INTEGER NOT NULL REFERENCES locations(id),
			position INTEGER NOT NULL,
			material TEXT NOT NULL,
			PRIMARY KEY (location_id, position)
		);`,
		`CREATE TABLE IF NOT EXISTS issues (
			row_number INTEGER NOT NULL,
			name TEXT,
			issue TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS metadata (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			total_locations INTEGER NOT NULL,
			total_cities INTEGER NOT NULL,
			total_issues INTEGER NOT NULL,
			last_updated TEXT NOT NULL,
			source TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := w.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Load writes the whole result in one transaction, replacing the previous snapshot.
func (w *Writer) Load(ctx context.Context, res domain.ConversionResult) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, table := range []string{"location_materials", "locations", "cities", "issues", "metadata"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := insertCities(ctx, tx, res.Output.Cities); err != nil {
		return err
	}
	if err := insertIssues(ctx, tx, res.Issues); err != nil {
		return err
	}

	m := res.Output.Metadata
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO metadata(id, total_locations, total_cities, total_issues, last_updated, source) VALUES(1, ?, ?, ?, ?, ?)`,
		m.TotalLocations, m.TotalCities, m.TotalIssues, m.LastUpdated, m.Source); err != nil {
		return fmt.Errorf("insert metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	w.logger.Info("sqlite snapshot written", "path", w.path, "locations", m.TotalLocations)
	return nil
}

func insertCities(ctx context.Context, tx *sql.Tx, groups []domain.CityGroup) error {
	cityStmt, err := tx.PrepareContext(ctx, `INSERT INTO cities(slug, name, state, latitude, longitude) VALUES(?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare cities: %w", err)
	}
	defer cityStmt.Close()

	locStmt, err := tx.PrepareContext(ctx, `INSERT INTO locations(
		id, city_slug, slug, name, address, latitude, longitude, phone, city, state,
		type, opening_hours, region, permalink, content, description
	) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare locations: %w", err)
	}
	defer locStmt.Close()

	matStmt, err := tx.PrepareContext(ctx, `INSERT INTO location_materials(location_id, position, material) VALUES(?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare materials: %w", err)
	}
	defer matStmt.Close()

	for _, g := range groups {
		if _, err := cityStmt.ExecContext(ctx, g.Slug, g.Name, g.State, g.Coordinates.Lat, g.Coordinates.Lng); err != nil {
			return fmt.Errorf("insert city %s: %w", g.Slug, err)
		}
		for _, l := range g.Locations {
			if _, err := locStmt.ExecContext(ctx,
				l.ID, l.CitySlug, l.Slug, l.Name, l.Address, l.Latitude, l.Longitude, l.Phone, l.City, l.State,
				l.Type, l.OpeningHours, l.Region, l.Permalink, l.Content, l.Description,
			); err != nil {
				return fmt.Errorf("insert location %d: %w", l.ID, err)
			}
			for i, m := range l.AcceptedMaterials {
				if _, err := matStmt.ExecContext(ctx, l.ID, i, m); err != nil {
					return fmt.Errorf("insert material for location %d: %w", l.ID, err)
				}
			}
		}
	}
	return nil
}

func insertIssues(ctx context.Context, tx *sql.Tx, issues []domain.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO issues(row_number, name, issue) VALUES(?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare issues: %w", err)
	}
	defer stmt.Close()

	for _, is := range issues {
		if _, err := stmt.ExecContext(ctx, is.Row, is.Name, is.Issue); err != nil {
			return fmt.Errorf("insert issue for row %d: %w", is.Row, err)
		}
	}
	return nil
}
