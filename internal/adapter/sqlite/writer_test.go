package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rubbish-tips-etl/internal/domain"
)

func testResult() domain.ConversionResult {
	sydney, _ := domain.CityBySlug("sydney")
	perth, _ := domain.CityBySlug("perth")
	return domain.ConversionResult{
		Output: domain.ConversionOutput{
			Cities: []domain.CityGroup{
				{City: sydney, Locations: []domain.Location{
					{ID: 1, Name: "Eastern Creek Tip", Slug: "eastern-creek-tip", CitySlug: "sydney",
						Latitude: -33.8, Longitude: 150.85, Type: "Landfill",
						AcceptedMaterials: []string{"General Waste", "Green Waste"}},
				}},
				{City: perth, Locations: []domain.Location{
					{ID: 4, Name: "Tamala Park", Slug: "tamala-park", CitySlug: "perth",
						Latitude: -31.7, Longitude: 115.7, Type: "Recycling Centre",
						AcceptedMaterials: []string{"Recycling"}},
				}},
			},
			Metadata: domain.Metadata{TotalLocations: 2, TotalCities: 2, TotalIssues: 1,
				LastUpdated: "2025-03-01T10:00:00.000Z", Source: "locations.csv"},
		},
		Issues: []domain.Issue{{Row: 3, Name: "Zero Depot", Issue: domain.IssueMissingCoordinates}},
	}
}

func openTestWriter(t *testing.T) *Writer {
	t.Helper()
	w, err := Open(filepath.Join(t.TempDir(), "db", "tips.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func count(t *testing.T, w *Writer, table string) int {
	t.Helper()
	var n int
	require.NoError(t, w.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestWriter_Load(t *testing.T) {
	w := openTestWriter(t)
	require.NoError(t, w.Load(context.Background(), testResult()))

	assert.Equal(t, 2, count(t, w, "cities"))
	assert.Equal(t, 2, count(t, w, "locations"))
	assert.Equal(t, 3, count(t, w, "location_materials"))
	assert.Equal(t, 1, count(t, w, "issues"))

	var citySlug, typ string
	require.NoError(t, w.db.QueryRow(`SELECT city_slug, type FROM locations WHERE slug = ?`, "tamala-park").Scan(&citySlug, &typ))
	assert.Equal(t, "perth", citySlug)
	assert.Equal(t, "Recycling Centre", typ)

	rows, err := w.db.Query(`SELECT material FROM location_materials WHERE location_id = 1 ORDER BY position`)
	require.NoError(t, err)
	defer rows.Close()
	var materials []string
	for rows.Next() {
		var m string
		require.NoError(t, rows.Scan(&m))
		materials = append(materials, m)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"General Waste", "Green Waste"}, materials)

	var source string
	var total int
	require.NoError(t, w.db.QueryRow(`SELECT source, total_locations FROM metadata`).Scan(&source, &total))
	assert.Equal(t, "locations.csv", source)
	assert.Equal(t, 2, total)
}

func TestWriter_Load_ReplacesSnapshot(t *testing.T) {
	w := openTestWriter(t)
	require.NoError(t, w.Load(context.Background(), testResult()))

	smaller := testResult()
	smaller.Output.Cities = smaller.Output.Cities[:1]
	smaller.Issues = nil
	require.NoError(t, w.Load(context.Background(), smaller))

	assert.Equal(t, 1, count(t, w, "cities"))
	assert.Equal(t, 1, count(t, w, "locations"))
	assert.Equal(t, 2, count(t, w, "location_materials"))
	assert.Equal(t, 0, count(t, w, "issues"))
	assert.Equal(t, 1, count(t, w, "metadata"))
}

func TestWriter_Load_DuplicateIDRollsBack(t *testing.T) {
	w := openTestWriter(t)
	require.NoError(t, w.Load(context.Background(), testResult()))

	bad := testResult()
	bad.Output.Cities[1].Locations[0].ID = 1
	require.Error(t, w.Load(context.Background(), bad))

	assert.Equal(t, 2, count(t, w, "locations"), "failed load must leave the previous snapshot")
}

func TestWriter_Name(t *testing.T) {
	assert.Equal(t, "sqlite", openTestWriter(t).Name())
}
