package directory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rubbish-tips-etl/internal/domain"
)

func loc(id int, name, city, state, typ string, lat, lng float64) domain.Location {
	return domain.Location{
		ID: id, Name: name, Slug: domain.Slugify(name), CitySlug: city,
		State: state, Type: typ, Latitude: lat, Longitude: lng,
		AcceptedMaterials: []string{"General Waste"},
	}
}

// testOutput has two Sydney sites, one Melbourne site and one Perth site.
// Locations 1 and 5 share a slug.
func testOutput() domain.ConversionOutput {
	out := domain.Aggregate([]domain.Location{
		loc(1, "Eastern Creek Tip", "sydney", "NSW", "Landfill", -33.80, 150.85),
		loc(2, "Kimbriki Recycling Centre", "sydney", "NSW", "Recycling Centre", -33.74, 151.25),
		loc(3, "Hallam Transfer Station", "melbourne", "VIC", "Transfer Station", -38.01, 145.27),
		loc(4, "Tamala Park", "perth", "WA", "Landfill", -31.70, 115.70),
		loc(5, "Eastern Creek Tip", "sydney", "NSW", "Recycling & Transfer", -33.81, 150.86),
	})
	out.Metadata.LastUpdated = "2025-03-01T10:00:00.000Z"
	out.Metadata.Source = "locations.csv"
	return out
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.json")
	data, err := json.Marshal(testOutput())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, d.Len())
	assert.Len(t, d.Cities(), 3)
	assert.Equal(t, "locations.csv", d.Metadata().Source)
	assert.Len(t, d.StaticParams(), 5)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))

	tests := []struct {
		name string
		path string
		want string
	}{
		{"missing", filepath.Join(dir, "nope.json"), "read directory"},
		{"malformed", bad, "decode directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDirectory_City(t *testing.T) {
	d := New(testOutput())

	g, ok := d.City("sydney")
	require.True(t, ok)
	assert.Equal(t, "Sydney", g.Name)
	assert.Len(t, g.Locations, 3)

	_, ok = d.City("hobart")
	assert.False(t, ok, "cities without locations are not listed")
}

func TestDirectory_Location(t *testing.T) {
	d := New(testOutput())

	tests := []struct {
		name   string
		city   string
		slug   string
		wantID int
		wantOK bool
	}{
		{"found", "melbourne", "hallam-transfer-station", 3, true},
		{"collision resolves to first", "sydney", "eastern-creek-tip", 1, true},
		{"wrong city", "perth", "hallam-transfer-station", 0, false},
		{"unknown city", "nowhere", "tamala-park", 0, false},
		{"unknown slug", "perth", "nope", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, ok := d.Location(tt.city, tt.slug)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, l.ID)
		})
	}
}

func TestDirectory_Locations(t *testing.T) {
	d := New(testOutput())

	assert.Len(t, d.Locations(""), 5)

	nsw := d.Locations("NSW")
	require.Len(t, nsw, 3)
	for _, l := range nsw {
		assert.Equal(t, "NSW", l.State)
	}
	assert.Empty(t, d.Locations("nsw"), "state filter is exact")
}

func TestDirectory_Locations_CityStateFallback(t *testing.T) {
	d := New(domain.Aggregate([]domain.Location{
		loc(1, "Tamala Park", "perth", "WA", "Landfill", -31.70, 115.70),
		loc(2, "Red Hill Waste Facility", "perth", "", "Landfill", -31.84, 116.08),
		loc(3, "Border Depot", "perth", "NT", "Transfer Station", -25.0, 129.0),
	}))

	tests := []struct {
		state string
		ids   []int
	}{
		{"WA", []int{1, 2}},
		{"NT", []int{3}},
		{"", []int{1, 2, 3}},
		{"NSW", nil},
	}

	for _, tt := range tests {
		t.Run("state="+tt.state, func(t *testing.T) {
			var ids []int
			for _, l := range d.Locations(tt.state) {
				ids = append(ids, l.ID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestDirectory_Nearby(t *testing.T) {
	out := testOutput()
	out.Cities[0].Locations = append(out.Cities[0].Locations, loc(9, "Ghost Depot", "sydney", "NSW", "", 0, 151.0))
	d := New(out)
	sydneyCBD := domain.Coordinates{Lat: -33.8688, Lng: 151.2093}

	t.Run("within radius sorted by distance", func(t *testing.T) {
		got := d.Nearby(sydneyCBD, 50, 0)
		require.Len(t, got, 3)
		assert.Equal(t, 2, got[0].ID, "Kimbriki is closest to the CBD")
		for i := 1; i < len(got); i++ {
			assert.LessOrEqual(t, got[i-1].DistanceKm, got[i].DistanceKm)
		}
		for _, n := range got {
			assert.LessOrEqual(t, n.DistanceKm, 50.0)
			assert.NotEqual(t, 9, n.ID, "zero coordinates are skipped")
		}
	})

	t.Run("limit", func(t *testing.T) {
		assert.Len(t, d.Nearby(sydneyCBD, 50, 1), 1)
	})

	t.Run("nothing in range", func(t *testing.T) {
		assert.Empty(t, d.Nearby(domain.Coordinates{Lat: -12.46, Lng: 130.84}, 50, 10))
	})

	t.Run("continent wide", func(t *testing.T) {
		assert.Len(t, d.Nearby(sydneyCBD, 5000, 0), 5)
	})
}

func TestDirectory_CityStats(t *testing.T) {
	d := New(testOutput())

	s, ok := d.CityStats("sydney")
	require.True(t, ok)
	assert.Equal(t, CityStats{Total: 3, Recycling: 2, Transfer: 1}, s)

	s, ok = d.CityStats("melbourne")
	require.True(t, ok)
	assert.Equal(t, CityStats{Total: 1, Transfer: 1}, s)

	_, ok = d.CityStats("darwin")
	assert.False(t, ok)
}
