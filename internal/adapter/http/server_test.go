package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/rubbish-tips-etl/internal/adapter/http"
	"github.com/couchcryptid/rubbish-tips-etl/internal/directory"
	"github.com/couchcryptid/rubbish-tips-etl/internal/domain"
	"github.com/couchcryptid/rubbish-tips-etl/internal/observability"
)

type stubGeocoder struct {
	result domain.GeocodingResult
	err    error
	query  string
}

func (g *stubGeocoder) Geocode(_ context.Context, query string) (domain.GeocodingResult, error) {
	g.query = query
	return g.result, g.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDirectory() *directory.Directory {
	locs := []domain.Location{
		{ID: 1, Name: "Eastern Creek Tip", Slug: "eastern-creek-tip", CitySlug: "sydney", State: "NSW",
			Type: "Landfill", Latitude: -33.80, Longitude: 150.85, AcceptedMaterials: []string{"General Waste"}},
		{ID: 2, Name: "Kimbriki Recycling Centre", Slug: "kimbriki-recycling-centre", CitySlug: "sydney", State: "NSW",
			Type: "Recycling Centre", Latitude: -33.74, Longitude: 151.25, AcceptedMaterials: []string{"Recycling"}},
		{ID: 3, Name: "Hallam Transfer Station", Slug: "hallam-transfer-station", CitySlug: "melbourne", State: "VIC",
			Type: "Transfer Station", Latitude: -38.01, Longitude: 145.27, AcceptedMaterials: []string{"General Waste"}},
	}
	out := domain.Aggregate(locs)
	out.Metadata.LastUpdated = "2025-03-01T10:00:00.000Z"
	out.Metadata.Source = "locations.csv"
	return directory.New(out)
}

type fixture struct {
	srv     *httpadapter.Server
	metrics *observability.Metrics
	store   *directory.Store
}

func newFixture(loaded bool, geocoder domain.Geocoder) fixture {
	metrics := observability.NewMetricsForTesting()
	store := directory.NewStore(metrics, discardLogger())
	if loaded {
		store.Set(testDirectory())
	}
	opts := httpadapter.Options{NearbyRadiusKm: 50, NearbyLimit: 20}
	return fixture{
		srv:     httpadapter.NewServer(":0", store, geocoder, opts, metrics, discardLogger()),
		metrics: metrics,
		store:   store,
	}
}

func (f fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthzReturns200(t *testing.T) {
	rec := newFixture(false, nil).get(t, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
}

func TestReadyz(t *testing.T) {
	t.Run("not loaded", func(t *testing.T) {
		rec := newFixture(false, nil).get(t, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		body := decode[map[string]string](t, rec)
		assert.Equal(t, "not ready", body["status"])
		assert.Equal(t, directory.ErrNotLoaded.Error(), body["error"])
	})

	t.Run("loaded", func(t *testing.T) {
		rec := newFixture(true, nil).get(t, "/readyz")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ready", decode[map[string]string](t, rec)["status"])
	})
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(true, nil)
	f.get(t, "/api/metadata")

	rec := f.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rubbish_tips_http_requests_total")
}

func TestAPI_NotLoaded(t *testing.T) {
	f := newFixture(false, nil)
	rec := f.get(t, "/api/cities")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.HTTPRequests.WithLabelValues("GET /api/cities", "503")), 1e-9)
}

func TestAPI_Cities(t *testing.T) {
	rec := newFixture(true, nil).get(t, "/api/cities")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []struct {
		Slug          string              `json:"slug"`
		LocationCount int                 `json:"locationCount"`
		Stats         directory.CityStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "sydney", got[0].Slug)
	assert.Equal(t, 2, got[0].LocationCount)
	assert.Equal(t, directory.CityStats{Total: 2, Recycling: 1}, got[0].Stats)
	assert.Equal(t, "melbourne", got[1].Slug)
}

func TestAPI_City(t *testing.T) {
	f := newFixture(true, nil)

	rec := f.get(t, "/api/cities/melbourne")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Name      string              `json:"name"`
		Locations []domain.Location   `json:"locations"`
		Stats     directory.CityStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Melbourne", got.Name)
	require.Len(t, got.Locations, 1)
	assert.Equal(t, 1, got.Stats.Transfer)

	rec = f.get(t, "/api/cities/hobart")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.HTTPRequests.WithLabelValues("GET /api/cities/{city}", "404")), 1e-9)
}

func TestAPI_Location(t *testing.T) {
	f := newFixture(true, nil)

	rec := f.get(t, "/api/cities/sydney/locations/kimbriki-recycling-centre")
	require.Equal(t, http.StatusOK, rec.Code)
	l := decode[domain.Location](t, rec)
	assert.Equal(t, 2, l.ID)
	assert.Equal(t, "Recycling Centre", l.Type)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/cities/melbourne/locations/kimbriki-recycling-centre").Code)
}

func TestAPI_StaticParamsAndMetadata(t *testing.T) {
	f := newFixture(true, nil)

	params := decode[[]domain.StaticParam](t, f.get(t, "/api/static-params"))
	assert.Len(t, params, 3)
	assert.Contains(t, params, domain.StaticParam{City: "melbourne", Location: "hallam-transfer-station"})

	meta := decode[domain.Metadata](t, f.get(t, "/api/metadata"))
	assert.Equal(t, 3, meta.TotalLocations)
	assert.Equal(t, "locations.csv", meta.Source)
}

func TestAPI_Locations(t *testing.T) {
	f := newFixture(true, nil)

	assert.Len(t, decode[[]domain.Location](t, f.get(t, "/api/locations")), 3)
	vic := decode[[]domain.Location](t, f.get(t, "/api/locations?state=VIC"))
	require.Len(t, vic, 1)
	assert.Equal(t, "Hallam Transfer Station", vic[0].Name)
	assert.Empty(t, decode[[]domain.Location](t, f.get(t, "/api/locations?state=WA")))
}

type nearbyBody struct {
	Origin   domain.Coordinates `json:"origin"`
	Address  string             `json:"address"`
	RadiusKm float64            `json:"radiusKm"`
	Results  []struct {
		ID         int     `json:"id"`
		DistanceKm float64 `json:"distanceKm"`
	} `json:"results"`
}

func TestAPI_Nearby_Coordinates(t *testing.T) {
	f := newFixture(true, nil)

	rec := f.get(t, "/api/nearby?lat=-33.8688&lng=151.2093")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[nearbyBody](t, rec)
	assert.InDelta(t, 50, body.RadiusKm, 1e-9)
	require.Len(t, body.Results, 2)
	assert.Equal(t, 2, body.Results[0].ID)
	assert.Less(t, body.Results[0].DistanceKm, body.Results[1].DistanceKm)

	body = decode[nearbyBody](t, f.get(t, "/api/nearby?lat=-33.8688&lng=151.2093&radius=20&limit=5"))
	require.Len(t, body.Results, 1)

	body = decode[nearbyBody](t, f.get(t, "/api/nearby?lat=-12.46&lng=130.84"))
	assert.NotNil(t, body.Results)
	assert.Empty(t, body.Results)
}

func TestAPI_Nearby_BadInput(t *testing.T) {
	f := newFixture(true, nil)

	tests := []string{
		"/api/nearby",
		"/api/nearby?lat=-33.8",
		"/api/nearby?lat=abc&lng=151",
		"/api/nearby?lat=-95&lng=151",
		"/api/nearby?lat=-33.8&lng=200",
		"/api/nearby?lat=-33.8&lng=151&radius=0",
		"/api/nearby?lat=-33.8&lng=151&radius=NaN",
		"/api/nearby?lat=-33.8&lng=151&limit=-1",
		"/api/nearby?lat=-33.8&lng=151&limit=x",
	}
	for _, target := range tests {
		t.Run(target, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, f.get(t, target).Code)
		})
	}
}

func TestAPI_Nearby_Address(t *testing.T) {
	tests := []struct {
		name     string
		geocoder domain.Geocoder
		want     int
	}{
		{"no geocoder", nil, http.StatusServiceUnavailable},
		{"not found", &stubGeocoder{}, http.StatusNotFound},
		{"upstream error", &stubGeocoder{err: errors.New("timeout")}, http.StatusBadGateway},
		{"found", &stubGeocoder{result: domain.GeocodingResult{
			Coordinates:      domain.Coordinates{Lat: -37.81, Lng: 144.96},
			FormattedAddress: "Melbourne VIC, Australia",
		}}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newFixture(true, tt.geocoder).get(t, "/api/nearby?address=Melbourne&radius=100")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	g := &stubGeocoder{result: domain.GeocodingResult{
		Coordinates:      domain.Coordinates{Lat: -37.81, Lng: 144.96},
		FormattedAddress: "Melbourne VIC, Australia",
	}}
	body := decode[nearbyBody](t, newFixture(true, g).get(t, "/api/nearby?address=Melbourne+CBD&radius=100"))
	assert.Equal(t, "Melbourne CBD", g.query)
	assert.Equal(t, "Melbourne VIC, Australia", body.Address)
	require.Len(t, body.Results, 1)
	assert.Equal(t, 3, body.Results[0].ID)
}
