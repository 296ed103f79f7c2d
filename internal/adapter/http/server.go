// Package http serves the rubbish tip directory over a read-only JSON API,
// alongside health, readiness and metrics endpoints.
package http

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/rubbish-tips-etl/internal/directory"
	"github.com/couchcryptid/rubbish-tips-etl/internal/domain"
	"github.com/couchcryptid/rubbish-tips-etl/internal/observability"
)

// Options tunes the nearby search defaults.
type Options struct {
	NearbyRadiusKm float64
	NearbyLimit    int
}

// Server exposes the directory API plus /healthz, /readyz and /metrics.
type Server struct {
	httpServer *http.Server
	store      *directory.Store
	geocoder   domain.Geocoder // nil disables address search
	opts       Options
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer wires every route onto a fresh mux. geocoder may be nil.
func NewServer(addr string, store *directory.Store, geocoder domain.Geocoder, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:    store,
		geocoder: geocoder,
		opts:     opts,
		metrics:  metrics,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(store))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Gatherer(), promhttp.HandlerOpts{}))

	s.route(mux, "GET /api/cities", s.handleCities)
	s.route(mux, "GET /api/cities/{city}", s.handleCity)
	s.route(mux, "GET /api/cities/{city}/locations/{location}", s.handleLocation)
	s.route(mux, "GET /api/static-params", s.handleStaticParams)
	s.route(mux, "GET /api/metadata", s.handleMetadata)
	s.route(mux, "GET /api/locations", s.handleLocations)
	s.route(mux, "GET /api/nearby", s.handleNearby)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// dirHandler serves one API route against the directory loaded at request time.
type dirHandler func(w http.ResponseWriter, r *http.Request, d *directory.Directory)

// route registers an API handler with request metrics. The pattern, not the
// raw path, is the metric label.
func (s *Server) route(mux *http.ServeMux, pattern string, h dirHandler) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		if d := s.store.Current(); d == nil {
			writeError(rec, http.StatusServiceUnavailable, directory.ErrNotLoaded.Error())
		} else {
			h(rec, r, d)
		}

		s.metrics.HTTPRequests.WithLabelValues(pattern, strconv.Itoa(rec.status)).Inc()
		s.metrics.HTTPRequestDuration.WithLabelValues(pattern).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type citySummary struct {
	Name          string              `json:"name"`
	Slug          string              `json:"slug"`
	State         string              `json:"state"`
	Coordinates   domain.Coordinates  `json:"coordinates"`
	LocationCount int                 `json:"locationCount"`
	Stats         directory.CityStats `json:"stats"`
}

type cityDetail struct {
	domain.CityGroup
	Stats directory.CityStats `json:"stats"`
}

type nearbyResponse struct {
	Origin   domain.Coordinates         `json:"origin"`
	Address  string                     `json:"address,omitempty"`
	RadiusKm float64                    `json:"radiusKm"`
	Results  []directory.NearbyLocation `json:"results"`
}

func (s *Server) handleCities(w http.ResponseWriter, _ *http.Request, d *directory.Directory) {
	groups := d.Cities()
	out := make([]citySummary, 0, len(groups))
	for _, g := range groups {
		stats, _ := d.CityStats(g.Slug)
		out = append(out, citySummary{
			Name:          g.Name,
			Slug:          g.Slug,
			State:         g.State,
			Coordinates:   g.Coordinates,
			LocationCount: len(g.Locations),
			Stats:         stats,
		})
	}
	sharedobs.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleCity(w http.ResponseWriter, r *http.Request, d *directory.Directory) {
	slug := r.PathValue("city")
	g, ok := d.City(slug)
	if !ok {
		writeError(w, http.StatusNotFound, "city not found: "+slug)
		return
	}
	stats, _ := d.CityStats(slug)
	sharedobs.WriteJSON(w, http.StatusOK, cityDetail{CityGroup: g, Stats: stats})
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request, d *directory.Directory) {
	city, slug := r.PathValue("city"), r.PathValue("location")
	l, ok := d.Location(city, slug)
	if !ok {
		writeError(w, http.StatusNotFound, "location not found: "+city+"/"+slug)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, l)
}

func (s *Server) handleStaticParams(w http.ResponseWriter, _ *http.Request, d *directory.Directory) {
	sharedobs.WriteJSON(w, http.StatusOK, d.StaticParams())
}

func (s *Server) handleMetadata(w http.ResponseWriter, _ *http.Request, d *directory.Directory) {
	sharedobs.WriteJSON(w, http.StatusOK, d.Metadata())
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request, d *directory.Directory) {
	sharedobs.WriteJSON(w, http.StatusOK, d.Locations(r.URL.Query().Get("state")))
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request, d *directory.Directory) {
	q := r.URL.Query()

	radius, err := positiveFloat(q.Get("radius"), s.opts.NearbyRadiusKm)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid radius")
		return
	}
	limit, err := positiveInt(q.Get("limit"), s.opts.NearbyLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	resp := nearbyResponse{RadiusKm: radius}
	if address := q.Get("address"); address != "" {
		status, err := s.geocode(r.Context(), address, &resp)
		if err != nil {
			writeError(w, status, err.Error())
			return
		}
	} else {
		resp.Origin, err = parseOrigin(q.Get("lat"), q.Get("lng"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	resp.Results = d.Nearby(resp.Origin, radius, limit)
	if resp.Results == nil {
		resp.Results = []directory.NearbyLocation{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

var (
	errNoGeocoder      = errors.New("address search is not configured")
	errAddressNotFound = errors.New("address not found")
	errGeocodeFailed   = errors.New("address search failed")
)

func (s *Server) geocode(ctx context.Context, address string, resp *nearbyResponse) (int, error) {
	if s.geocoder == nil {
		return http.StatusServiceUnavailable, errNoGeocoder
	}
	res, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		s.logger.Warn("nearby geocode failed", "address", address, "error", err)
		return http.StatusBadGateway, errGeocodeFailed
	}
	if res.FormattedAddress == "" {
		return http.StatusNotFound, errAddressNotFound
	}
	resp.Origin = res.Coordinates
	resp.Address = res.FormattedAddress
	return http.StatusOK, nil
}

func parseOrigin(latStr, lngStr string) (domain.Coordinates, error) {
	if latStr == "" || lngStr == "" {
		return domain.Coordinates{}, errors.New("lat and lng, or address, are required")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || !(lat >= -90 && lat <= 90) {
		return domain.Coordinates{}, errors.New("invalid lat")
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil || !(lng >= -180 && lng <= 180) {
		return domain.Coordinates{}, errors.New("invalid lng")
	}
	return domain.Coordinates{Lat: lat, Lng: lng}, nil
}

func positiveFloat(s string, def float64) (float64, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !(v > 0) || math.IsInf(v, 1) {
		return 0, errors.New("must be a positive number")
	}
	return v, nil
}

func positiveInt(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return 0, errors.New("must be a positive integer")
	}
	return v, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
