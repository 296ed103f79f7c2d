// Package directory serves lookups over a converted locations.json document.
package directory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/couchcryptid/rubbish-tips-etl/internal/domain"
)

// DefaultNearbyLimit caps Nearby results when the caller passes no limit.
const DefaultNearbyLimit = 20

// Directory is an immutable, indexed view of one directory document.
type Directory struct {
	output domain.ConversionOutput
	cities map[string]int // city slug -> index into output.Cities
	total  int
}

// NearbyLocation is a location annotated with its distance from a search origin.
type NearbyLocation struct {
	domain.Location
	DistanceKm float64 `json:"distanceKm"`
}

// CityStats counts a city's locations by broad facility type.
type CityStats struct {
	Total     int `json:"total"`
	Recycling int `json:"recyclingCentres"`
	Transfer  int `json:"transferStations"`
}

// Load reads and indexes the directory document at path.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", path, err)
	}
	var out domain.ConversionOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode directory %s: %w", path, err)
	}
	return New(out), nil
}

// New indexes an in-memory directory document.
func New(out domain.ConversionOutput) *Directory {
	d := &Directory{output: out, cities: make(map[string]int, len(out.Cities))}
	for i, g := range out.Cities {
		if _, dup := d.cities[g.Slug]; !dup {
			d.cities[g.Slug] = i
		}
		d.total += len(g.Locations)
	}
	return d
}

// Len returns the number of locations across all cities.
func (d *Directory) Len() int { return d.total }

// Output returns the underlying document.
func (d *Directory) Output() domain.ConversionOutput { return d.output }

// Cities returns the city groups in document order.
func (d *Directory) Cities() []domain.CityGroup { return d.output.Cities }

// City returns the group for a city slug.
func (d *Directory) City(slug string) (domain.CityGroup, bool) {
	i, ok := d.cities[slug]
	if !ok {
		return domain.CityGroup{}, false
	}
	return d.output.Cities[i], true
}

// Location returns the first location in city whose slug matches. Colliding
// slugs resolve to the earliest row.
func (d *Directory) Location(city, slug string) (domain.Location, bool) {
	g, ok := d.City(city)
	if !ok {
		return domain.Location{}, false
	}
	for _, l := range g.Locations {
		if l.Slug == slug {
			return l, true
		}
	}
	return domain.Location{}, false
}

// StaticParams returns the route manifest.
func (d *Directory) StaticParams() []domain.StaticParam { return d.output.StaticParams }

// Metadata returns the run metadata.
func (d *Directory) Metadata() domain.Metadata { return d.output.Metadata }

// Locations lists every location in document order. A non-empty state keeps
// only exact matches; a location without a state is matched by its city's.
func (d *Directory) Locations(state string) []domain.Location {
	out := make([]domain.Location, 0, d.total)
	for _, g := range d.output.Cities {
		for _, l := range g.Locations {
			locState := l.State
			if locState == "" {
				locState = g.State
			}
			if state == "" || locState == state {
				out = append(out, l)
			}
		}
	}
	return out
}

// Nearby returns locations within radiusKm of origin, nearest first, at most
// limit of them (DefaultNearbyLimit when limit <= 0).
func (d *Directory) Nearby(origin domain.Coordinates, radiusKm float64, limit int) []NearbyLocation {
	if limit <= 0 {
		limit = DefaultNearbyLimit
	}
	var out []NearbyLocation
	for _, g := range d.output.Cities {
		for _, l := range g.Locations {
			if l.Latitude == 0 || l.Longitude == 0 {
				continue
			}
			dist := domain.HaversineKm(origin, l.Coordinates())
			if dist <= radiusKm {
				out = append(out, NearbyLocation{Location: l, DistanceKm: dist})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// CityStats summarizes the facility types of one city.
func (d *Directory) CityStats(slug string) (CityStats, bool) {
	g, ok := d.City(slug)
	if !ok {
		return CityStats{}, false
	}
	return statsFor(g.Locations), true
}

func statsFor(locs []domain.Location) CityStats {
	s := CityStats{Total: len(locs)}
	for _, l := range locs {
		if strings.Contains(l.Type, "Recycling") {
			s.Recycling++
		}
		if strings.Contains(l.Type, "Transfer") {
			s.Transfer++
		}
	}
	return s
}
