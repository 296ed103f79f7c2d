package directory

import (
	"fmt"
	"time"

	"github.com/couchcryptid/rubbish-tips-etl/internal/domain"
)

// Phase collects the findings of one integrity check. Errors fail the phase;
// warnings are reported but do not.
type Phase struct {
	Name     string
	Errors   []string
	Warnings []string
}

func (p *Phase) errorf(format string, args ...any) {
	p.Errors = append(p.Errors, fmt.Sprintf(format, args...))
}

func (p *Phase) warnf(format string, args ...any) {
	p.Warnings = append(p.Warnings, fmt.Sprintf(format, args...))
}

// Passed reports whether the phase found no errors.
func (p *Phase) Passed() bool { return len(p.Errors) == 0 }

// Validate runs every integrity phase over a directory document.
func Validate(out domain.ConversionOutput) []*Phase {
	return []*Phase{
		validateManifest(out),
		validateMetadata(out),
		validateLocations(out),
		validateSlugs(out),
	}
}

// validateManifest checks that the route manifest and the city groups list
// exactly the same (city, location) pairs, duplicates included.
func validateManifest(out domain.ConversionOutput) *Phase {
	p := &Phase{Name: "Route manifest parity"}

	want := map[domain.StaticParam]int{}
	for _, g := range out.Cities {
		for _, l := range g.Locations {
			want[domain.StaticParam{City: g.Slug, Location: l.Slug}]++
		}
	}
	got := map[domain.StaticParam]int{}
	for _, sp := range out.StaticParams {
		got[sp]++
	}

	if n := len(out.StaticParams); n != out.Metadata.TotalLocations {
		p.errorf("manifest has %d entries, metadata reports %d locations", n, out.Metadata.TotalLocations)
	}
	for key, n := range want {
		if got[key] != n {
			p.errorf("%s/%s: %d location(s) in groups, %d in manifest", key.City, key.Location, n, got[key])
		}
	}
	for key, n := range got {
		if _, ok := want[key]; !ok {
			p.errorf("%s/%s: listed %d time(s) in manifest with no location", key.City, key.Location, n)
		}
	}
	return p
}

func validateMetadata(out domain.ConversionOutput) *Phase {
	p := &Phase{Name: "Metadata totals"}
	meta := out.Metadata

	total := 0
	for _, g := range out.Cities {
		total += len(g.Locations)
	}
	if meta.TotalLocations != total {
		p.errorf("totalLocations: expected %d, got %d", total, meta.TotalLocations)
	}
	if meta.TotalCities != len(out.Cities) {
		p.errorf("totalCities: expected %d, got %d", len(out.Cities), meta.TotalCities)
	}
	if meta.TotalIssues < 0 {
		p.errorf("totalIssues is negative: %d", meta.TotalIssues)
	}
	if _, err := time.Parse(time.RFC3339, meta.LastUpdated); err != nil {
		p.errorf("lastUpdated %q is not an ISO-8601 timestamp", meta.LastUpdated)
	}
	if meta.Source == "" {
		p.errorf("source is empty")
	}
	return p
}

func validateLocations(out domain.ConversionOutput) *Phase {
	p := &Phase{Name: "Location integrity"}

	ids := map[int]string{}
	groups := map[string]bool{}
	for _, g := range out.Cities {
		if _, ok := domain.CityBySlug(g.Slug); !ok {
			p.errorf("group %q is not a known capital city", g.Slug)
		}
		if groups[g.Slug] {
			p.errorf("group %q appears more than once", g.Slug)
		}
		groups[g.Slug] = true
		if len(g.Locations) == 0 {
			p.errorf("group %q is empty", g.Slug)
		}

		for _, l := range g.Locations {
			pf := func(format string, args ...any) {
				p.errorf("location %d (%s): "+format, append([]any{l.ID, l.Name}, args...)...)
			}
			if prev, dup := ids[l.ID]; dup {
				pf("id already used in %s", prev)
			}
			ids[l.ID] = g.Slug

			if l.Latitude == 0 || l.Longitude == 0 {
				pf("zero coordinate (%g, %g)", l.Latitude, l.Longitude)
			}
			if l.Name == "" {
				pf("name is empty")
			}
			if want := domain.Slugify(l.Name); l.Slug != want {
				pf("slug %q, expected %q", l.Slug, want)
			}
			if l.CitySlug != g.Slug {
				pf("citySlug %q inside group %q", l.CitySlug, g.Slug)
			}
			if len(l.AcceptedMaterials) == 0 {
				pf("acceptedMaterials is empty")
			}
		}
	}
	return p
}

func validateSlugs(out domain.ConversionOutput) *Phase {
	p := &Phase{Name: "Slug uniqueness"}
	for _, c := range domain.FindSlugCollisions(out.Cities) {
		p.warnf("%s/%s shared by locations %v; lookups resolve to %d", c.City, c.Slug, c.IDs, c.IDs[0])
	}
	return p
}
