package domain

import (
	"errors"
	"strings"
)

// ErrNotEnoughRows is returned when the input has no data rows after the header.
var ErrNotEnoughRows = errors.New("not enough data rows found")

// Issue reasons, in the order rows are checked.
const (
	IssueTooFewFields       = "Too few fields"
	IssueEmptyRow           = "Empty row"
	IssueMissingCoordinates = "Missing coordinates"
	IssueMissingTitle       = "Missing title"
)

const (
	minRowFields = 5
	unknownName  = "Unknown"

	// isoMillis matches JavaScript's Date.toISOString, which the site expects.
	isoMillis = "2006-01-02T15:04:05.000Z"
)

// Convert tokenizes a CSV document and builds the directory document from it.
// Rows that cannot become a Location are reported as Issues and skipped; the
// only error is ErrNotEnoughRows.
func Convert(doc SourceDocument, cols Columns) (ConversionResult, error) {
	rows := Tokenize(doc.Content)
	if len(rows) < 2 {
		return ConversionResult{RowsParsed: len(rows)}, ErrNotEnoughRows
	}

	h := newHeader(rows[0])
	var (
		locations []Location
		issues    []Issue
	)
	for i := 1; i < len(rows); i++ {
		raw := newRawRow(i+1, rows[i], h, cols)
		if issue, rejected := checkRow(raw); rejected {
			issues = append(issues, issue)
			continue
		}
		locations = append(locations, BuildLocation(i, raw))
	}

	now := clock.Now().UTC()
	out := Aggregate(locations)
	out.Metadata.TotalIssues = len(issues)
	out.Metadata.LastUpdated = now.Format(isoMillis)
	out.Metadata.Source = doc.Name

	return ConversionResult{
		Output:         out,
		Issues:         issues,
		RowsParsed:     len(rows),
		SlugCollisions: FindSlugCollisions(out.Cities),
		GeneratedAt:    now,
	}, nil
}

// checkRow applies the rejection rules in order; the first failing rule
// decides the reported reason.
func checkRow(raw RawRow) (Issue, bool) {
	if raw.FieldCount < minRowFields {
		return Issue{Row: raw.Number, Issue: IssueTooFewFields}, true
	}
	if raw.Blank {
		return Issue{Row: raw.Number, Issue: IssueEmptyRow}, true
	}
	if lat, lng := raw.Position(); lat == 0 || lng == 0 {
		name := raw.Title
		if name == "" {
			name = unknownName
		}
		return Issue{Row: raw.Number, Name: name, Issue: IssueMissingCoordinates}, true
	}
	if strings.TrimSpace(raw.Title) == "" {
		return Issue{Row: raw.Number, Issue: IssueMissingTitle}, true
	}
	return Issue{}, false
}

// BuildLocation derives a Location from a row that passed validation.
func BuildLocation(id int, raw RawRow) Location {
	name := strings.TrimSpace(raw.Title)
	address := BuildAddress(raw)
	lat, lng := raw.Position()

	citySlug := AssignCity(CityCandidate{
		Name:    name,
		Address: address,
		City:    raw.City,
		State:   raw.Province,
		Region:  raw.Region,
	})

	return Location{
		ID:                id,
		Name:              name,
		Slug:              Slugify(name),
		CitySlug:          citySlug,
		Address:           address,
		Latitude:          lat,
		Longitude:         lng,
		Phone:             ExtractPhone(raw.Content),
		City:              raw.City,
		State:             raw.Province,
		Type:              ExtractFacilityType(raw.Categories, raw.Content),
		AcceptedMaterials: ExtractAcceptedMaterials(raw.AcceptedMaterials, raw.Content),
		OpeningHours:      ExtractOpeningHours(raw.Content),
		Region:            raw.Region,
		Permalink:         raw.Permalink,
		Content:           TruncateContent(raw.Content),
		Description:       GenerateDescription(name, raw.Content, citySlug),
	}
}

// Aggregate groups locations by CitySlug in city-table order, drops empty
// groups, and derives the static route manifest from what remains.
func Aggregate(locations []Location) ConversionOutput {
	cities := Cities()
	byCity := make(map[string][]Location, len(cities))
	for _, loc := range locations {
		byCity[loc.CitySlug] = append(byCity[loc.CitySlug], loc)
	}

	out := ConversionOutput{
		Cities:       []CityGroup{},
		StaticParams: []StaticParam{},
	}
	for _, c := range cities {
		locs := byCity[c.Slug]
		if len(locs) == 0 {
			continue
		}
		out.Cities = append(out.Cities, CityGroup{City: c, Locations: locs})
		for _, loc := range locs {
			out.StaticParams = append(out.StaticParams, StaticParam{City: c.Slug, Location: loc.Slug})
		}
		out.Metadata.TotalLocations += len(locs)
	}
	out.Metadata.TotalCities = len(out.Cities)
	return out
}

// FindSlugCollisions reports slugs shared by more than one location within a
// city, in group order.
func FindSlugCollisions(groups []CityGroup) []SlugCollision {
	var collisions []SlugCollision
	for _, g := range groups {
		ids := make(map[string][]int)
		var order []string
		for _, loc := range g.Locations {
			if _, seen := ids[loc.Slug]; !seen {
				order = append(order, loc.Slug)
			}
			ids[loc.Slug] = append(ids[loc.Slug], loc.ID)
		}
		for _, slug := range order {
			if len(ids[slug]) > 1 {
				collisions = append(collisions, SlugCollision{City: g.Slug, Slug: slug, IDs: ids[slug]})
			}
		}
	}
	return collisions
}
