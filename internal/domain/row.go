package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// Columns names the CSV headers each RawRow field is read from.
type Columns struct {
	Title             string `yaml:"title"`
	Lat               string `yaml:"lat"`
	Latitude          string `yaml:"latitude"`
	Lng               string `yaml:"lng"`
	Longitude         string `yaml:"longitude"`
	Content           string `yaml:"content"`
	City              string `yaml:"city"`
	Province          string `yaml:"province"`
	Categories        string `yaml:"categories"`
	AcceptedMaterials string `yaml:"accepted_materials"`
	Street            string `yaml:"street"`
	Street2           string `yaml:"street2"`
	Zip               string `yaml:"zip"`
	Address           string `yaml:"address"`
	Permalink         string `yaml:"permalink"`
	Region            string `yaml:"region"`
}

// DefaultColumns returns the header names used by the store-locator export.
func DefaultColumns() Columns {
	return Columns{
		Title:             "Title",
		Lat:               "lat",
		Latitude:          "latitude",
		Lng:               "lng",
		Longitude:         "longitude",
		Content:           "Content",
		City:              "city",
		Province:          "province",
		Categories:        "Rubbish Tip Locations - Categories",
		AcceptedMaterials: "Rubbish Tip Locations - Accepted Materials",
		Street:            "street",
		Street2:           "street2",
		Zip:               "zip",
		Address:           "address",
		Permalink:         "Permalink",
		Region:            "Rubbish Tip Locations - Region",
	}
}

// Merge returns c with every empty name filled from defaults.
func (c Columns) Merge(defaults Columns) Columns {
	fill := func(v *string, d string) {
		if strings.TrimSpace(*v) == "" {
			*v = d
		}
	}
	fill(&c.Title, defaults.Title)
	fill(&c.Lat, defaults.Lat)
	fill(&c.Latitude, defaults.Latitude)
	fill(&c.Lng, defaults.Lng)
	fill(&c.Longitude, defaults.Longitude)
	fill(&c.Content, defaults.Content)
	fill(&c.City, defaults.City)
	fill(&c.Province, defaults.Province)
	fill(&c.Categories, defaults.Categories)
	fill(&c.AcceptedMaterials, defaults.AcceptedMaterials)
	fill(&c.Street, defaults.Street)
	fill(&c.Street2, defaults.Street2)
	fill(&c.Zip, defaults.Zip)
	fill(&c.Address, defaults.Address)
	fill(&c.Permalink, defaults.Permalink)
	fill(&c.Region, defaults.Region)
	return c
}

// RawRow is one CSV data row with its known columns pulled out. A column
// missing from the header reads as "", the same as an empty cell.
type RawRow struct {
	Number     int // row number reported in issues (token row index + 1)
	FieldCount int
	Blank      bool

	Title             string
	Lat               string
	Latitude          string
	Lng               string
	Longitude         string
	Content           string
	City              string
	Province          string
	Categories        string
	AcceptedMaterials string
	Street            string
	Street2           string
	Zip               string
	Address           string
	Permalink         string
	Region            string
}

// Position parses lat (else latitude) and lng (else longitude). Unparseable
// values are 0.
func (r RawRow) Position() (lat, lng float64) {
	return parseLeadingFloat(firstNonEmpty(r.Lat, r.Latitude)), parseLeadingFloat(firstNonEmpty(r.Lng, r.Longitude))
}

// header maps a trimmed header name to its column index. A repeated name
// resolves to its last occurrence.
type header map[string]int

func newHeader(fields []string) header {
	h := make(header, len(fields))
	for i, f := range fields {
		h[strings.TrimSpace(f)] = i
	}
	return h
}

func newRawRow(number int, fields []string, h header, cols Columns) RawRow {
	get := func(name string) string {
		if i, ok := h[name]; ok && i < len(fields) {
			return fields[i]
		}
		return ""
	}

	blank := true
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			blank = false
			break
		}
	}

	return RawRow{
		Number:     number,
		FieldCount: len(fields),
		Blank:      blank,

		Title:             get(cols.Title),
		Lat:               get(cols.Lat),
		Latitude:          get(cols.Latitude),
		Lng:               get(cols.Lng),
		Longitude:         get(cols.Longitude),
		Content:           get(cols.Content),
		City:              get(cols.City),
		Province:          get(cols.Province),
		Categories:        get(cols.Categories),
		AcceptedMaterials: get(cols.AcceptedMaterials),
		Street:            get(cols.Street),
		Street2:           get(cols.Street2),
		Zip:               get(cols.Zip),
		Address:           get(cols.Address),
		Permalink:         get(cols.Permalink),
		Region:            get(cols.Region),
	}
}

// leadingFloatRe matches the numeric prefix of a coordinate cell, e.g. "-33.78 S".
var leadingFloatRe = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

// parseLeadingFloat parses the leading number in s, ignoring trailing text.
// Returns 0 when s does not start with a number.
func parseLeadingFloat(s string) float64 {
	m := leadingFloatRe.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
