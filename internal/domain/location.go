package domain

import (
	"context"
	"time"
)

// Coordinates is a WGS-84 point. JSON keys follow the directory document (lat/lng).
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SourceDocument is the raw CSV input handed to Convert.
type SourceDocument struct {
	Name    string // base file name, recorded as metadata.source
	Content string
}

// Location is one converted facility. It is built once by Convert and never
// modified afterwards.
type Location struct {
	ID                int      `json:"id"`
	Name              string   `json:"name"`
	Slug              string   `json:"slug"`
	CitySlug          string   `json:"citySlug"`
	Address           string   `json:"address"`
	Latitude          float64  `json:"latitude"`
	Longitude         float64  `json:"longitude"`
	Phone             string   `json:"phone"`
	City              string   `json:"city"`
	State             string   `json:"state"`
	Type              string   `json:"type"`
	AcceptedMaterials []string `json:"acceptedMaterials"`
	OpeningHours      string   `json:"openingHours"`
	Region            string   `json:"region"`
	Permalink         string   `json:"permalink"`
	Content           string   `json:"content"`
	Description       string   `json:"description"`
}

// Coordinates returns the location's position.
func (l Location) Coordinates() Coordinates {
	return Coordinates{Lat: l.Latitude, Lng: l.Longitude}
}

// CityGroup is a capital city together with the locations assigned to it.
type CityGroup struct {
	City
	Locations []Location `json:"locations"`
}

// StaticParam is a (city, location) slug pair used to pre-enumerate detail pages.
type StaticParam struct {
	City     string `json:"city"`
	Location string `json:"location"`
}

// Metadata summarizes a conversion run.
type Metadata struct {
	TotalLocations int    `json:"totalLocations"`
	TotalCities    int    `json:"totalCities"`
	TotalIssues    int    `json:"totalIssues"`
	LastUpdated    string `json:"lastUpdated"`
	Source         string `json:"source"`
}

// ConversionOutput is the directory document written to locations.json.
// Every location in Cities appears exactly once in StaticParams and vice versa.
type ConversionOutput struct {
	Cities       []CityGroup   `json:"cities"`
	StaticParams []StaticParam `json:"staticParams"`
	Metadata     Metadata      `json:"metadata"`
}

// Issue records a rejected input row.
type Issue struct {
	Row   int    `json:"row"`
	Name  string `json:"name,omitempty"`
	Issue string `json:"issue"`
}

// SlugCollision lists locations in one city that share a generated slug.
type SlugCollision struct {
	City string
	Slug string
	IDs  []int
}

// ConversionResult is everything Convert produces: the document itself plus
// the side reports that are not part of it.
type ConversionResult struct {
	Output         ConversionOutput
	Issues         []Issue
	RowsParsed     int
	SlugCollisions []SlugCollision
	GeneratedAt    time.Time
}

// GeocodingResult is a resolved place returned by a Geocoder.
type GeocodingResult struct {
	Coordinates      Coordinates
	FormattedAddress string
	Relevance        float64 // 0.0–1.0 provider confidence
}

// Geocoder resolves free-text addresses to coordinates.
type Geocoder interface {
	// Geocode returns a zero GeocodingResult (and no error) when nothing matches.
	Geocode(ctx context.Context, query string) (GeocodingResult, error)
}
