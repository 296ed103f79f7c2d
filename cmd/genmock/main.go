// Command genmock generates a synthetic rubbish tip CSV export and the
// directory JSON converted from it. The JSON is produced by the real domain
// package under a fixed clock, so both files are reproducible fixtures for
// the directory service and its tests.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -csv-out data/mock/locations.csv \
//	  -json-out data/mock/locations.json \
//	  -per-city 3
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/rubbish-tips-etl/internal/domain"
)

var generatedAt = time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)

// siteKind is one template for a generated facility.
type siteKind struct {
	suffix    string
	category  string
	materials string
	hours     string
	offsetLat float64
	offsetLng float64
}

var kinds = []siteKind{
	{suffix: "Resource Recovery Centre", category: "Recycling Centre", materials: "Recycling|E-Waste|Batteries",
		hours: "Mon-Fri 7:00am-4:00pm", offsetLat: 0.05, offsetLng: 0.04},
	{suffix: "Transfer Station", category: "Transfer Station", materials: "General Waste|Green Waste",
		hours: "Mon-Sun 8:00am-5:00pm", offsetLat: -0.08, offsetLng: 0.06},
	{suffix: "Landfill", category: "Landfill", materials: "",
		hours: "", offsetLat: 0.12, offsetLng: -0.10},
	{suffix: "Community Recycling Depot", category: "", materials: "Recycling|Paint|Oil",
		hours: "Sat-Sun 9:00am-3:00pm", offsetLat: -0.03, offsetLng: -0.07},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvOut := flag.String("csv-out", "", "output path for the generated CSV export")
	jsonOut := flag.String("json-out", "", "output path for the converted directory JSON")
	perCity := flag.Int("per-city", 3, "facilities generated per capital city (1-4)")
	flag.Parse()

	if *csvOut == "" || *jsonOut == "" || *perCity < 1 || *perCity > len(kinds) {
		flag.Usage()
		return fmt.Errorf("missing or invalid flags: -csv-out, -json-out, -per-city")
	}

	data, err := generateCSV(*perCity)
	if err != nil {
		return fmt.Errorf("generate csv: %w", err)
	}
	if err := writeFile(*csvOut, data); err != nil {
		return fmt.Errorf("writing CSV fixture: %w", err)
	}
	log.Printf("wrote CSV fixture: %s", *csvOut)

	domain.SetClock(clockwork.NewFakeClockAt(generatedAt))
	defer domain.SetClock(nil)

	res, err := domain.Convert(domain.SourceDocument{
		Name:    filepath.Base(*csvOut),
		Content: string(data),
	}, domain.DefaultColumns())
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}

	out, err := json.MarshalIndent(res.Output, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFile(*jsonOut, append(out, '\n')); err != nil {
		return fmt.Errorf("writing JSON fixture: %w", err)
	}
	log.Printf("wrote JSON fixture: %s", *jsonOut)

	printStats(res)
	return nil
}

// generateCSV builds perCity facilities around each capital plus two rows
// that the converter must reject.
func generateCSV(perCity int) ([]byte, error) {
	cols := domain.DefaultColumns()
	header := []string{
		cols.Title, cols.Lat, cols.Lng, cols.Content, cols.City, cols.Province,
		cols.Categories, cols.AcceptedMaterials, cols.Street, cols.Zip, cols.Permalink, cols.Region,
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for ci, c := range domain.Cities() {
		for ki := 0; ki < perCity; ki++ {
			k := kinds[ki]
			name := fmt.Sprintf("%s %s", c.Name, k.suffix)
			content := fmt.Sprintf("Phone: (0%d) 9%03d %04d.", 2+ci%7, 100+ci*10+ki, 1000+ki*111)
			if k.hours != "" {
				content += " Open " + k.hours + "."
			}
			row := []string{
				name,
				fmt.Sprintf("%.4f", c.Coordinates.Lat+k.offsetLat),
				fmt.Sprintf("%.4f", c.Coordinates.Lng+k.offsetLng),
				content,
				c.Name,
				c.State,
				k.category,
				k.materials,
				fmt.Sprintf("%d Depot Road", 10+ki*5),
				fmt.Sprintf("%d", 2000+ci*1000+ki),
				"https://example.com/tips/" + domain.Slugify(name),
				"Metro",
			}
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}

	rejects := [][]string{
		{"Nowhere Depot", "0", "0", "", "", "", "", "", "", "", "", ""},
		{"", "-33.9", "151.1", "No name on this row", "Sydney", "NSW", "", "", "", "", "", ""},
	}
	for _, r := range rejects {
		if err := w.Write(r); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func printStats(res domain.ConversionResult) {
	meta := res.Output.Metadata
	fmt.Printf("\nlocations: %d  cities: %d  issues: %d\n", meta.TotalLocations, meta.TotalCities, meta.TotalIssues)
	for _, g := range res.Output.Cities {
		fmt.Printf("  %-10s %d\n", g.Slug, len(g.Locations))
	}
	for _, is := range res.Issues {
		fmt.Printf("  rejected row %d: %s\n", is.Row, is.Issue)
	}
}
