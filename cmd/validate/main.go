// Command validate checks a converted locations.json for internal
// consistency and, given the source CSV, that re-running the conversion
// reproduces it exactly.
//
// Usage:
//
//	go run ./cmd/validate -json public/data/locations.json
//	go run ./cmd/validate -json public/data/locations.json -csv locations.csv -config convert.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/rubbish-tips-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/rubbish-tips-etl/internal/config"
	"github.com/couchcryptid/rubbish-tips-etl/internal/directory"
	"github.com/couchcryptid/rubbish-tips-etl/internal/domain"
)

func main() {
	jsonPath := flag.String("json", "", "path to the converted locations.json")
	csvPath := flag.String("csv", "", "optional source CSV to re-convert and compare against")
	configPath := flag.String("config", "", "optional YAML file with column names")
	flag.Parse()

	if *jsonPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*jsonPath, *csvPath, *configPath); code != 0 {
		os.Exit(code)
	}
}

func run(jsonPath, csvPath, configPath string) int {
	fmt.Println("=== Rubbish Tip Directory Validation ===")
	fmt.Println()

	d, err := directory.Load(jsonPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	out := d.Output()

	phases := directory.Validate(out)
	if csvPath != "" {
		cols := domain.DefaultColumns()
		if configPath != "" {
			cfg, err := config.LoadWithFile(configPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
				return 1
			}
			cols = cfg.Columns
		}
		phases = append(phases, validateConversion(out, csvPath, cols))
	}

	return report(phases, out)
}

func report(phases []*directory.Phase, out domain.ConversionOutput) int {
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.Passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.Errors))
			allPassed = false
		} else if len(p.Warnings) > 0 {
			status = fmt.Sprintf("\033[33mPASS (%d warnings)\033[0m", len(p.Warnings))
		}
		fmt.Printf("  %-42s %s\n", p.Name, status)
	}

	fmt.Println()
	meta := out.Metadata
	fmt.Printf("Document: %d locations in %d cities, %d rejected rows, source %s, updated %s\n",
		meta.TotalLocations, meta.TotalCities, meta.TotalIssues, meta.Source, meta.LastUpdated)

	for _, p := range phases {
		if len(p.Errors) == 0 && len(p.Warnings) == 0 {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.Name)
		for i, e := range p.Errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
		for _, w := range p.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validateConversion re-runs the conversion pinned to the document's own
// timestamp and diffs the result against it.
func validateConversion(out domain.ConversionOutput, csvPath string, cols domain.Columns) *directory.Phase {
	p := &directory.Phase{Name: "Conversion parity (CSV vs JSON)"}
	fail := func(format string, args ...any) *directory.Phase {
		p.Errors = append(p.Errors, fmt.Sprintf(format, args...))
		return p
	}

	generated, err := time.Parse(time.RFC3339, out.Metadata.LastUpdated)
	if err != nil {
		return fail("cannot pin clock: lastUpdated %q: %v", out.Metadata.LastUpdated, err)
	}
	domain.SetClock(clockwork.NewFakeClockAt(generated))
	defer domain.SetClock(nil)

	doc, err := csvfile.NewReader(csvPath).Extract(context.Background())
	if err != nil {
		return fail("read %s: %v", csvPath, err)
	}
	res, err := domain.Convert(doc, cols.Merge(domain.DefaultColumns()))
	if err != nil {
		return fail("convert %s: %v", csvPath, err)
	}

	if diff := cmp.Diff(out, res.Output); diff != "" {
		return fail("re-converted output differs (-json +csv):\n%s", diff)
	}
	return p
}
