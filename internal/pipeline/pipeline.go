package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/rubbish-tips-etl/internal/domain"
	"github.com/couchcryptid/rubbish-tips-etl/internal/observability"
)

// Extractor reads the raw CSV document.
type Extractor interface {
	Extract(ctx context.Context) (domain.SourceDocument, error)
}

// Transformer turns the raw document into the directory document.
type Transformer interface {
	Transform(ctx context.Context, doc domain.SourceDocument) (domain.ConversionResult, error)
}

// Loader persists a conversion result somewhere.
type Loader interface {
	Name() string
	Load(ctx context.Context, res domain.ConversionResult) error
}

// sampleIssues is how many rejected rows the run summary lists.
const sampleIssues = 3

// Pipeline runs one extract-transform-load pass.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loaders     []Loader
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// New creates a Pipeline. Loaders run in the order given.
func New(e Extractor, t Transformer, loaders []Loader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loaders:     loaders,
		logger:      logger,
		metrics:     metrics,
	}
}

// Run extracts, converts and loads once. Any extract, convert or load error
// ends the run; loaders after a failed one are not called.
func (p *Pipeline) Run(ctx context.Context) (domain.ConversionResult, error) {
	start := time.Now()

	doc, err := p.extractor.Extract(ctx)
	if err != nil {
		return domain.ConversionResult{}, fmt.Errorf("extract: %w", err)
	}
	p.logger.Info("input read", "source", doc.Name, "bytes", len(doc.Content))

	res, err := p.transformer.Transform(ctx, doc)
	if err != nil {
		return res, fmt.Errorf("convert %s: %w", doc.Name, err)
	}
	p.metrics.ConversionDuration.Observe(time.Since(start).Seconds())
	p.record(res)
	p.summarize(res)

	for _, l := range p.loaders {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		loadStart := time.Now()
		if err := l.Load(ctx, res); err != nil {
			p.logger.Error("loader failed", "loader", l.Name(), "error", err)
			return res, fmt.Errorf("load %s: %w", l.Name(), err)
		}
		p.metrics.LoaderDuration.WithLabelValues(l.Name()).Observe(time.Since(loadStart).Seconds())
		p.logger.Info("loader finished", "loader", l.Name(), "duration", time.Since(loadStart))
	}

	p.logger.Info("conversion complete", "duration", time.Since(start))
	return res, nil
}

func (p *Pipeline) record(res domain.ConversionResult) {
	p.metrics.RowsParsed.Add(float64(res.RowsParsed))
	p.metrics.LocationsConverted.Add(float64(res.Output.Metadata.TotalLocations))
	for _, issue := range res.Issues {
		p.metrics.RowsRejected.WithLabelValues(issue.Issue).Inc()
	}
	p.metrics.CityLocations.Reset()
	for _, g := range res.Output.Cities {
		p.metrics.CityLocations.WithLabelValues(g.Slug).Set(float64(len(g.Locations)))
	}
	p.metrics.SlugCollisions.Add(float64(len(res.SlugCollisions)))
}

func (p *Pipeline) summarize(res domain.ConversionResult) {
	meta := res.Output.Metadata
	p.logger.Info("rows processed",
		"rows", res.RowsParsed,
		"locations", meta.TotalLocations,
		"cities", meta.TotalCities,
		"issues", meta.TotalIssues,
		"static_routes", len(res.Output.StaticParams),
	)

	for i, issue := range res.Issues {
		if i == sampleIssues {
			p.logger.Info("more issues not shown", "count", len(res.Issues)-sampleIssues)
			break
		}
		p.logger.Info("sample issue", "row", issue.Row, "name", issue.Name, "issue", issue.Issue)
	}

	for _, g := range res.Output.Cities {
		p.logger.Info("city distribution", "city", g.Name, "slug", g.Slug, "locations", len(g.Locations))
	}

	for _, c := range res.SlugCollisions {
		p.logger.Warn("slug collision", "city", c.City, "slug", c.Slug, "ids", c.IDs)
	}
}
