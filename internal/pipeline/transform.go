package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/rubbish-tips-etl/internal/domain"
)

// Converter implements Transformer with domain.Convert and a fixed column mapping.
type Converter struct {
	columns domain.Columns
	logger  *slog.Logger
}

// NewConverter creates a Converter. Empty column names fall back to
// domain.DefaultColumns.
func NewConverter(columns domain.Columns, logger *slog.Logger) *Converter {
	return &Converter{
		columns: columns.Merge(domain.DefaultColumns()),
		logger:  logger,
	}
}

func (c *Converter) Transform(_ context.Context, doc domain.SourceDocument) (domain.ConversionResult, error) {
	res, err := domain.Convert(doc, c.columns)
	if err != nil {
		return res, err
	}

	for _, issue := range res.Issues {
		c.logger.Debug("row skipped", "row", issue.Row, "name", issue.Name, "issue", issue.Issue)
	}
	return res, nil
}
