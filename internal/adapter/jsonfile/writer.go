// Package jsonfile writes the directory document, its dated backup and the
// issues report as pretty-printed JSON files.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/rubbish-tips-etl/internal/domain"
)

// Config names the files the writer produces.
type Config struct {
	OutputPath string
	BackupDir  string
	IssuesPath string
}

// Writer is the primary pipeline loader.
type Writer struct {
	cfg    Config
	logger *slog.Logger
}

// NewWriter creates a Writer for the given paths.
func NewWriter(cfg Config, logger *slog.Logger) *Writer {
	return &Writer{cfg: cfg, logger: logger}
}

// Name identifies the loader in logs and metrics.
func (w *Writer) Name() string { return "json" }

// BackupPath returns the dated backup file name for a run at res.GeneratedAt.
func (w *Writer) BackupPath(res domain.ConversionResult) string {
	name := fmt.Sprintf("locations-backup-%s.json", res.GeneratedAt.UTC().Format("2006-01-02"))
	return filepath.Join(w.cfg.BackupDir, name)
}

// Load writes the primary file, then the backup with identical bytes, then the
// issues report when there are issues. The first failure aborts.
func (w *Writer) Load(_ context.Context, res domain.ConversionResult) error {
	doc, err := marshalIndent(res.Output)
	if err != nil {
		return fmt.Errorf("encode directory: %w", err)
	}

	if err := writeFile(w.cfg.OutputPath, doc); err != nil {
		return err
	}
	w.logger.Info("directory written", "path", w.cfg.OutputPath, "bytes", len(doc))

	backup := w.BackupPath(res)
	if err := writeFile(backup, doc); err != nil {
		return err
	}
	w.logger.Info("backup written", "path", backup)

	if len(res.Issues) == 0 {
		return nil
	}
	report, err := marshalIndent(res.Issues)
	if err != nil {
		return fmt.Errorf("encode issues: %w", err)
	}
	if err := writeFile(w.cfg.IssuesPath, report); err != nil {
		return err
	}
	w.logger.Info("issues report written", "path", w.cfg.IssuesPath, "issues", len(res.Issues))
	return nil
}

// marshalIndent encodes v with two-space indentation, leaving <, > and &
// unescaped and no trailing newline.
func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory for %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
