// Command convert turns the rubbish tip CSV export into the directory JSON
// document, then feeds the same result to any configured extra sinks.
//
// Usage:
//
//	convert --input locations.csv --output public/data/locations.json
//	convert --config convert.yaml --sqlite tips.db
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/rubbish-tips-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/rubbish-tips-etl/internal/adapter/jsonfile"
	kafkaadapter "github.com/couchcryptid/rubbish-tips-etl/internal/adapter/kafka"
	"github.com/couchcryptid/rubbish-tips-etl/internal/adapter/postgres"
	"github.com/couchcryptid/rubbish-tips-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/rubbish-tips-etl/internal/config"
	"github.com/couchcryptid/rubbish-tips-etl/internal/observability"
	"github.com/couchcryptid/rubbish-tips-etl/internal/pipeline"
)

const pushJob = "rubbish-tips-convert"

var (
	configFile  string
	inputPath   string
	outputPath  string
	backupDir   string
	issuesPath  string
	sqlitePath  string
	postgresDSN string
)

var rootCmd = &cobra.Command{
	Use:           "convert",
	Short:         "Convert the rubbish tip CSV export into the directory JSON",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if configFile == "" {
			configFile = os.Getenv("CONFIG_FILE")
		}
		cfg, err := config.LoadWithFile(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		applyFlags(cmd, cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return run(ctx, cfg)
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "YAML file with paths and column names (default $CONFIG_FILE)")
	rootCmd.Flags().StringVar(&inputPath, "input", "", "CSV export to read (default $INPUT_PATH or locations.csv)")
	rootCmd.Flags().StringVar(&outputPath, "output", "", "directory JSON to write (default $OUTPUT_PATH)")
	rootCmd.Flags().StringVar(&backupDir, "backup-dir", "", "directory for the dated backup copy (default $BACKUP_DIR)")
	rootCmd.Flags().StringVar(&issuesPath, "issues", "", "rejected-row report path (default $ISSUES_PATH)")
	rootCmd.Flags().StringVar(&sqlitePath, "sqlite", "", "also export a SQLite snapshot to this path")
	rootCmd.Flags().StringVar(&postgresDSN, "postgres-dsn", "", "also replace the waste_locations table in this database")
}

// applyFlags lets explicitly set flags win over environment and file values.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	overrides := []struct {
		flag  string
		value string
		dst   *string
	}{
		{"input", inputPath, &cfg.InputPath},
		{"output", outputPath, &cfg.OutputPath},
		{"backup-dir", backupDir, &cfg.BackupDir},
		{"issues", issuesPath, &cfg.IssuesPath},
		{"sqlite", sqlitePath, &cfg.SQLitePath},
		{"postgres-dsn", postgresDSN, &cfg.PostgresDSN},
	}
	for _, o := range overrides {
		if cmd.Flags().Changed(o.flag) {
			*o.dst = o.value
		}
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	loaders := []pipeline.Loader{
		jsonfile.NewWriter(jsonfile.Config{
			OutputPath: cfg.OutputPath,
			BackupDir:  cfg.BackupDir,
			IssuesPath: cfg.IssuesPath,
		}, logger),
	}

	if cfg.SQLitePath != "" {
		w, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return err
		}
		defer closeWith(logger, "sqlite", w.Close)
		loaders = append(loaders, w)
	}

	if cfg.PostgresDSN != "" {
		w, err := postgres.NewWriter(ctx, cfg.PostgresDSN, logger)
		if err != nil {
			return err
		}
		defer w.Close()
		if err := w.EnsureSchema(ctx); err != nil {
			return err
		}
		loaders = append(loaders, w)
	}

	if cfg.KafkaEnabled {
		w := kafkaadapter.NewWriter(cfg, logger)
		defer closeWith(logger, "kafka", w.Close)
		loaders = append(loaders, w)
	}

	p := pipeline.New(
		csvfile.NewReader(cfg.InputPath),
		pipeline.NewConverter(cfg.Columns, logger),
		loaders,
		logger,
		metrics,
	)

	_, runErr := p.Run(ctx)

	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(context.WithoutCancel(ctx), cfg.PushgatewayURL, pushJob); err != nil {
			logger.Warn("metrics push failed", "url", cfg.PushgatewayURL, "error", err)
		}
	}
	return runErr
}

func closeWith(logger *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Error("close failed", "loader", name, "error", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("conversion failed", "error", err)
		os.Exit(1)
	}
}
