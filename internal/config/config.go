package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/rubbish-tips-etl/internal/domain"
)

// Config holds all converter and directory-service settings, populated from
// environment variables with an optional YAML file underneath.
type Config struct {
	InputPath  string
	OutputPath string
	BackupDir  string
	IssuesPath string
	Columns    domain.Columns

	// Optional sinks; each is skipped when unset.
	SQLitePath     string
	PostgresDSN    string
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaEnabled   bool
	PushgatewayURL string

	HTTPAddr        string
	DataPath        string
	WatchEnabled    bool
	ShutdownTimeout time.Duration
	NearbyRadiusKm  float64
	NearbyLimit     int

	LogLevel  string
	LogFormat string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// fileConfig is the YAML overlay. Environment variables win over it.
type fileConfig struct {
	InputPath  string         `yaml:"input_path"`
	OutputPath string         `yaml:"output_path"`
	BackupDir  string         `yaml:"backup_dir"`
	IssuesPath string         `yaml:"issues_path"`
	SQLitePath string         `yaml:"sqlite_path"`
	KafkaTopic string         `yaml:"kafka_topic"`
	DataPath   string         `yaml:"data_path"`
	HTTPAddr   string         `yaml:"http_addr"`
	Columns    domain.Columns `yaml:"columns"`
}

const (
	defaultInputPath   = "locations.csv"
	defaultOutputPath  = "public/data/locations.json"
	defaultBackupDir   = "."
	defaultIssuesPath  = "processing-issues.json"
	defaultKafkaTopic  = "waste-facilities"
	defaultHTTPAddr    = ":8080"
	defaultRadiusKm    = 25.0
	defaultNearbyLimit = 20
	defaultCacheSize   = 1000
)

// Load reads configuration from the environment, layered over the YAML file
// named by CONFIG_FILE when that is set.
func Load() (*Config, error) {
	return LoadWithFile(os.Getenv("CONFIG_FILE"))
}

// LoadWithFile is Load with an explicit overlay path. An empty path means no file.
func LoadWithFile(path string) (*Config, error) {
	var fc fileConfig
	if path != "" {
		var err error
		if fc, err = loadFileConfig(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s"))
	if err != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	radius, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("NEARBY_RADIUS_KM", strconv.FormatFloat(defaultRadiusKm, 'f', -1, 64)), 64)
	if err != nil || radius <= 0 {
		return nil, errors.New("invalid NEARBY_RADIUS_KM")
	}

	limit, err := strconv.Atoi(sharedcfg.EnvOrDefault("NEARBY_LIMIT", strconv.Itoa(defaultNearbyLimit)))
	if err != nil || limit <= 0 {
		return nil, errors.New("invalid NEARBY_LIMIT")
	}

	watch, err := parseBool("WATCH_ENABLED", true)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", len(brokers) > 0)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled, err := parseBool("MAPBOX_ENABLED", mapboxToken != "")
	if err != nil {
		return nil, err
	}

	outputPath := firstNonEmpty(os.Getenv("OUTPUT_PATH"), fc.OutputPath, defaultOutputPath)

	cfg := &Config{
		InputPath:  firstNonEmpty(os.Getenv("INPUT_PATH"), fc.InputPath, defaultInputPath),
		OutputPath: outputPath,
		BackupDir:  firstNonEmpty(os.Getenv("BACKUP_DIR"), fc.BackupDir, defaultBackupDir),
		IssuesPath: firstNonEmpty(os.Getenv("ISSUES_PATH"), fc.IssuesPath, defaultIssuesPath),
		Columns:    fc.Columns.Merge(domain.DefaultColumns()),

		SQLitePath:     firstNonEmpty(os.Getenv("SQLITE_PATH"), fc.SQLitePath),
		PostgresDSN:    os.Getenv("POSTGRES_DSN"),
		KafkaBrokers:   brokers,
		KafkaTopic:     firstNonEmpty(os.Getenv("KAFKA_TOPIC"), fc.KafkaTopic, defaultKafkaTopic),
		KafkaEnabled:   kafkaEnabled,
		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),

		HTTPAddr:        firstNonEmpty(os.Getenv("HTTP_ADDR"), fc.HTTPAddr, defaultHTTPAddr),
		DataPath:        firstNonEmpty(os.Getenv("DATA_PATH"), fc.DataPath, outputPath),
		WatchEnabled:    watch,
		ShutdownTimeout: shutdownTimeout,
		NearbyRadiusKm:  radius,
		NearbyLimit:     limit,

		LogLevel:  sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse yaml: %w", err)
	}
	return fc, nil
}

func parseBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", key, v)
	}
	return b, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return defaultCacheSize
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
