package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/shopspring/decimal"
)

// Target kinds.
const (
	TargetSQL      = "sql"
	TargetBigQuery = "bigquery"
	TargetFile     = "file"
)

// SQL drivers understood by the store package.
const (
	DriverPostgres  = "postgres"
	DriverSQLServer = "sqlserver"
)

// Config holds all configuration for a pipeline run.
// Values come from an optional YAML file; environment variables override YAML
// and CLI flags override both. Only the source path and the target connection
// string have to be provided, everything else has a default.
type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Target   TargetConfig   `yaml:"target"`
	BigQuery BigQueryConfig `yaml:"bigquery"`
	Quality  QualityConfig  `yaml:"quality"`
	Log      LogConfig      `yaml:"log"`

	// Timeout bounds a whole run.
	Timeout time.Duration `yaml:"timeout" env:"SALES_TIMEOUT" env-default:"10m"`
}

// SourceConfig describes where the batch comes from.
type SourceConfig struct {
	// Path is a local file or a gs://bucket/object URI.
	Path string `yaml:"path" env:"SALES_SOURCE_PATH"`
	// Format overrides extension detection: json, jsonl or csv.
	Format string `yaml:"format" env:"SALES_SOURCE_FORMAT" env-default:""`
	// Delimiter for delimited sources.
	Delimiter string `yaml:"delimiter" env:"SALES_SOURCE_DELIMITER" env-default:","`
}

// TargetConfig describes where cleaned records go.
type TargetConfig struct {
	Kind   string `yaml:"kind" env:"SALES_TARGET" env-default:"sql"`
	Driver string `yaml:"driver" env:"SALES_DB_DRIVER" env-default:"postgres"`
	// DSN is the connection string. Secret, so never read from YAML.
	DSN string `yaml:"-" env:"SALES_DB_DSN"`
	// OutputPath is the flat-file destination (local path or gs:// URI).
	OutputPath string `yaml:"output_path" env:"SALES_OUTPUT_PATH" env-default:"cleaned_transactions.csv"`
	BatchSize  int    `yaml:"batch_size" env:"SALES_BATCH_SIZE" env-default:"1000"`
	// AutoSchema provisions the schema before writing.
	AutoSchema bool `yaml:"auto_schema" env:"SALES_AUTO_SCHEMA" env-default:"false"`
}

// BigQueryConfig locates the warehouse dataset.
type BigQueryConfig struct {
	ProjectID string `yaml:"project_id" env:"SALES_BQ_PROJECT"`
	DatasetID string `yaml:"dataset_id" env:"SALES_BQ_DATASET" env-default:"sales"`
}

// QualityConfig holds the outlier thresholds for has_suspicious_values.
type QualityConfig struct {
	MaxQuantity   int64  `yaml:"max_quantity" env:"SALES_MAX_QUANTITY" env-default:"1000"`
	MinPrice      string `yaml:"min_price" env:"SALES_MIN_PRICE" env-default:"0.01"`
	MaxTotalValue string `yaml:"max_total_value" env:"SALES_MAX_TOTAL_VALUE" env-default:"100000"`
}

// LogConfig configures the run logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"SALES_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"SALES_LOG_FORMAT" env-default:"console"`
	File   string `yaml:"file" env:"SALES_LOG_FILE" env-default:""`
}

// Load reads configuration from path (if non-empty) with environment overrides,
// or from the environment alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.Target.Kind = strings.ToLower(strings.TrimSpace(cfg.Target.Kind))
	cfg.Target.Driver = strings.ToLower(strings.TrimSpace(cfg.Target.Driver))

	return cfg, nil
}

// Validate checks the settings needed for the configured target.
func (c *Config) Validate() error {
	if c.Source.Path == "" {
		return fmt.Errorf("source path is required")
	}
	if len(c.Source.Delimiter) != 1 {
		return fmt.Errorf("source delimiter must be a single character, got %q", c.Source.Delimiter)
	}
	if c.Target.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.Target.BatchSize)
	}
	if err := c.Quality.Validate(); err != nil {
		return err
	}
	return c.ValidateTarget()
}

// Validate checks that the decimal thresholds parse.
func (q QualityConfig) Validate() error {
	if _, err := decimal.NewFromString(q.MinPrice); err != nil {
		return fmt.Errorf("invalid min_price %q: %w", q.MinPrice, err)
	}
	if _, err := decimal.NewFromString(q.MaxTotalValue); err != nil {
		return fmt.Errorf("invalid max_total_value %q: %w", q.MaxTotalValue, err)
	}
	return nil
}

// ValidateTarget checks only the target settings, for commands that do not read a source.
func (c *Config) ValidateTarget() error {
	switch c.Target.Kind {
	case TargetSQL:
		if c.Target.Driver != DriverPostgres && c.Target.Driver != DriverSQLServer {
			return fmt.Errorf("unsupported driver %q (want %s or %s)", c.Target.Driver, DriverPostgres, DriverSQLServer)
		}
		if c.Target.DSN == "" {
			return fmt.Errorf("target connection string is required for the %s target", TargetSQL)
		}
	case TargetBigQuery:
		if c.BigQuery.ProjectID == "" {
			return fmt.Errorf("bigquery project id is required for the %s target", TargetBigQuery)
		}
	case TargetFile:
		if c.Target.OutputPath == "" {
			return fmt.Errorf("output path is required for the %s target", TargetFile)
		}
	default:
		return fmt.Errorf("unknown target %q", c.Target.Kind)
	}
	return nil
}

// MinPriceDecimal returns the parsed min_price threshold. Call Validate first.
func (q QualityConfig) MinPriceDecimal() decimal.Decimal {
	return decimal.RequireFromString(q.MinPrice)
}

// MaxTotalValueDecimal returns the parsed max_total_value threshold. Call Validate first.
func (q QualityConfig) MaxTotalValueDecimal() decimal.Decimal {
	return decimal.RequireFromString(q.MaxTotalValue)
}
