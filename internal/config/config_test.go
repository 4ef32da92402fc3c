package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SALES_SOURCE_PATH", "data/sales.json")
	t.Setenv("SALES_DB_DSN", "postgres://etl@localhost/sales_db")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data/sales.json", cfg.Source.Path)
	assert.Equal(t, ",", cfg.Source.Delimiter)
	assert.Equal(t, TargetSQL, cfg.Target.Kind)
	assert.Equal(t, DriverPostgres, cfg.Target.Driver)
	assert.Equal(t, 1000, cfg.Target.BatchSize)
	assert.Equal(t, "sales", cfg.BigQuery.DatasetID)
	assert.Equal(t, int64(1000), cfg.Quality.MaxQuantity)
	assert.Equal(t, 10*time.Minute, cfg.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
source:
  path: "from-yaml.json"
target:
  kind: "SQL"
  driver: "sqlserver"
  batch_size: 250
quality:
  min_price: "0.05"
log:
  level: debug
`)
	t.Setenv("SALES_SOURCE_PATH", "from-env.csv")
	t.Setenv("SALES_DB_DSN", "sqlserver://sa:pw@localhost:1433?database=sales_db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env.csv", cfg.Source.Path)
	assert.Equal(t, TargetSQL, cfg.Target.Kind)
	assert.Equal(t, DriverSQLServer, cfg.Target.Driver)
	assert.Equal(t, 250, cfg.Target.BatchSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, decimal.RequireFromString("0.05").Equal(cfg.Quality.MinPriceDecimal()))
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Source:   SourceConfig{Path: "sales.json", Delimiter: ","},
			Target:   TargetConfig{Kind: TargetSQL, Driver: DriverPostgres, DSN: "postgres://x", BatchSize: 1000},
			BigQuery: BigQueryConfig{DatasetID: "sales"},
			Quality:  QualityConfig{MaxQuantity: 1000, MinPrice: "0.01", MaxTotalValue: "100000"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "no source", mutate: func(c *Config) { c.Source.Path = "" }, wantErr: "source path is required"},
		{name: "bad delimiter", mutate: func(c *Config) { c.Source.Delimiter = ";;" }, wantErr: "single character"},
		{name: "zero batch", mutate: func(c *Config) { c.Target.BatchSize = 0 }, wantErr: "batch size"},
		{name: "bad min price", mutate: func(c *Config) { c.Quality.MinPrice = "cheap" }, wantErr: "min_price"},
		{name: "bad max total value", mutate: func(c *Config) { c.Quality.MaxTotalValue = "" }, wantErr: "max_total_value"},
		{name: "unknown driver", mutate: func(c *Config) { c.Target.Driver = "mysql" }, wantErr: "unsupported driver"},
		{name: "missing dsn", mutate: func(c *Config) { c.Target.DSN = "" }, wantErr: "connection string"},
		{name: "bigquery without project", mutate: func(c *Config) { c.Target.Kind = TargetBigQuery }, wantErr: "project id"},
		{name: "file target", mutate: func(c *Config) { c.Target.Kind = TargetFile; c.Target.OutputPath = "out.csv" }},
		{name: "unknown target", mutate: func(c *Config) { c.Target.Kind = "kafka" }, wantErr: "unknown target"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestQualityConfig_Validate(t *testing.T) {
	q := QualityConfig{MinPrice: "0.01", MaxTotalValue: "100000"}
	require.NoError(t, q.Validate())

	q.MinPrice = "abc"
	err := q.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid min_price "abc"`)
}
