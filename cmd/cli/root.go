package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dvloznov/sales-pipeline/internal/config"
	"github.com/dvloznov/sales-pipeline/internal/logger"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "cli",
		Short: "Sales pipeline: load raw sales batches and report on them",
		Long: `Extracts a batch of raw sales records, cleans them with data-quality flags,
loads them into customers/products/transactions and runs the sales reports.

Targets:
  sql       Postgres or SQL Server (--driver postgres|sqlserver)
  bigquery  BigQuery dataset
  file      CSV snapshot of the cleaned transactions (local or gs://)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (environment variables override it)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format (console or json)")

	root.AddCommand(
		newIngestCmd(opts),
		newReportCmd(opts),
		newSchemaCmd(opts),
		newUploadCmd(opts),
	)
	return root
}

// loadConfig reads the config file and environment, then applies the global flags.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	return cfg, nil
}

// runContext builds the logger and a context bounded by the configured timeout.
// The returned cleanup must be called when the command is done.
func runContext(parent context.Context, cfg *config.Config) (context.Context, func(), error) {
	log, closer, err := logger.NewWithOptions(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, nil, err
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, cfg.Timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	ctx = logger.WithContext(ctx, log)

	return ctx, func() {
		cancel()
		closeQuietly(closer)
	}, nil
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		fmt.Printf("warning: close: %v\n", err)
	}
}
