package main

import (
	"github.com/dvloznov/sales-pipeline/internal/config"
	"github.com/dvloznov/sales-pipeline/internal/extract"
	"github.com/dvloznov/sales-pipeline/internal/gcsuploader"
	"github.com/dvloznov/sales-pipeline/internal/logger"
	"github.com/dvloznov/sales-pipeline/internal/report"
	"github.com/spf13/cobra"
)

func newReportCmd(global *globalOptions) *cobra.Command {
	var kind, driver, dsn, out, variant string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run the regional, top products and monthly reports",
		Long: `Run the three sales reports against the configured target.
For the file target the reports are computed from the flat file.

Examples:
  cli report --dsn postgres://localhost/sales
  cli report --target bigquery --variant basic
  cli report --target file --out cleaned.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			applyTargetFlags(cmd, cfg, kind, driver, dsn, out)
			if err := cfg.ValidateTarget(); err != nil {
				return err
			}
			if cfg.Target.Kind == config.TargetFile {
				if err := cfg.Quality.Validate(); err != nil {
					return err
				}
			}
			v, err := report.ParseVariant(variant)
			if err != nil {
				return err
			}
			return runReport(cmd, cfg, v)
		},
	}

	f := cmd.Flags()
	f.StringVar(&kind, "target", "", "Target: sql, bigquery or file")
	f.StringVar(&driver, "driver", "", "SQL driver: postgres or sqlserver")
	f.StringVar(&dsn, "dsn", "", "SQL connection string")
	f.StringVar(&out, "out", "", "Flat file to report on (file target)")
	f.StringVar(&variant, "variant", "", "Regional report variant: optimized or basic")

	return cmd
}

func runReport(cmd *cobra.Command, cfg *config.Config, variant report.Variant) error {
	ctx, cleanup, err := runContext(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	log := logger.FromContext(ctx)

	var reporter report.Reporter
	if cfg.Target.Kind == config.TargetFile {
		loader := extract.NewLoader(gcsuploader.NewGCSStorageService(), extract.Options{Format: extract.FormatCSV})
		raw, err := loader.Load(ctx, cfg.Target.OutputPath)
		if err != nil {
			return err
		}
		batch, _ := newTransformer(cfg).TransformBatch(raw)
		reporter = report.NewMemoryReporter(batch)
	} else {
		tgt, err := openTarget(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := tgt.close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close target")
			}
		}()
		reporter = tgt.reporter
	}

	reports, err := report.Run(ctx, reporter, variant)
	if err != nil {
		return err
	}
	report.Render(cmd.OutOrStdout(), reports)
	return nil
}
