package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/dvloznov/sales-pipeline/internal/config"
	"github.com/dvloznov/sales-pipeline/internal/domain"
	"github.com/dvloznov/sales-pipeline/internal/logger"
	"github.com/dvloznov/sales-pipeline/internal/pipeline"
	"github.com/dvloznov/sales-pipeline/internal/report"
	"github.com/dvloznov/sales-pipeline/internal/transform"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type ingestOptions struct {
	source     string
	format     string
	delimiter  string
	target     string
	driver     string
	dsn        string
	out        string
	batchSize  int
	autoSchema bool
	report     bool
	variant    string
}

func newIngestCmd(global *globalOptions) *cobra.Command {
	opts := &ingestOptions{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load one batch of raw sales records into the target",
		Long: `Extract, clean and load one batch, then optionally run the reports.

Examples:
  cli ingest --source sales.json --dsn postgres://localhost/sales
  cli ingest --source gs://bucket/batch.jsonl --target bigquery
  cli ingest --source sales.csv --target file --out cleaned.csv --report`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			opts.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runIngest(cmd, cfg, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.source, "source", "", "Batch source: local path or gs://bucket/object")
	f.StringVar(&opts.format, "format", "", "Source format: json, jsonl, csv or tsv (default: by extension)")
	f.StringVar(&opts.delimiter, "delimiter", "", "Field delimiter for csv sources")
	f.StringVar(&opts.target, "target", "", "Target: sql, bigquery or file")
	f.StringVar(&opts.driver, "driver", "", "SQL driver: postgres or sqlserver")
	f.StringVar(&opts.dsn, "dsn", "", "SQL connection string")
	f.StringVar(&opts.out, "out", "", "Flat-file output path (file target)")
	f.IntVar(&opts.batchSize, "batch-size", 0, "Rows per insert statement")
	f.BoolVar(&opts.autoSchema, "auto-schema", false, "Provision the schema before loading")
	f.BoolVar(&opts.report, "report", false, "Run the reports after loading")
	f.StringVar(&opts.variant, "variant", "", "Regional report variant: optimized or basic")

	return cmd
}

// apply overrides config values with the flags set on the command line.
func (o *ingestOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("source") {
		cfg.Source.Path = o.source
	}
	if f.Changed("format") {
		cfg.Source.Format = o.format
	}
	if f.Changed("delimiter") {
		cfg.Source.Delimiter = o.delimiter
	}
	applyTargetFlags(cmd, cfg, o.target, o.driver, o.dsn, o.out)
	if f.Changed("batch-size") {
		cfg.Target.BatchSize = o.batchSize
	}
	if f.Changed("auto-schema") {
		cfg.Target.AutoSchema = o.autoSchema
	}
}

func applyTargetFlags(cmd *cobra.Command, cfg *config.Config, kind, driver, dsn, out string) {
	f := cmd.Flags()
	if f.Changed("target") {
		cfg.Target.Kind = kind
	}
	if f.Changed("driver") {
		cfg.Target.Driver = driver
	}
	if f.Changed("dsn") {
		cfg.Target.DSN = dsn
	}
	if f.Changed("out") {
		cfg.Target.OutputPath = out
	}
}

func runIngest(cmd *cobra.Command, cfg *config.Config, opts *ingestOptions) error {
	variant, err := report.ParseVariant(opts.variant)
	if err != nil {
		return err
	}

	ctx, cleanup, err := runContext(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	log := logger.FromContext(ctx)

	loader, err := newLoader(cfg)
	if err != nil {
		return err
	}

	tgt, err := openTarget(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := tgt.close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close target")
		}
	}()

	log.Info().
		Str("source", cfg.Source.Path).
		Str("target", cfg.Target.Kind).
		Msg("Starting ingestion")

	state, err := pipeline.IngestBatch(ctx, pipeline.Deps{
		Loader:      loader,
		Transformer: newTransformer(cfg),
		Writer:      tgt.writer,
		Runs:        tgt.runs,
		Report:      opts.report,
		Reporter:    tgt.reporter,
		Variant:     variant,
	}, cfg.Source.Path)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	out := cmd.OutOrStdout()
	printSummary(out, state.RunID, state.Summary)
	if state.Reports != nil {
		report.Render(out, *state.Reports)
	}
	return nil
}

func printSummary(w io.Writer, runID string, s transform.Summary) {
	fmt.Fprintf(w, "\nLoad run %s\n", runID)
	fmt.Fprintf(w, "  Records:  %d total, %s, %s\n",
		s.TotalRecords,
		color.GreenString("%d loaded", s.LoadedRecords),
		countColor(s.SkippedRecords)("%d skipped", s.SkippedRecords))

	issues := []struct {
		label string
		n     int
	}{
		{"Missing customer", s.MissingCustomer},
		{"Negative quantity", s.NegativeQuantity},
		{"Date format issue", s.DateFormatIssue},
		{"Suspicious values", s.SuspiciousValues},
		{"Duplicate transaction ids", s.DuplicateTransactionIDs},
		{"Missing product info", s.MissingProductInfo},
		{"Invalid prices", s.InvalidPrices},
		{"Product price conflicts", s.ProductPriceConflicts},
	}
	for _, issue := range issues {
		fmt.Fprintf(w, "  %-26s %s\n", issue.label+":", countColor(issue.n)("%d", issue.n))
	}
	reasons := make([]string, 0, len(s.SkipReasons))
	for reason := range s.SkipReasons {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		n := s.SkipReasons[domain.SkipReason(reason)]
		fmt.Fprintf(w, "  %-26s %s\n", "Skipped ("+reason+"):", color.RedString("%d", n))
	}

	if s.HasIssues() {
		fmt.Fprintln(w, color.YellowString("Data quality issues found."))
	} else {
		fmt.Fprintln(w, color.GreenString("No data quality issues."))
	}
}

func countColor(n int) func(format string, a ...interface{}) string {
	if n == 0 {
		return color.GreenString
	}
	return color.YellowString
}
