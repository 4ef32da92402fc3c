package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/sales-pipeline/internal/config"
	"github.com/dvloznov/sales-pipeline/internal/extract"
	"github.com/dvloznov/sales-pipeline/internal/flatfile"
	"github.com/dvloznov/sales-pipeline/internal/gcsuploader"
	infraBQ "github.com/dvloznov/sales-pipeline/internal/infra/bigquery"
	"github.com/dvloznov/sales-pipeline/internal/logger"
	"github.com/dvloznov/sales-pipeline/internal/pipeline"
	"github.com/dvloznov/sales-pipeline/internal/report"
	"github.com/dvloznov/sales-pipeline/internal/store"
	"github.com/dvloznov/sales-pipeline/internal/transform"
)

// target bundles the collaborators of one configured destination.
type target struct {
	writer   pipeline.Writer
	runs     pipeline.RunTracker
	reporter report.Reporter // nil reports over the in-memory batch
	close    func() error
}

func openTarget(ctx context.Context, cfg *config.Config) (*target, error) {
	log := logger.FromContext(ctx)

	switch cfg.Target.Kind {
	case config.TargetSQL:
		dialect, err := store.ParseDialect(cfg.Target.Driver)
		if err != nil {
			return nil, err
		}
		if cfg.Target.AutoSchema {
			if err := store.ProvisionSchema(ctx, dialect, cfg.Target.DSN); err != nil {
				return nil, err
			}
		}
		db, err := store.Open(ctx, dialect, cfg.Target.DSN)
		if err != nil {
			return nil, err
		}
		st := store.New(db, dialect, cfg.Target.BatchSize)
		log.Debug().Str("driver", string(dialect)).Msg("Opened SQL target")
		return &target{
			writer:   st,
			runs:     st,
			reporter: report.NewSQLReporter(st.DB(), st.Dialect()),
			close:    st.Close,
		}, nil

	case config.TargetBigQuery:
		wh, err := infraBQ.NewWarehouse(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.DatasetID, cfg.Target.BatchSize)
		if err != nil {
			return nil, err
		}
		if cfg.Target.AutoSchema {
			if err := wh.EnsureTables(ctx); err != nil {
				wh.Close()
				return nil, err
			}
		}
		log.Debug().Str("dataset_id", cfg.BigQuery.DatasetID).Msg("Opened BigQuery target")
		return &target{writer: wh, runs: wh, reporter: wh, close: wh.Close}, nil

	case config.TargetFile:
		return &target{
			writer: flatfile.NewWriter(cfg.Target.OutputPath, gcsuploader.NewGCSStorageService()),
			runs:   pipeline.NoopRunTracker{},
			close:  func() error { return nil },
		}, nil
	}
	return nil, fmt.Errorf("unknown target %q", cfg.Target.Kind)
}

func newLoader(cfg *config.Config) (*extract.Loader, error) {
	format, err := extract.ParseFormat(cfg.Source.Format)
	if err != nil {
		return nil, err
	}
	delimiter := ','
	switch {
	case strings.EqualFold(cfg.Source.Format, "tsv"):
		delimiter = '\t'
	case cfg.Source.Delimiter != "":
		delimiter = []rune(cfg.Source.Delimiter)[0]
	}
	return extract.NewLoader(gcsuploader.NewGCSStorageService(), extract.Options{
		Format:    format,
		Delimiter: delimiter,
	}), nil
}

func newTransformer(cfg *config.Config) *transform.Transformer {
	return transform.New(transform.Thresholds{
		MaxQuantity:   cfg.Quality.MaxQuantity,
		MinPrice:      cfg.Quality.MinPriceDecimal(),
		MaxTotalValue: cfg.Quality.MaxTotalValueDecimal(),
	})
}
