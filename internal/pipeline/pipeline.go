// Package pipeline wires the loader, transformer, writer and reports into one
// load run.
package pipeline

import (
	"context"

	"github.com/dvloznov/sales-pipeline/internal/logger"
	"github.com/dvloznov/sales-pipeline/internal/report"
	"github.com/dvloznov/sales-pipeline/internal/transform"
)

// Deps are the collaborators of a load run.
type Deps struct {
	Loader      Loader
	Transformer *transform.Transformer
	Writer      Writer
	Runs        RunTracker

	// Report enables the reporting step. Reporter may be nil to report over
	// the in-memory batch.
	Report   bool
	Reporter report.Reporter
	Variant  report.Variant
}

// NewSalesLoadPipeline builds the standard load run:
// start run, extract, transform, write, optionally report, mark success.
// Any failing step marks the run FAILED.
func NewSalesLoadPipeline(deps Deps) *Pipeline {
	runs := deps.Runs
	if runs == nil {
		runs = NoopRunTracker{}
	}
	tf := deps.Transformer
	if tf == nil {
		tf = transform.New(transform.DefaultThresholds())
	}

	steps := []PipelineStep{
		&StartLoadRunStep{Runs: runs},
		&ExtractStep{Loader: deps.Loader},
		&TransformStep{Transformer: tf},
		&WriteStep{Writer: deps.Writer},
	}
	if deps.Report {
		steps = append(steps, &ReportStep{Reporter: deps.Reporter, Variant: deps.Variant})
	}
	steps = append(steps, &MarkSuccessStep{Runs: runs})

	return NewPipeline(steps...).OnError(func(ctx context.Context, state *PipelineState, err error) {
		if state.RunID == "" {
			return
		}
		log := logger.FromContext(ctx)
		log.Error().
			Err(err).
			Msg("Load run failed")
		runs.MarkLoadRunFailed(ctx, state.RunID, err)
	})
}

// IngestBatch runs one load of source and returns the final state.
func IngestBatch(ctx context.Context, deps Deps, source string) (*PipelineState, error) {
	state := &PipelineState{Source: source}
	if err := NewSalesLoadPipeline(deps).Execute(ctx, state); err != nil {
		return state, err
	}
	return state, nil
}
