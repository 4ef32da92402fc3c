package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/sales-pipeline/internal/domain"
	"github.com/dvloznov/sales-pipeline/internal/logger"
	"github.com/dvloznov/sales-pipeline/internal/report"
	"github.com/dvloznov/sales-pipeline/internal/transform"
)

// PipelineStep represents a single step of a load run.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Source  string
	RunID   string
	Raw     []domain.RawRecord
	Batch   transform.Batch
	Summary transform.Summary
	Reports *report.Reports
}

// Step 1: StartLoadRunStep records a load run with status=RUNNING.
type StartLoadRunStep struct {
	Runs RunTracker
}

func (s *StartLoadRunStep) Execute(ctx context.Context, state *PipelineState) error {
	runID, err := s.Runs.StartLoadRun(ctx, state.Source)
	if err != nil {
		return err
	}
	state.RunID = runID
	log := logger.FromContext(ctx)
	log.Info().
		Str("run_id", runID).
		Str("source", state.Source).
		Msg("Started load run")
	return nil
}

// Step 2: ExtractStep reads the raw records from the source.
type ExtractStep struct {
	Loader Loader
}

func (s *ExtractStep) Execute(ctx context.Context, state *PipelineState) error {
	raw, err := s.Loader.Load(ctx, state.Source)
	if err != nil {
		return err
	}
	state.Raw = raw
	log := logger.FromContext(ctx)
	log.Info().
		Int("records", len(raw)).
		Msg("Extracted raw records")
	return nil
}

// Step 3: TransformStep cleans the whole batch and builds the quality summary.
type TransformStep struct {
	Transformer *transform.Transformer
}

func (s *TransformStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	batch, summary := s.Transformer.TransformBatch(state.Raw)
	for _, skipped := range batch.Skipped {
		log.Warn().
			Int("position", skipped.Position).
			Str("transaction_id", skipped.TransactionID).
			Str("reason", string(skipped.Reason)).
			Msg("Skipped record")
	}
	summary.Log(log)

	state.Batch = batch
	state.Summary = summary
	return nil
}

// Step 4: WriteStep persists the cleaned batch.
type WriteStep struct {
	Writer Writer
}

func (s *WriteStep) Execute(ctx context.Context, state *PipelineState) error {
	if err := s.Writer.Write(ctx, state.RunID, state.Batch); err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	log.Info().
		Int("transactions", len(state.Batch.Records)).
		Msg("Wrote batch")
	return nil
}

// Step 5: ReportStep runs the three reports. Without a Reporter it reports
// over the in-memory batch.
type ReportStep struct {
	Reporter report.Reporter
	Variant  report.Variant
}

func (s *ReportStep) Execute(ctx context.Context, state *PipelineState) error {
	r := s.Reporter
	if r == nil {
		r = report.NewMemoryReporter(state.Batch)
	}
	reports, err := report.Run(ctx, r, s.Variant)
	if err != nil {
		return err
	}
	state.Reports = &reports
	return nil
}

// Step 6: MarkSuccessStep marks the load run as SUCCESS.
type MarkSuccessStep struct {
	Runs RunTracker
}

func (s *MarkSuccessStep) Execute(ctx context.Context, state *PipelineState) error {
	return s.Runs.MarkLoadRunSucceeded(ctx, state.RunID, state.Summary)
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps   []PipelineStep
	onError func(ctx context.Context, state *PipelineState, err error)
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// OnError registers a hook called once with the first failing step's error.
func (p *Pipeline) OnError(fn func(ctx context.Context, state *PipelineState, err error)) *Pipeline {
	p.onError = fn
	return p
}

// Execute runs all steps in the pipeline sequentially, stopping at the first error.
// Once a step has set state.RunID, later steps log with the run fields.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	runCtx := false
	for i, step := range p.steps {
		if !runCtx && state.RunID != "" {
			ctx = logger.WithRun(ctx, state.RunID, state.Source)
			runCtx = true
		}
		if err := step.Execute(ctx, state); err != nil {
			err = fmt.Errorf("pipeline step %d failed: %w", i+1, err)
			if p.onError != nil {
				p.onError(ctx, state, err)
			}
			return err
		}
	}
	return nil
}
