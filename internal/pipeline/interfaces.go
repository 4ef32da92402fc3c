package pipeline

import (
	"context"

	"github.com/dvloznov/sales-pipeline/internal/domain"
	"github.com/dvloznov/sales-pipeline/internal/transform"
	"github.com/google/uuid"
)

// Loader reads a batch source into raw records.
type Loader interface {
	Load(ctx context.Context, source string) ([]domain.RawRecord, error)
}

// Writer persists a cleaned batch. Implemented by the relational store, the
// BigQuery warehouse and the flat file writer.
type Writer interface {
	Write(ctx context.Context, runID string, batch transform.Batch) error
}

// RunTracker records the lifecycle of a load run.
type RunTracker interface {
	StartLoadRun(ctx context.Context, source string) (string, error)
	MarkLoadRunFailed(ctx context.Context, runID string, runErr error)
	MarkLoadRunSucceeded(ctx context.Context, runID string, summary transform.Summary) error
}

// NoopRunTracker hands out run ids without persisting anything. Used by
// targets that have no load_runs table.
type NoopRunTracker struct{}

func (NoopRunTracker) StartLoadRun(context.Context, string) (string, error) {
	return uuid.NewString(), nil
}

func (NoopRunTracker) MarkLoadRunFailed(context.Context, string, error) {}

func (NoopRunTracker) MarkLoadRunSucceeded(context.Context, string, transform.Summary) error {
	return nil
}
