package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/sales-pipeline/internal/logger"
	"github.com/dvloznov/sales-pipeline/internal/transform"
	"github.com/google/uuid"
)

// Load run statuses.
const (
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

const maxErrorMessageLen = 2000

// StartLoadRun inserts a load_runs row with status=RUNNING and returns its id.
func (s *Store) StartLoadRun(ctx context.Context, source string) (string, error) {
	runID := uuid.NewString()

	query := fmt.Sprintf(
		"INSERT INTO load_runs (run_id, source, started_at, status) VALUES (%s, %s, %s, %s)",
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3), s.dialect.Placeholder(4),
	)
	if _, err := s.db.ExecContext(ctx, query, runID, source, time.Now().UTC(), RunStatusRunning); err != nil {
		return "", fmt.Errorf("StartLoadRun: inserting run: %w", err)
	}
	return runID, nil
}

// MarkLoadRunFailed sets status=FAILED, finished_at and error_message. Failures
// are logged, not returned, so the original error stays the one reported.
func (s *Store) MarkLoadRunFailed(ctx context.Context, runID string, runErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		if len(errMsg) > maxErrorMessageLen {
			errMsg = errMsg[:maxErrorMessageLen]
		}
	}

	query := fmt.Sprintf(
		"UPDATE load_runs SET status = %s, finished_at = %s, error_message = %s WHERE run_id = %s",
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3), s.dialect.Placeholder(4),
	)
	if _, err := s.db.ExecContext(ctx, query, RunStatusFailed, time.Now().UTC(), errMsg, runID); err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkLoadRunFailed: updating run")
	}
}

// MarkLoadRunSucceeded sets status=SUCCESS, finished_at and the record counts.
func (s *Store) MarkLoadRunSucceeded(ctx context.Context, runID string, summary transform.Summary) error {
	query := fmt.Sprintf(
		"UPDATE load_runs SET status = %s, finished_at = %s, total_records = %s, loaded_records = %s, skipped_records = %s, error_message = '' WHERE run_id = %s",
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3),
		s.dialect.Placeholder(4), s.dialect.Placeholder(5), s.dialect.Placeholder(6),
	)
	_, err := s.db.ExecContext(ctx, query,
		RunStatusSuccess, time.Now().UTC(),
		summary.TotalRecords, summary.LoadedRecords, summary.SkippedRecords,
		runID,
	)
	if err != nil {
		return fmt.Errorf("MarkLoadRunSucceeded: updating run: %w", err)
	}
	return nil
}
