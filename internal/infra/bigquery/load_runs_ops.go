package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/sales-pipeline/internal/logger"
	"github.com/dvloznov/sales-pipeline/internal/transform"
	"github.com/google/uuid"
)

// Load run statuses, shared with the SQL store.
const (
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

const maxErrorMessageLen = 2000

// StartLoadRunWithClient inserts a load_runs row with status=RUNNING and
// returns the generated run id.
func StartLoadRunWithClient(ctx context.Context, client *bigquery.Client, datasetID, source string) (string, error) {
	runID := uuid.NewString()

	q := client.Query(fmt.Sprintf(`
		INSERT %s.%s (run_id, source, started_ts, status)
		VALUES (@run_id, @source, @started_ts, @status)
	`, datasetID, loadRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "source", Value: source},
		{Name: "started_ts", Value: time.Now()},
		{Name: "status", Value: RunStatusRunning},
	}

	if err := runDML(ctx, q); err != nil {
		return "", fmt.Errorf("StartLoadRun: %w", err)
	}
	return runID, nil
}

// MarkLoadRunFailedWithClient sets status=FAILED, finished_ts and error_message.
// Errors are logged only.
func MarkLoadRunFailedWithClient(ctx context.Context, client *bigquery.Client, datasetID, runID string, runErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		if len(errMsg) > maxErrorMessageLen {
			errMsg = errMsg[:maxErrorMessageLen]
		}
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, datasetID, loadRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "run_id", Value: runID},
	}

	if err := runDML(ctx, q); err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkLoadRunFailed: updating run")
	}
}

// MarkLoadRunSucceededWithClient sets status=SUCCESS, finished_ts and the
// record counts from the summary.
func MarkLoadRunSucceededWithClient(ctx context.Context, client *bigquery.Client, datasetID, runID string, summary transform.Summary) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    total_records = @total_records,
		    loaded_records = @loaded_records,
		    skipped_records = @skipped_records,
		    error_message = ''
		WHERE run_id = @run_id
	`, datasetID, loadRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "total_records", Value: int64(summary.TotalRecords)},
		{Name: "loaded_records", Value: int64(summary.LoadedRecords)},
		{Name: "skipped_records", Value: int64(summary.SkippedRecords)},
		{Name: "run_id", Value: runID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("MarkLoadRunSucceeded: %w", err)
	}
	return nil
}

func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
