// Package bigquery is the BigQuery warehouse target: it streams cleaned
// batches into a dataset, tracks load runs and answers the sales reports.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/sales-pipeline/internal/report"
	"github.com/dvloznov/sales-pipeline/internal/transform"
)

// Warehouse holds a shared BigQuery client bound to one dataset. The
// *WithClient functions in this package do the work; Warehouse delegates.
type Warehouse struct {
	client    *bigquery.Client
	datasetID string
	chunk     int
}

// NewWarehouse opens a BigQuery client for projectID.
func NewWarehouse(ctx context.Context, projectID, datasetID string, chunk int) (*Warehouse, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewWarehouse: creating client: %w", err)
	}
	return &Warehouse{client: client, datasetID: datasetID, chunk: chunk}, nil
}

// Close closes the BigQuery client connection.
func (w *Warehouse) Close() error {
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}

// EnsureTables creates the dataset and tables when missing.
func (w *Warehouse) EnsureTables(ctx context.Context) error {
	return EnsureTablesWithClient(ctx, w.client, w.datasetID)
}

// Write streams a cleaned batch into the dataset.
func (w *Warehouse) Write(ctx context.Context, _ string, batch transform.Batch) error {
	return WriteBatchWithClient(ctx, w.client, w.datasetID, batch, w.chunk)
}

func (w *Warehouse) StartLoadRun(ctx context.Context, source string) (string, error) {
	return StartLoadRunWithClient(ctx, w.client, w.datasetID, source)
}

func (w *Warehouse) MarkLoadRunFailed(ctx context.Context, runID string, runErr error) {
	MarkLoadRunFailedWithClient(ctx, w.client, w.datasetID, runID, runErr)
}

func (w *Warehouse) MarkLoadRunSucceeded(ctx context.Context, runID string, summary transform.Summary) error {
	return MarkLoadRunSucceededWithClient(ctx, w.client, w.datasetID, runID, summary)
}

func (w *Warehouse) RegionalSales(ctx context.Context, variant report.Variant) ([]report.RegionTotal, error) {
	return RegionalSalesWithClient(ctx, w.client, w.datasetID, variant)
}

func (w *Warehouse) TopProducts(ctx context.Context, limit int) ([]report.ProductTotal, error) {
	return TopProductsWithClient(ctx, w.client, w.datasetID, limit)
}

func (w *Warehouse) MonthlyTrend(ctx context.Context) ([]report.MonthTotal, error) {
	return MonthlyTrendWithClient(ctx, w.client, w.datasetID)
}

var _ report.Reporter = (*Warehouse)(nil)
