package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/sales-pipeline/internal/logger"
	"google.golang.org/api/googleapi"
)

type tableSpec struct {
	name     string
	metadata *bigquery.TableMetadata
}

func tableSpecs() []tableSpec {
	return []tableSpec{
		{customersTable, &bigquery.TableMetadata{Schema: customerSchema}},
		{productsTable, &bigquery.TableMetadata{Schema: productSchema}},
		{transactionsTable, &bigquery.TableMetadata{
			Schema:           transactionSchema,
			TimePartitioning: &bigquery.TimePartitioning{Type: bigquery.MonthPartitioningType, Field: "date_std"},
			Clustering:       &bigquery.Clustering{Fields: []string{"region", "product_id"}},
		}},
		{loadRunsTable, &bigquery.TableMetadata{Schema: loadRunSchema}},
	}
}

// EnsureTablesWithClient creates the dataset and any missing table. Existing
// tables are left untouched.
func EnsureTablesWithClient(ctx context.Context, client *bigquery.Client, datasetID string) error {
	log := logger.FromContext(ctx)

	ds := client.Dataset(datasetID)
	if _, err := ds.Metadata(ctx); err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("EnsureTables: reading dataset %s: %w", datasetID, err)
		}
		if err := ds.Create(ctx, &bigquery.DatasetMetadata{}); err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("EnsureTables: creating dataset %s: %w", datasetID, err)
		}
		log.Info().Str("dataset_id", datasetID).Msg("EnsureTables: created dataset")
	}

	for _, spec := range tableSpecs() {
		t := ds.Table(spec.name)
		if _, err := t.Metadata(ctx); err == nil {
			continue
		} else if !isNotFound(err) {
			return fmt.Errorf("EnsureTables: reading table %s: %w", spec.name, err)
		}
		if err := t.Create(ctx, spec.metadata); err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("EnsureTables: creating table %s: %w", spec.name, err)
		}
		log.Info().Str("table", spec.name).Msg("EnsureTables: created table")
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

func isAlreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}
