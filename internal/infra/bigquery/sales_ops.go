package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/sales-pipeline/internal/domain"
	"github.com/dvloznov/sales-pipeline/internal/logger"
	"github.com/dvloznov/sales-pipeline/internal/transform"
	"google.golang.org/api/iterator"
)

// DefaultInsertChunk caps the rows sent in one streaming insert call.
const DefaultInsertChunk = 500

// WriteBatchWithClient streams a cleaned batch into the dataset: customers and
// products that are not stored yet, then the transactions. BigQuery has no
// multi-table transaction, so the duplicate check on transaction ids runs
// before anything is inserted.
func WriteBatchWithClient(ctx context.Context, client *bigquery.Client, datasetID string, batch transform.Batch, chunk int) error {
	log := logger.FromContext(ctx)

	ids := make([]string, 0, len(batch.Records))
	seen := make(map[string]struct{}, len(batch.Records))
	for _, r := range batch.Records {
		if _, dup := seen[r.TransactionID]; dup {
			return &domain.WriteError{
				Table: transactionsTable,
				Op:    "insert",
				Err:   fmt.Errorf("%w: transaction_id %q appears more than once in the batch", domain.ErrDuplicateKey, r.TransactionID),
			}
		}
		seen[r.TransactionID] = struct{}{}
		ids = append(ids, r.TransactionID)
	}

	existing, err := ExistingKeysWithClient(ctx, client, datasetID, transactionsTable, "transaction_id", ids)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		for _, id := range ids {
			if existing[id] {
				return &domain.WriteError{
					Table: transactionsTable,
					Op:    "insert",
					Err:   fmt.Errorf("%w: transaction_id %q already loaded", domain.ErrDuplicateKey, id),
				}
			}
		}
	}

	customers := batch.Customers()
	knownCustomers, err := ExistingKeysWithClient(ctx, client, datasetID, customersTable, "customer_id", customers)
	if err != nil {
		return err
	}
	var customerRows []*CustomerRow
	for _, id := range customers {
		if !knownCustomers[id] {
			customerRows = append(customerRows, &CustomerRow{CustomerID: id})
		}
	}
	if err := putChunks(ctx, client, datasetID, customersTable, customerRows, chunk); err != nil {
		return err
	}

	products := batch.Products()
	productIDs := make([]string, len(products))
	for i, p := range products {
		productIDs[i] = p.ProductID
	}
	knownProducts, err := ExistingKeysWithClient(ctx, client, datasetID, productsTable, "product_id", productIDs)
	if err != nil {
		return err
	}
	var productRows []*ProductRow
	for _, p := range products {
		if !knownProducts[p.ProductID] {
			productRows = append(productRows, NewProductRow(p))
		}
	}
	if err := putChunks(ctx, client, datasetID, productsTable, productRows, chunk); err != nil {
		return err
	}

	factRows := make([]*TransactionRow, len(batch.Records))
	for i, r := range batch.Records {
		factRows[i] = NewTransactionRow(r)
	}
	if err := putChunks(ctx, client, datasetID, transactionsTable, factRows, chunk); err != nil {
		return err
	}

	log.Info().
		Int("customers", len(customerRows)).
		Int("products", len(productRows)).
		Int("transactions", len(factRows)).
		Msg("WriteBatch: streamed rows to BigQuery")
	return nil
}

// ExistingKeysWithClient returns which of keys are already present in the
// given column of table.
func ExistingKeysWithClient(ctx context.Context, client *bigquery.Client, datasetID, table, column string, keys []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(keys) == 0 {
		return found, nil
	}

	q := client.Query(fmt.Sprintf(`
		SELECT DISTINCT %s AS id
		FROM %s.%s
		WHERE %s IN UNNEST(@ids)
	`, column, datasetID, table, column))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "ids", Value: keys},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, writeError(table, "select", err)
	}

	for {
		var row struct {
			ID string `bigquery:"id"`
		}
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, writeError(table, "select", err)
		}
		found[row.ID] = true
	}
	return found, nil
}

func putChunks[T any](ctx context.Context, client *bigquery.Client, datasetID, table string, rows []T, chunk int) error {
	if len(rows) == 0 {
		return nil
	}
	if chunk <= 0 {
		chunk = DefaultInsertChunk
	}
	inserter := client.Dataset(datasetID).Table(table).Inserter()
	for start := 0; start < len(rows); start += chunk {
		end := min(start+chunk, len(rows))
		if err := inserter.Put(ctx, rows[start:end]); err != nil {
			return writeError(table, "insert", err)
		}
	}
	return nil
}

// writeError wraps a BigQuery API error into a *domain.WriteError. A 404 means
// the dataset or table is missing.
func writeError(table, op string, err error) error {
	if isNotFound(err) {
		err = fmt.Errorf("%w: %w", domain.ErrMissingTable, err)
	}
	return &domain.WriteError{Table: table, Op: op, Err: err}
}
