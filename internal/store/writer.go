package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dvloznov/sales-pipeline/internal/domain"
	"github.com/dvloznov/sales-pipeline/internal/logger"
	"github.com/dvloznov/sales-pipeline/internal/transform"
)

var (
	customerColumns = []string{"customer_id"}
	productColumns  = []string{"product_id", "product_name", "category", "price"}
	factColumns     = []string{
		"transaction_id", "customer_id", "product_id", "quantity",
		"date", "date_std", "region", "total_value",
		"has_missing_customer", "had_negative_quantity",
		"had_date_format_issue", "has_suspicious_values",
	}
)

// Write persists a cleaned batch: customers, then products, then transactions,
// all inside one database transaction. Customers and products already stored
// are left untouched (first write wins); a transaction id that already exists
// fails the whole batch with domain.ErrDuplicateKey.
func (s *Store) Write(ctx context.Context, runID string, batch transform.Batch) error {
	log := logger.FromContext(ctx)

	if id, ok := firstDuplicateID(batch.Records); ok {
		return &domain.WriteError{
			Table: "transactions",
			Op:    "insert",
			Err:   fmt.Errorf("%w: transaction_id %q appears more than once in the batch", domain.ErrDuplicateKey, id),
		}
	}

	if err := s.VerifySchema(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return writeError("", "begin", err)
	}
	defer tx.Rollback()

	customers := batch.Customers()
	if err := s.insertChunks(ctx, tx, "customers", len(customers), len(customerColumns),
		func(rows int) string {
			return s.dialect.InsertIgnoreSQL("customers", "customer_id", customerColumns, rows)
		},
		func(i int) []interface{} { return []interface{}{customers[i]} },
	); err != nil {
		return err
	}

	products := batch.Products()
	if err := s.insertChunks(ctx, tx, "products", len(products), len(productColumns),
		func(rows int) string {
			return s.dialect.InsertIgnoreSQL("products", "product_id", productColumns, rows)
		},
		func(i int) []interface{} { return productArgs(products[i]) },
	); err != nil {
		return err
	}

	records := batch.Records
	if err := s.insertChunks(ctx, tx, "transactions", len(records), len(factColumns),
		func(rows int) string { return s.dialect.InsertSQL("transactions", factColumns, rows) },
		func(i int) []interface{} { return factArgs(records[i]) },
	); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return writeError("", "commit", err)
	}

	log.Info().
		Str("run_id", runID).
		Int("customers", len(customers)).
		Int("products", len(products)).
		Int("transactions", len(records)).
		Msg("Batch written")
	return nil
}

// insertChunks writes n rows in statements of at most rowsPerStatement rows.
func (s *Store) insertChunks(
	ctx context.Context,
	tx *sql.Tx,
	table string,
	n, columns int,
	statement func(rows int) string,
	args func(i int) []interface{},
) error {
	if n == 0 {
		return nil
	}

	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"table":   table,
		"dialect": string(s.dialect),
	})
	size := s.dialect.rowsPerStatement(s.batchSize, columns)
	chunks := (n + size - 1) / size

	for c := 0; c < chunks; c++ {
		start := c * size
		end := start + size
		if end > n {
			end = n
		}

		params := make([]interface{}, 0, (end-start)*columns)
		for i := start; i < end; i++ {
			params = append(params, args(i)...)
		}

		if _, err := tx.ExecContext(ctx, statement(end-start), params...); err != nil {
			return writeError(table, "insert", err)
		}

		log.Info().
			Int("rows", end-start).
			Msgf("Loaded batch %d/%d", c+1, chunks)
	}
	return nil
}

func productArgs(p domain.Product) []interface{} {
	return []interface{}{p.ProductID, nullString(p.ProductName), nullString(p.Category), p.Price}
}

func factArgs(r domain.Record) []interface{} {
	dateStd := sql.NullTime{}
	if r.DateStd != nil {
		dateStd = sql.NullTime{Time: r.DateStd.In(time.UTC), Valid: true}
	}
	return []interface{}{
		r.TransactionID,
		r.CustomerID,
		r.Product.ProductID,
		r.Quantity,
		nullString(r.Date),
		dateStd,
		nullString(r.Region),
		r.TotalValue,
		r.Flags.MissingCustomer,
		r.Flags.NegativeQuantity,
		r.Flags.DateFormatIssue,
		r.Flags.SuspiciousValues,
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func firstDuplicateID(records []domain.Record) (string, bool) {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, ok := seen[r.TransactionID]; ok {
			return r.TransactionID, true
		}
		seen[r.TransactionID] = struct{}{}
	}
	return "", false
}
