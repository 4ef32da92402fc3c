// Package flatfile writes the cleaned batch as an intermediate CSV snapshot,
// locally or to Cloud Storage.
package flatfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/sales-pipeline/internal/domain"
	"github.com/dvloznov/sales-pipeline/internal/gcs"
	"github.com/dvloznov/sales-pipeline/internal/gcsuploader"
	"github.com/dvloznov/sales-pipeline/internal/logger"
	"github.com/dvloznov/sales-pipeline/internal/transform"
)

// Header is the column order of the snapshot.
var Header = []string{
	"transaction_id", "customer_id", "product_id", "product_name", "category", "price",
	"quantity", "date", "date_std", "region", "total_value",
	"has_missing_customer", "had_negative_quantity", "had_date_format_issue", "has_suspicious_values",
}

// Writer writes one snapshot file per batch.
type Writer struct {
	path    string
	storage gcs.StorageService
}

// NewWriter creates a Writer for path. storage is required only for gs:// paths.
func NewWriter(path string, storage gcs.StorageService) *Writer {
	return &Writer{path: path, storage: storage}
}

// Write appends batch to the snapshot at the writer's path. The header is only
// written when the snapshot is new. A transaction id that is repeated in the
// batch or already present in the snapshot fails the whole batch with
// domain.ErrDuplicateKey and leaves the snapshot untouched.
func (w *Writer) Write(ctx context.Context, runID string, batch transform.Batch) error {
	log := logger.FromContext(ctx)

	if id, ok := duplicateID(batch.Records); ok {
		return &domain.WriteError{
			Table: w.path,
			Op:    "write",
			Err:   fmt.Errorf("%w: transaction_id %q appears more than once in the batch", domain.ErrDuplicateKey, id),
		}
	}

	existing, err := w.readExisting(ctx)
	if err != nil {
		return &domain.WriteError{Table: w.path, Op: "read", Err: err}
	}
	stored, err := snapshotIDs(existing)
	if err != nil {
		return &domain.WriteError{Table: w.path, Op: "read", Err: err}
	}
	for _, r := range batch.Records {
		if _, ok := stored[r.TransactionID]; ok {
			return &domain.WriteError{
				Table: w.path,
				Op:    "write",
				Err:   fmt.Errorf("%w: transaction_id %q already in the snapshot", domain.ErrDuplicateKey, r.TransactionID),
			}
		}
	}

	out, err := w.open(ctx, existing)
	if err != nil {
		return &domain.WriteError{Table: w.path, Op: "open", Err: err}
	}

	if err := encodeRows(out, batch.Records, len(existing) == 0); err != nil {
		out.Close()
		return &domain.WriteError{Table: w.path, Op: "write", Err: err}
	}
	if err := out.Close(); err != nil {
		return &domain.WriteError{Table: w.path, Op: "close", Err: err}
	}

	log.Info().
		Str("run_id", runID).
		Str("path", w.path).
		Int("records", len(batch.Records)).
		Int("previous_records", len(stored)).
		Msg("Flat file appended")
	return nil
}

// readExisting returns the current snapshot bytes, or nil when there is none.
func (w *Writer) readExisting(ctx context.Context) ([]byte, error) {
	if gcsuploader.IsGCSURI(w.path) {
		if w.storage == nil {
			return nil, fmt.Errorf("no storage service configured for %s", w.path)
		}
		data, err := w.storage.FetchFromGCS(ctx, w.path)
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, nil
		}
		return data, err
	}

	data, err := os.ReadFile(w.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// open returns a writer positioned after the existing snapshot. Objects in a
// bucket cannot be appended to, so a gs:// snapshot is rewritten with its
// previous content first.
func (w *Writer) open(ctx context.Context, existing []byte) (io.WriteCloser, error) {
	if gcsuploader.IsGCSURI(w.path) {
		out, err := w.storage.NewObjectWriter(ctx, w.path)
		if err != nil {
			return nil, err
		}
		if _, err := out.Write(existing); err != nil {
			out.Close()
			return nil, err
		}
		return out, nil
	}
	return os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// snapshotIDs collects the transaction ids of an existing snapshot.
func snapshotIDs(data []byte) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	if len(data) == 0 {
		return ids, nil
	}

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("snapshotIDs: parsing snapshot: %w", err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 || rows[0][0] != Header[0] {
		return nil, fmt.Errorf("snapshotIDs: snapshot does not start with the %s header", Header[0])
	}
	for _, row := range rows[1:] {
		ids[row[0]] = struct{}{}
	}
	return ids, nil
}

// Encode writes records as CSV with Header as the first row.
func Encode(out io.Writer, records []domain.Record) error {
	return encodeRows(out, records, true)
}

func encodeRows(out io.Writer, records []domain.Record, header bool) error {
	cw := csv.NewWriter(out)
	if header {
		if err := cw.Write(Header); err != nil {
			return fmt.Errorf("Encode: writing header: %w", err)
		}
	}

	for _, r := range records {
		price := ""
		if r.Product.Price.Valid {
			price = r.Product.Price.Decimal.String()
		}
		dateStd := ""
		if r.DateStd != nil {
			dateStd = r.DateStd.String()
		}
		row := []string{
			r.TransactionID,
			r.CustomerID,
			r.Product.ProductID,
			deref(r.Product.ProductName),
			deref(r.Product.Category),
			price,
			strconv.FormatInt(r.Quantity, 10),
			deref(r.Date),
			dateStd,
			deref(r.Region),
			r.TotalValue.String(),
			strconv.FormatBool(r.Flags.MissingCustomer),
			strconv.FormatBool(r.Flags.NegativeQuantity),
			strconv.FormatBool(r.Flags.DateFormatIssue),
			strconv.FormatBool(r.Flags.SuspiciousValues),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("Encode: writing %s: %w", r.TransactionID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func duplicateID(records []domain.Record) (string, bool) {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, ok := seen[r.TransactionID]; ok {
			return r.TransactionID, true
		}
		seen[r.TransactionID] = struct{}{}
	}
	return "", false
}
