package transform

import (
	"strings"

	"github.com/dvloznov/sales-pipeline/internal/domain"
	"github.com/shopspring/decimal"
)

// Thresholds mark a transaction as having suspicious values.
type Thresholds struct {
	MaxQuantity   int64
	MinPrice      decimal.Decimal
	MaxTotalValue decimal.Decimal
}

// DefaultThresholds returns the standard outlier limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxQuantity:   1000,
		MinPrice:      decimal.RequireFromString("0.01"),
		MaxTotalValue: decimal.NewFromInt(100000),
	}
}

// Result is the outcome of transforming one raw record: exactly one of Record
// and Skip is set.
type Result struct {
	Record *domain.Record
	Skip   *domain.RecordSkipped
}

// Transformer cleans raw records. It holds no state between calls, so the same
// input always produces the same output.
type Transformer struct {
	thresholds Thresholds
}

// New creates a Transformer.
func New(thresholds Thresholds) *Transformer {
	return &Transformer{thresholds: thresholds}
}

// Transform cleans one record. Field anomalies become flags; only a missing
// transaction_id or product_id, or a quantity that is missing or cannot be an
// int64, skips the record.
func (t *Transformer) Transform(raw domain.RawRecord) Result {
	txID := trimmed(raw.TransactionID)
	if txID == "" {
		return skip(raw, "", domain.SkipMissingTransactionID)
	}
	productID := trimmed(raw.ProductID)
	if productID == "" {
		return skip(raw, txID, domain.SkipMissingProductID)
	}
	if raw.Quantity == nil {
		if raw.IsMalformed("quantity") {
			return skip(raw, txID, domain.SkipMalformedQuantity)
		}
		return skip(raw, txID, domain.SkipMissingQuantity)
	}
	if !raw.Quantity.IsInteger() || !raw.Quantity.BigInt().IsInt64() {
		return skip(raw, txID, domain.SkipMalformedQuantity)
	}

	rec := &domain.Record{
		TransactionID: txID,
		Product: domain.Product{
			ProductID:   productID,
			ProductName: raw.ProductName,
			Category:    raw.Category,
		},
		Date:   raw.Date,
		Region: raw.Region,
	}

	rec.CustomerID, rec.Flags.MissingCustomer = NormalizeCustomer(raw.CustomerID)
	rec.Quantity, rec.Flags.NegativeQuantity = NormalizeQuantity(raw.Quantity.IntPart())
	rec.DateStd, rec.Flags.DateFormatIssue = NormalizeDate(raw.Date)

	switch {
	case raw.Price != nil:
		rec.Product.Price = decimal.NewNullDecimal(*raw.Price)
		rec.TotalValue = ComputeTotalValue(*raw.Price, rec.Quantity)
	case raw.TotalValue != nil:
		rec.TotalValue = *raw.TotalValue
	default:
		rec.TotalValue = decimal.Zero
	}

	rec.Flags.SuspiciousValues = t.suspicious(rec)

	return Result{Record: rec}
}

func (t *Transformer) suspicious(rec *domain.Record) bool {
	if rec.Quantity > t.thresholds.MaxQuantity {
		return true
	}
	if rec.Product.Price.Valid && rec.Product.Price.Decimal.LessThan(t.thresholds.MinPrice) {
		return true
	}
	return rec.TotalValue.GreaterThan(t.thresholds.MaxTotalValue)
}

// Batch is the cleaned output of one load, in source order.
type Batch struct {
	Records []domain.Record
	Skipped []domain.RecordSkipped
}

// TransformBatch cleans every raw record and builds the run summary.
func (t *Transformer) TransformBatch(raws []domain.RawRecord) (Batch, Summary) {
	batch := Batch{Records: make([]domain.Record, 0, len(raws))}
	for _, raw := range raws {
		res := t.Transform(raw)
		if res.Skip != nil {
			batch.Skipped = append(batch.Skipped, *res.Skip)
			continue
		}
		batch.Records = append(batch.Records, *res.Record)
	}
	return batch, summarize(raws, batch)
}

// Customers returns the distinct customer ids in first-seen order.
func (b Batch) Customers() []string {
	seen := make(map[string]struct{}, len(b.Records))
	var out []string
	for _, r := range b.Records {
		if _, ok := seen[r.CustomerID]; ok {
			continue
		}
		seen[r.CustomerID] = struct{}{}
		out = append(out, r.CustomerID)
	}
	return out
}

// Products returns the distinct products. When a product id repeats, the
// attributes of its first occurrence win.
func (b Batch) Products() []domain.Product {
	seen := make(map[string]struct{}, len(b.Records))
	var out []domain.Product
	for _, r := range b.Records {
		if _, ok := seen[r.Product.ProductID]; ok {
			continue
		}
		seen[r.Product.ProductID] = struct{}{}
		out = append(out, r.Product)
	}
	return out
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func skip(raw domain.RawRecord, txID string, reason domain.SkipReason) Result {
	return Result{Skip: &domain.RecordSkipped{
		Position:      raw.Position,
		TransactionID: txID,
		Reason:        reason,
	}}
}
