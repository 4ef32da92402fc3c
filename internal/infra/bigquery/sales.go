package bigquery

import (
	"math/big"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/sales-pipeline/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	customersTable    = "customers"
	productsTable     = "products"
	transactionsTable = "transactions"
	loadRunsTable     = "load_runs"
)

type CustomerRow struct {
	CustomerID string `bigquery:"customer_id"` // REQUIRED
}

type ProductRow struct {
	ProductID   string              `bigquery:"product_id"`   // REQUIRED
	ProductName bigquery.NullString `bigquery:"product_name"` // NULLABLE
	Category    bigquery.NullString `bigquery:"category"`     // NULLABLE
	Price       *big.Rat            `bigquery:"price"`        // NULLABLE NUMERIC
}

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	CustomerID    string `bigquery:"customer_id"`    // REQUIRED
	ProductID     string `bigquery:"product_id"`     // REQUIRED
	Quantity      int64  `bigquery:"quantity"`       // REQUIRED

	Date    bigquery.NullString `bigquery:"date"`     // NULLABLE, raw
	DateStd bigquery.NullDate   `bigquery:"date_std"` // NULLABLE
	Region  bigquery.NullString `bigquery:"region"`   // NULLABLE

	TotalValue *big.Rat `bigquery:"total_value"` // REQUIRED NUMERIC

	HasMissingCustomer  bool `bigquery:"has_missing_customer"`
	HadNegativeQuantity bool `bigquery:"had_negative_quantity"`
	HadDateFormatIssue  bool `bigquery:"had_date_format_issue"`
	HasSuspiciousValues bool `bigquery:"has_suspicious_values"`
}

var (
	customerSchema = bigquery.Schema{
		{Name: "customer_id", Type: bigquery.StringFieldType, Required: true},
	}
	productSchema = bigquery.Schema{
		{Name: "product_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "product_name", Type: bigquery.StringFieldType},
		{Name: "category", Type: bigquery.StringFieldType},
		{Name: "price", Type: bigquery.NumericFieldType},
	}
	transactionSchema = bigquery.Schema{
		{Name: "transaction_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "customer_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "product_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "quantity", Type: bigquery.IntegerFieldType, Required: true},
		{Name: "date", Type: bigquery.StringFieldType},
		{Name: "date_std", Type: bigquery.DateFieldType},
		{Name: "region", Type: bigquery.StringFieldType},
		{Name: "total_value", Type: bigquery.NumericFieldType, Required: true},
		{Name: "has_missing_customer", Type: bigquery.BooleanFieldType, Required: true},
		{Name: "had_negative_quantity", Type: bigquery.BooleanFieldType, Required: true},
		{Name: "had_date_format_issue", Type: bigquery.BooleanFieldType, Required: true},
		{Name: "has_suspicious_values", Type: bigquery.BooleanFieldType, Required: true},
	}
	loadRunSchema = bigquery.Schema{
		{Name: "run_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "source", Type: bigquery.StringFieldType, Required: true},
		{Name: "started_ts", Type: bigquery.TimestampFieldType, Required: true},
		{Name: "finished_ts", Type: bigquery.TimestampFieldType},
		{Name: "status", Type: bigquery.StringFieldType, Required: true},
		{Name: "error_message", Type: bigquery.StringFieldType},
		{Name: "total_records", Type: bigquery.IntegerFieldType},
		{Name: "loaded_records", Type: bigquery.IntegerFieldType},
		{Name: "skipped_records", Type: bigquery.IntegerFieldType},
	}
)

func nullString(s *string) bigquery.NullString {
	if s == nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: *s, Valid: true}
}

// NewProductRow maps a product dimension entry onto its row.
func NewProductRow(p domain.Product) *ProductRow {
	row := &ProductRow{
		ProductID:   p.ProductID,
		ProductName: nullString(p.ProductName),
		Category:    nullString(p.Category),
	}
	if p.Price.Valid {
		row.Price = p.Price.Decimal.Rat()
	}
	return row
}

// NewTransactionRow maps a cleaned record onto its fact row.
func NewTransactionRow(r domain.Record) *TransactionRow {
	row := &TransactionRow{
		TransactionID:       r.TransactionID,
		CustomerID:          r.CustomerID,
		ProductID:           r.Product.ProductID,
		Quantity:            r.Quantity,
		Date:                nullString(r.Date),
		Region:              nullString(r.Region),
		TotalValue:          r.TotalValue.Rat(),
		HasMissingCustomer:  r.Flags.MissingCustomer,
		HadNegativeQuantity: r.Flags.NegativeQuantity,
		HadDateFormatIssue:  r.Flags.DateFormatIssue,
		HasSuspiciousValues: r.Flags.SuspiciousValues,
	}
	if r.DateStd != nil {
		row.DateStd = bigquery.NullDate{Date: *r.DateStd, Valid: true}
	}
	return row
}

// ratToDecimal converts a NUMERIC value (scale 9) to a decimal.
func ratToDecimal(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	return decimal.RequireFromString(r.FloatString(9))
}
