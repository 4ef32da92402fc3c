package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// UnknownCustomer is stored in place of an absent customer id.
const UnknownCustomer = "Unknown"

// RawRecord is one source record as read by the loader. Every field is optional;
// a nil pointer means the key was absent, null, or carried a value of the wrong type.
type RawRecord struct {
	// Position is the 1-based index of the record in its source.
	Position int

	TransactionID *string
	CustomerID    *string
	ProductID     *string
	ProductName   *string
	Category      *string
	Price         *decimal.Decimal
	Quantity      *decimal.Decimal
	Date          *string
	Region        *string
	TotalValue    *decimal.Decimal

	// Malformed lists the keys that were present but could not be decoded.
	Malformed []string
}

// IsMalformed reports whether key was present in the source but undecodable.
func (r RawRecord) IsMalformed(key string) bool {
	for _, k := range r.Malformed {
		if k == key {
			return true
		}
	}
	return false
}

// Flags are the data-quality markers attached to a cleaned transaction.
type Flags struct {
	MissingCustomer  bool
	NegativeQuantity bool
	DateFormatIssue  bool
	SuspiciousValues bool
}

// Product is a row of the product dimension.
type Product struct {
	ProductID   string
	ProductName *string
	Category    *string
	Price       decimal.NullDecimal
}

// Record is a cleaned transaction together with its product attributes.
type Record struct {
	TransactionID string
	CustomerID    string
	Product       Product
	Quantity      int64
	Date          *string // raw date string as received
	DateStd       *civil.Date
	Region        *string
	TotalValue    decimal.Decimal
	Flags         Flags
}
