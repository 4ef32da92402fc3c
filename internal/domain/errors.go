package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey is wrapped by WriteError when a primary key already exists.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrMissingTable is wrapped by WriteError when a required table is absent.
	ErrMissingTable = errors.New("missing table")
	// ErrConstraintViolation covers foreign key and other constraint failures.
	ErrConstraintViolation = errors.New("constraint violation")
)

// SourceReadError aborts a run: the batch source could not be opened or decoded.
type SourceReadError struct {
	Source string
	Err    error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("read source %q: %v", e.Source, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }

// WriteError aborts a run: the target rejected the batch.
type WriteError struct {
	Table string
	Op    string
	Err   error
}

func (e *WriteError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("write %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("write %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// SkipReason explains why a raw record produced no output.
type SkipReason string

const (
	SkipMissingTransactionID SkipReason = "missing transaction_id"
	SkipMissingProductID     SkipReason = "missing product_id"
	SkipMissingQuantity      SkipReason = "missing quantity"
	// SkipMalformedQuantity covers a quantity that is non-numeric, fractional or
	// outside the int64 range.
	SkipMalformedQuantity SkipReason = "malformed quantity"
)

// RecordSkipped describes one dropped record. It is reported, never returned as a run error.
type RecordSkipped struct {
	Position      int
	TransactionID string
	Reason        SkipReason
}

func (s RecordSkipped) Error() string {
	if s.TransactionID == "" {
		return fmt.Sprintf("record %d skipped: %s", s.Position, s.Reason)
	}
	return fmt.Sprintf("record %d (%s) skipped: %s", s.Position, s.TransactionID, s.Reason)
}
