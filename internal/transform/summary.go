package transform

import (
	"github.com/dvloznov/sales-pipeline/internal/domain"
	"github.com/rs/zerolog"
)

// Summary is the end-of-run data quality report.
type Summary struct {
	TotalRecords   int
	LoadedRecords  int
	SkippedRecords int

	// Flag counts over loaded records.
	MissingCustomer  int
	NegativeQuantity int
	DateFormatIssue  int
	SuspiciousValues int

	// Batch-level checks.
	DuplicateTransactionIDs int
	MissingProductInfo      int
	InvalidPrices           int
	ProductPriceConflicts   int

	SkipReasons map[domain.SkipReason]int
}

// HasIssues reports whether any check found something.
func (s Summary) HasIssues() bool {
	return s.SkippedRecords+s.MissingCustomer+s.NegativeQuantity+s.DateFormatIssue+
		s.SuspiciousValues+s.DuplicateTransactionIDs+s.MissingProductInfo+
		s.InvalidPrices+s.ProductPriceConflicts > 0
}

func summarize(raws []domain.RawRecord, batch Batch) Summary {
	s := Summary{
		TotalRecords:   len(raws),
		LoadedRecords:  len(batch.Records),
		SkippedRecords: len(batch.Skipped),
		SkipReasons:    make(map[domain.SkipReason]int),
	}

	for _, sk := range batch.Skipped {
		s.SkipReasons[sk.Reason]++
	}

	idCount := make(map[string]int, len(batch.Records))
	firstPrice := make(map[string]domain.Product, len(batch.Records))
	conflicted := make(map[string]bool)

	for _, r := range batch.Records {
		if r.Flags.MissingCustomer {
			s.MissingCustomer++
		}
		if r.Flags.NegativeQuantity {
			s.NegativeQuantity++
		}
		if r.Flags.DateFormatIssue {
			s.DateFormatIssue++
		}
		if r.Flags.SuspiciousValues {
			s.SuspiciousValues++
		}
		if r.Product.ProductName == nil || !r.Product.Price.Valid {
			s.MissingProductInfo++
		}
		if !r.Product.Price.Valid || !r.Product.Price.Decimal.IsPositive() {
			s.InvalidPrices++
		}

		idCount[r.TransactionID]++

		first, seen := firstPrice[r.Product.ProductID]
		if !seen {
			firstPrice[r.Product.ProductID] = r.Product
			continue
		}
		if !conflicted[r.Product.ProductID] && !samePrice(first, r.Product) {
			conflicted[r.Product.ProductID] = true
			s.ProductPriceConflicts++
		}
	}

	// Every record sharing an id counts, not just the repeats.
	for _, n := range idCount {
		if n > 1 {
			s.DuplicateTransactionIDs += n
		}
	}

	return s
}

func samePrice(a, b domain.Product) bool {
	if a.Price.Valid != b.Price.Valid {
		return false
	}
	return !a.Price.Valid || a.Price.Decimal.Equal(b.Price.Decimal)
}

// Log writes the summary the way the run reports it.
func (s Summary) Log(log zerolog.Logger) {
	log.Info().
		Int("total_records", s.TotalRecords).
		Int("loaded_records", s.LoadedRecords).
		Int("skipped_records", s.SkippedRecords).
		Msg("Data quality summary")

	if s.MissingCustomer > 0 {
		log.Warn().Int("count", s.MissingCustomer).Msg("records with missing customer_id")
	}
	if s.NegativeQuantity > 0 {
		log.Warn().Int("count", s.NegativeQuantity).Msg("records with negative quantity")
	}
	if s.DateFormatIssue > 0 {
		log.Warn().Int("count", s.DateFormatIssue).Msg("date format issues")
	}
	if s.SuspiciousValues > 0 {
		log.Warn().Int("count", s.SuspiciousValues).Msg("records with suspicious business values")
	}
	if s.DuplicateTransactionIDs > 0 {
		log.Error().Int("count", s.DuplicateTransactionIDs).Msg("duplicate transaction IDs")
	}
	if s.MissingProductInfo > 0 {
		log.Error().Int("count", s.MissingProductInfo).Msg("records with missing product info")
	}
	if s.InvalidPrices > 0 {
		log.Error().Int("count", s.InvalidPrices).Msg("invalid prices")
	}
	if s.ProductPriceConflicts > 0 {
		log.Warn().Int("count", s.ProductPriceConflicts).Msg("products seen with differing prices, first occurrence kept")
	}
	for reason, n := range s.SkipReasons {
		log.Warn().Str("reason", string(reason)).Int("count", n).Msg("records skipped")
	}
}
