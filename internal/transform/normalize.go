package transform

import (
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/sales-pipeline/internal/domain"
	"github.com/shopspring/decimal"
)

// acceptedDateLayouts are tried in order; the first successful parse wins.
// Numeric day/month layouts are month first, then day first.
var acceptedDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-1-2",
	"2006/1/2",
	"2006 1 2",
	"20060102",
	"1/2/2006",
	"2/1/2006",
	"1-2-2006",
	"2-1-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

var (
	splitDigitGroup = regexp.MustCompile(`(\d{2})\s+(\d{2})([-/\s])`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// NormalizeCustomer substitutes UnknownCustomer for an absent or blank id.
func NormalizeCustomer(raw *string) (string, bool) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return domain.UnknownCustomer, true
	}
	return *raw, false
}

// NormalizeQuantity flags a negative quantity. The value is never changed.
func NormalizeQuantity(raw int64) (int64, bool) {
	return raw, raw < 0
}

// NormalizeDate parses raw with the accepted layouts. When none matches, a
// digit group split by whitespace ("20 23-07-22") is repaired and parsing is
// retried once. An absent or unparseable date yields (nil, true).
func NormalizeDate(raw *string) (*civil.Date, bool) {
	if raw == nil {
		return nil, true
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil, true
	}

	if d, ok := parseDate(s); ok {
		return &d, false
	}

	repaired := splitDigitGroup.ReplaceAllString(s, "$1$2$3")
	repaired = whitespaceRun.ReplaceAllString(repaired, "-")
	if repaired != s {
		if d, ok := parseDate(repaired); ok {
			return &d, false
		}
	}

	return nil, true
}

func parseDate(s string) (civil.Date, bool) {
	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			// civil.DateOf uses t's own offset, so the zone is ignored.
			return civil.DateOf(t), true
		}
	}
	return civil.Date{}, false
}

// ComputeTotalValue returns price × quantity. A negative quantity gives a negative total.
func ComputeTotalValue(price decimal.Decimal, quantity int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(quantity))
}
