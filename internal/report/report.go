// Package report runs the canonical sales aggregations: regional totals,
// top products and the monthly trend.
package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TopProductsLimit is the row count of the top products report.
const TopProductsLimit = 5

// Variant selects the regional totals query.
type Variant string

const (
	// VariantOptimized only sums positive totals.
	VariantOptimized Variant = "optimized"
	// VariantBasic sums every transaction.
	VariantBasic Variant = "basic"
)

// ParseVariant validates a variant name.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case VariantOptimized, VariantBasic:
		return v, nil
	case "":
		return VariantOptimized, nil
	default:
		return "", fmt.Errorf("unknown report variant %q", s)
	}
}

type RegionTotal struct {
	Region     string
	TotalSales decimal.Decimal
}

type ProductTotal struct {
	ProductID   string
	ProductName string
	TotalSales  decimal.Decimal
}

type MonthTotal struct {
	Month      string // YYYY-MM
	TotalSales decimal.Decimal
}

// Reports is the output of one reporting pass.
type Reports struct {
	Variant     Variant
	Regional    []RegionTotal
	TopProducts []ProductTotal
	Monthly     []MonthTotal
}

// Reporter runs the three aggregations against some persisted form of the data.
type Reporter interface {
	RegionalSales(ctx context.Context, variant Variant) ([]RegionTotal, error)
	TopProducts(ctx context.Context, limit int) ([]ProductTotal, error)
	MonthlyTrend(ctx context.Context) ([]MonthTotal, error)
}

// Run executes all three reports.
func Run(ctx context.Context, r Reporter, variant Variant) (Reports, error) {
	out := Reports{Variant: variant}

	var err error
	if out.Regional, err = r.RegionalSales(ctx, variant); err != nil {
		return Reports{}, fmt.Errorf("Run: regional sales: %w", err)
	}
	if out.TopProducts, err = r.TopProducts(ctx, TopProductsLimit); err != nil {
		return Reports{}, fmt.Errorf("Run: top products: %w", err)
	}
	if out.Monthly, err = r.MonthlyTrend(ctx); err != nil {
		return Reports{}, fmt.Errorf("Run: monthly trend: %w", err)
	}
	return out, nil
}
