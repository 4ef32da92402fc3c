package report

import (
	"context"
	"fmt"
	"sort"

	"github.com/dvloznov/sales-pipeline/internal/transform"
	"github.com/shopspring/decimal"
)

// MemoryReporter computes the reports from a cleaned batch, with the same
// grouping, ordering and limits as the SQL queries. It serves targets that
// cannot be queried, such as the flat file.
type MemoryReporter struct {
	batch transform.Batch
}

// NewMemoryReporter creates a reporter over batch.
func NewMemoryReporter(batch transform.Batch) *MemoryReporter {
	return &MemoryReporter{batch: batch}
}

// regionKey keeps a missing region apart from an empty one, as GROUP BY does.
type regionKey struct {
	name string
	null bool
}

func (m *MemoryReporter) RegionalSales(ctx context.Context, variant Variant) ([]RegionTotal, error) {
	totals := make(map[regionKey]decimal.Decimal)
	for _, r := range m.batch.Records {
		if variant != VariantBasic && !r.TotalValue.IsPositive() {
			continue
		}
		key := regionKey{null: true}
		if r.Region != nil {
			key = regionKey{name: *r.Region}
		}
		totals[key] = totals[key].Add(r.TotalValue)
	}

	keys := make([]regionKey, 0, len(totals))
	for key := range totals {
		keys = append(keys, key)
	}
	// NULL sorts after every name on a tie, matching Postgres ascending order.
	sort.Slice(keys, func(i, j int) bool {
		if c := totals[keys[i]].Cmp(totals[keys[j]]); c != 0 {
			return c > 0
		}
		if keys[i].null != keys[j].null {
			return keys[j].null
		}
		return keys[i].name < keys[j].name
	})

	out := make([]RegionTotal, 0, len(keys))
	for _, key := range keys {
		out = append(out, RegionTotal{Region: key.name, TotalSales: totals[key]})
	}
	return out, nil
}

func (m *MemoryReporter) TopProducts(ctx context.Context, limit int) ([]ProductTotal, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("TopProducts: limit must be positive, got %d", limit)
	}

	// Names come from the product dimension, as the SQL join does.
	names := make(map[string]string)
	for _, p := range m.batch.Products() {
		if p.ProductName != nil {
			names[p.ProductID] = *p.ProductName
		}
	}

	totals := make(map[string]decimal.Decimal)
	for _, r := range m.batch.Records {
		totals[r.Product.ProductID] = totals[r.Product.ProductID].Add(r.TotalValue)
	}

	out := make([]ProductTotal, 0, len(totals))
	for id, total := range totals {
		out = append(out, ProductTotal{ProductID: id, ProductName: names[id], TotalSales: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalSales.Cmp(out[j].TotalSales); c != 0 {
			return c > 0
		}
		return out[i].ProductID < out[j].ProductID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryReporter) MonthlyTrend(ctx context.Context) ([]MonthTotal, error) {
	totals := make(map[string]decimal.Decimal)
	for _, r := range m.batch.Records {
		if r.DateStd == nil {
			continue
		}
		month := fmt.Sprintf("%04d-%02d", r.DateStd.Year, int(r.DateStd.Month))
		totals[month] = totals[month].Add(r.TotalValue)
	}

	out := make([]MonthTotal, 0, len(totals))
	for month, total := range totals {
		out = append(out, MonthTotal{Month: month, TotalSales: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}
