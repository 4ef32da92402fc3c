package report

import (
	"context"
	"fmt"
	"testing"

	"github.com/dvloznov/sales-pipeline/internal/domain"
	"github.com/dvloznov/sales-pipeline/internal/transform"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func sale(txID, product, price, qty, date, region string) domain.RawRecord {
	return domain.RawRecord{
		TransactionID: strPtr(txID),
		CustomerID:    strPtr("C-" + txID),
		ProductID:     strPtr(product),
		ProductName:   strPtr("Name " + product),
		Price:         decPtr(price),
		Quantity:      decPtr(qty),
		Date:          strPtr(date),
		Region:        strPtr(region),
	}
}

func buildBatch(raws ...domain.RawRecord) transform.Batch {
	batch, _ := transform.New(transform.DefaultThresholds()).TransformBatch(raws)
	return batch
}

func sampleBatch() transform.Batch {
	return buildBatch(
		sale("T1", "P1", "10", "3", "2023-01-15", "North"),
		sale("T2", "P2", "5", "-2", "2023-01-20", "North"),
		sale("T3", "P1", "10", "1", "2023-02-02", "South"),
		sale("T4", "P3", "7.5", "2", "31/02/2023", "East"),
		sale("T5", "P2", "5", "4", "2023-03-01", "West"),
		sale("T6", "P4", "1", "-10", "2023-03-09", "West"),
	)
}

func sumRegional(rows []RegionTotal) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.TotalSales)
	}
	return total
}

func TestMemoryReporter_RegionalTotalsMatchTransactions(t *testing.T) {
	batch := sampleBatch()
	r := NewMemoryReporter(batch)

	positive, all := decimal.Zero, decimal.Zero
	for _, rec := range batch.Records {
		all = all.Add(rec.TotalValue)
		if rec.TotalValue.IsPositive() {
			positive = positive.Add(rec.TotalValue)
		}
	}

	optimized, err := r.RegionalSales(context.Background(), VariantOptimized)
	require.NoError(t, err)
	assert.True(t, positive.Equal(sumRegional(optimized)), "optimized: %s != %s", positive, sumRegional(optimized))

	basic, err := r.RegionalSales(context.Background(), VariantBasic)
	require.NoError(t, err)
	assert.True(t, all.Equal(sumRegional(basic)), "basic: %s != %s", all, sumRegional(basic))
}

func TestMemoryReporter_RegionalOrdering(t *testing.T) {
	rows, err := NewMemoryReporter(sampleBatch()).RegionalSales(context.Background(), VariantOptimized)
	require.NoError(t, err)

	// North 30, West 20, East 15, South 10.
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"North", "West", "East", "South"}, []string{rows[0].Region, rows[1].Region, rows[2].Region, rows[3].Region})
	assert.Equal(t, "30", rows[0].TotalSales.String())

	basic, err := NewMemoryReporter(sampleBatch()).RegionalSales(context.Background(), VariantBasic)
	require.NoError(t, err)
	// North 30-10=20, East 15, West 20-10=10, South 10: tie broken by region name.
	assert.Equal(t, []string{"North", "East", "South", "West"}, []string{basic[0].Region, basic[1].Region, basic[2].Region, basic[3].Region})
}

func TestMemoryReporter_NullRegionIsItsOwnGroup(t *testing.T) {
	noRegion := sale("T3", "P3", "5", "1", "2023-01-03", "")
	noRegion.Region = nil

	batch := buildBatch(
		sale("T1", "P1", "5", "1", "2023-01-01", ""),
		sale("T2", "P2", "5", "1", "2023-01-02", "North"),
		noRegion,
		sale("T4", "P4", "9", "1", "2023-01-04", "South"),
	)

	rows, err := NewMemoryReporter(batch).RegionalSales(context.Background(), VariantOptimized)
	require.NoError(t, err)

	// South 9, then a three-way tie at 5: "" and North by name, NULL last.
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"South", "", "North", ""}, []string{rows[0].Region, rows[1].Region, rows[2].Region, rows[3].Region})
	for _, r := range rows[1:] {
		assert.Equal(t, "5", r.TotalSales.String())
	}
}

func TestMemoryReporter_TopFiveOfSixProducts(t *testing.T) {
	var raws []domain.RawRecord
	for i := 1; i <= 6; i++ {
		raws = append(raws, sale(fmt.Sprintf("T%d", i), fmt.Sprintf("P%d", i), fmt.Sprint(i*10), "1", "2023-05-01", "North"))
	}

	rows, err := NewMemoryReporter(buildBatch(raws...)).TopProducts(context.Background(), TopProductsLimit)
	require.NoError(t, err)

	require.Len(t, rows, 5)
	for i, want := range []string{"P6", "P5", "P4", "P3", "P2"} {
		assert.Equal(t, want, rows[i].ProductID)
	}
	assert.Equal(t, "Name P6", rows[0].ProductName)
	for i := 1; i < len(rows); i++ {
		assert.True(t, rows[i-1].TotalSales.GreaterThan(rows[i].TotalSales))
	}
}

func TestMemoryReporter_TopProductsUsesFirstSeenName(t *testing.T) {
	first := sale("T1", "P1", "10", "1", "2023-05-01", "North")
	second := sale("T2", "P1", "10", "1", "2023-05-02", "North")
	second.ProductName = strPtr("Renamed")

	rows, err := NewMemoryReporter(buildBatch(first, second)).TopProducts(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Name P1", rows[0].ProductName)
	assert.Equal(t, "20", rows[0].TotalSales.String())

	_, err = NewMemoryReporter(buildBatch(first)).TopProducts(context.Background(), 0)
	assert.Error(t, err)
}

func TestMemoryReporter_MonthlyTrend(t *testing.T) {
	rows, err := NewMemoryReporter(sampleBatch()).MonthlyTrend(context.Background())
	require.NoError(t, err)

	// T4 has no standard date and is excluded.
	require.Len(t, rows, 3)
	assert.Equal(t, MonthTotal{Month: "2023-01", TotalSales: rows[0].TotalSales}, rows[0])
	assert.Equal(t, "20", rows[0].TotalSales.String())
	assert.Equal(t, "2023-02", rows[1].Month)
	assert.Equal(t, "2023-03", rows[2].Month)
	assert.Equal(t, "10", rows[2].TotalSales.String())
}

func TestRun(t *testing.T) {
	out, err := Run(context.Background(), NewMemoryReporter(sampleBatch()), VariantBasic)
	require.NoError(t, err)
	assert.Equal(t, VariantBasic, out.Variant)
	assert.Len(t, out.Regional, 4)
	assert.Len(t, out.TopProducts, 4)
	assert.Len(t, out.Monthly, 3)
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("")
	require.NoError(t, err)
	assert.Equal(t, VariantOptimized, v)

	v, err = ParseVariant("BASIC")
	require.NoError(t, err)
	assert.Equal(t, VariantBasic, v)

	_, err = ParseVariant("fast")
	assert.Error(t, err)
}
