package bigquery

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/sales-pipeline/internal/report"
	"google.golang.org/api/iterator"
)

func regionalSalesSQL(datasetID string, variant report.Variant) string {
	filter := ""
	if variant != report.VariantBasic {
		filter = "WHERE total_value > 0"
	}
	return fmt.Sprintf(`
		SELECT region, SUM(total_value) AS total_sales
		FROM %s.%s
		%s
		GROUP BY region
		ORDER BY total_sales DESC, region ASC
	`, datasetID, transactionsTable, filter)
}

func topProductsSQL(datasetID string) string {
	return fmt.Sprintf(`
		SELECT p.product_id, p.product_name, SUM(t.total_value) AS total_sales
		FROM %s.%s t
		JOIN %s.%s p ON t.product_id = p.product_id
		GROUP BY p.product_id, p.product_name
		ORDER BY total_sales DESC, p.product_id ASC
		LIMIT @limit
	`, datasetID, transactionsTable, datasetID, productsTable)
}

func monthlyTrendSQL(datasetID string) string {
	return fmt.Sprintf(`
		SELECT FORMAT_DATE('%%Y-%%m', date_std) AS month, SUM(total_value) AS total_sales
		FROM %s.%s
		WHERE date_std IS NOT NULL
		GROUP BY month
		ORDER BY month ASC
	`, datasetID, transactionsTable)
}

// RegionalSalesWithClient sums total_value per region, highest first.
func RegionalSalesWithClient(ctx context.Context, client *bigquery.Client, datasetID string, variant report.Variant) ([]report.RegionTotal, error) {
	it, err := client.Query(regionalSalesSQL(datasetID, variant)).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("RegionalSales: running query: %w", err)
	}

	var out []report.RegionTotal
	for {
		var row struct {
			Region     bigquery.NullString `bigquery:"region"`
			TotalSales *big.Rat            `bigquery:"total_sales"`
		}
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("RegionalSales: reading row: %w", err)
		}
		out = append(out, report.RegionTotal{
			Region:     row.Region.StringVal,
			TotalSales: ratToDecimal(row.TotalSales),
		})
	}
	return out, nil
}

// TopProductsWithClient returns the limit best-selling products.
func TopProductsWithClient(ctx context.Context, client *bigquery.Client, datasetID string, limit int) ([]report.ProductTotal, error) {
	q := client.Query(topProductsSQL(datasetID))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: int64(limit)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("TopProducts: running query: %w", err)
	}

	var out []report.ProductTotal
	for {
		var row struct {
			ProductID   string              `bigquery:"product_id"`
			ProductName bigquery.NullString `bigquery:"product_name"`
			TotalSales  *big.Rat            `bigquery:"total_sales"`
		}
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("TopProducts: reading row: %w", err)
		}
		out = append(out, report.ProductTotal{
			ProductID:   row.ProductID,
			ProductName: row.ProductName.StringVal,
			TotalSales:  ratToDecimal(row.TotalSales),
		})
	}
	return out, nil
}

// MonthlyTrendWithClient sums total_value per month of date_std, oldest first.
func MonthlyTrendWithClient(ctx context.Context, client *bigquery.Client, datasetID string) ([]report.MonthTotal, error) {
	it, err := client.Query(monthlyTrendSQL(datasetID)).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("MonthlyTrend: running query: %w", err)
	}

	var out []report.MonthTotal
	for {
		var row struct {
			Month      string   `bigquery:"month"`
			TotalSales *big.Rat `bigquery:"total_sales"`
		}
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("MonthlyTrend: reading row: %w", err)
		}
		out = append(out, report.MonthTotal{Month: row.Month, TotalSales: ratToDecimal(row.TotalSales)})
	}
	return out, nil
}
