package report

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dvloznov/sales-pipeline/internal/store"
)

// SQLReporter runs the reports against the relational target.
type SQLReporter struct {
	db      *sql.DB
	dialect store.Dialect
}

// NewSQLReporter creates a reporter over db.
func NewSQLReporter(db *sql.DB, dialect store.Dialect) *SQLReporter {
	return &SQLReporter{db: db, dialect: dialect}
}

func regionalQuery(variant Variant) string {
	filter := ""
	if variant != VariantBasic {
		filter = "WHERE total_value > 0 "
	}
	return "SELECT region, SUM(total_value) AS total_sales FROM transactions " + filter +
		"GROUP BY region ORDER BY total_sales DESC, region ASC"
}

func topProductsQuery(d store.Dialect) string {
	const body = `p.product_id, p.product_name, SUM(t.total_value) AS total_sales
		FROM transactions t
		JOIN products p ON t.product_id = p.product_id
		GROUP BY p.product_id, p.product_name
		ORDER BY total_sales DESC, p.product_id ASC`
	if d == store.SQLServer {
		return fmt.Sprintf("SELECT TOP (%s) %s", d.Placeholder(1), body)
	}
	return fmt.Sprintf("SELECT %s LIMIT %s", body, d.Placeholder(1))
}

func monthlyQuery(d store.Dialect) string {
	month := "to_char(date_std, 'YYYY-MM')"
	if d == store.SQLServer {
		month = "CONVERT(char(7), date_std, 126)"
	}
	return fmt.Sprintf(`SELECT %s AS month, SUM(total_value) AS total_sales
		FROM transactions
		WHERE date_std IS NOT NULL
		GROUP BY %s
		ORDER BY month ASC`, month, month)
}

// RegionalSales sums total_value per region, highest first.
func (r *SQLReporter) RegionalSales(ctx context.Context, variant Variant) ([]RegionTotal, error) {
	rows, err := r.db.QueryContext(ctx, regionalQuery(variant))
	if err != nil {
		return nil, fmt.Errorf("RegionalSales: querying: %w", err)
	}
	defer rows.Close()

	var out []RegionTotal
	for rows.Next() {
		var (
			region sql.NullString
			row    RegionTotal
		)
		if err := rows.Scan(&region, &row.TotalSales); err != nil {
			return nil, fmt.Errorf("RegionalSales: scanning: %w", err)
		}
		row.Region = region.String
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("RegionalSales: iterating: %w", err)
	}
	return out, nil
}

// TopProducts returns the limit best-selling products by total sales.
func (r *SQLReporter) TopProducts(ctx context.Context, limit int) ([]ProductTotal, error) {
	rows, err := r.db.QueryContext(ctx, topProductsQuery(r.dialect), limit)
	if err != nil {
		return nil, fmt.Errorf("TopProducts: querying: %w", err)
	}
	defer rows.Close()

	var out []ProductTotal
	for rows.Next() {
		var (
			name sql.NullString
			row  ProductTotal
		)
		if err := rows.Scan(&row.ProductID, &name, &row.TotalSales); err != nil {
			return nil, fmt.Errorf("TopProducts: scanning: %w", err)
		}
		row.ProductName = name.String
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("TopProducts: iterating: %w", err)
	}
	return out, nil
}

// MonthlyTrend sums total_value per calendar month of date_std, oldest first.
func (r *SQLReporter) MonthlyTrend(ctx context.Context) ([]MonthTotal, error) {
	rows, err := r.db.QueryContext(ctx, monthlyQuery(r.dialect))
	if err != nil {
		return nil, fmt.Errorf("MonthlyTrend: querying: %w", err)
	}
	defer rows.Close()

	var out []MonthTotal
	for rows.Next() {
		var row MonthTotal
		if err := rows.Scan(&row.Month, &row.TotalSales); err != nil {
			return nil, fmt.Errorf("MonthlyTrend: scanning: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("MonthlyTrend: iterating: %w", err)
	}
	return out, nil
}
