package report

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dvloznov/sales-pipeline/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLReporter_RegionalSales(t *testing.T) {
	tests := []struct {
		variant    Variant
		wantFilter bool
	}{
		{variant: VariantOptimized, wantFilter: true},
		{variant: VariantBasic, wantFilter: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.variant), func(t *testing.T) {
			db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
			require.NoError(t, err)
			defer db.Close()

			want := "SELECT region, SUM(total_value) AS total_sales FROM transactions GROUP BY region ORDER BY total_sales DESC, region ASC"
			if tt.wantFilter {
				want = "SELECT region, SUM(total_value) AS total_sales FROM transactions WHERE total_value > 0 GROUP BY region ORDER BY total_sales DESC, region ASC"
			}
			mock.ExpectQuery(want).WillReturnRows(
				sqlmock.NewRows([]string{"region", "total_sales"}).
					AddRow("North", "1200.50").
					AddRow(nil, []byte("99.99")),
			)

			rows, err := NewSQLReporter(db, store.Postgres).RegionalSales(context.Background(), tt.variant)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, "North", rows[0].Region)
			assert.True(t, decimal.RequireFromString("1200.50").Equal(rows[0].TotalSales))
			assert.Equal(t, "", rows[1].Region)
			assert.True(t, decimal.RequireFromString("99.99").Equal(rows[1].TotalSales))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLReporter_TopProducts(t *testing.T) {
	tests := []struct {
		dialect store.Dialect
		pattern string
	}{
		{dialect: store.Postgres, pattern: `(?s)^SELECT p\.product_id, .*ORDER BY total_sales DESC, p\.product_id ASC LIMIT \$1$`},
		{dialect: store.SQLServer, pattern: `(?s)^SELECT TOP \(@p1\) p\.product_id, .*GROUP BY p\.product_id, p\.product_name`},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectQuery(tt.pattern).
				WithArgs(TopProductsLimit).
				WillReturnRows(sqlmock.NewRows([]string{"product_id", "product_name", "total_sales"}).
					AddRow("P01", "Laptop", "5000").
					AddRow("P02", nil, "12.5"))

			rows, err := NewSQLReporter(db, tt.dialect).TopProducts(context.Background(), TopProductsLimit)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, ProductTotal{ProductID: "P01", ProductName: "Laptop", TotalSales: rows[0].TotalSales}, rows[0])
			assert.Equal(t, "", rows[1].ProductName)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLReporter_MonthlyTrend(t *testing.T) {
	tests := []struct {
		dialect store.Dialect
		month   string
	}{
		{dialect: store.Postgres, month: "to_char(date_std, 'YYYY-MM')"},
		{dialect: store.SQLServer, month: "CONVERT(char(7), date_std, 126)"},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectQuery(regexp.QuoteMeta("SELECT " + tt.month + " AS month")).
				WillReturnRows(sqlmock.NewRows([]string{"month", "total_sales"}).
					AddRow("2023-01", "10").
					AddRow("2023-02", "20"))

			rows, err := NewSQLReporter(db, tt.dialect).MonthlyTrend(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []string{"2023-01", "2023-02"}, []string{rows[0].Month, rows[1].Month})
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLReporter_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT region").WillReturnError(errors.New("relation \"transactions\" does not exist"))

	_, err = Run(context.Background(), NewSQLReporter(db, store.Postgres), VariantOptimized)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "regional sales")
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, Reports{
		Variant:     VariantOptimized,
		Regional:    []RegionTotal{{Region: "North", TotalSales: decimal.RequireFromString("1200.5")}},
		TopProducts: []ProductTotal{{ProductID: "P01", ProductName: "Laptop", TotalSales: decimal.NewFromInt(5000)}},
		Monthly:     []MonthTotal{{Month: "2023-07", TotalSales: decimal.NewFromInt(42)}},
	})

	out := buf.String()
	assert.Contains(t, out, "Regional sales (optimized)")
	assert.Contains(t, out, "1200.50")
	assert.Contains(t, out, "Laptop")
	assert.Contains(t, out, "5000.00")
	assert.Contains(t, out, "2023-07")
}
