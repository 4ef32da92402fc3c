package transform

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/sales-pipeline/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNormalizeCustomer(t *testing.T) {
	tests := []struct {
		name     string
		raw      *string
		want     string
		wantFlag bool
	}{
		{name: "absent", raw: nil, want: domain.UnknownCustomer, wantFlag: true},
		{name: "empty", raw: strPtr(""), want: domain.UnknownCustomer, wantFlag: true},
		{name: "blank", raw: strPtr("   "), want: domain.UnknownCustomer, wantFlag: true},
		{name: "present", raw: strPtr("C001"), want: "C001", wantFlag: false},
		{name: "kept as given", raw: strPtr(" C002"), want: " C002", wantFlag: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, flag := NormalizeCustomer(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantFlag, flag)
		})
	}
}

func TestNormalizeQuantity(t *testing.T) {
	for _, q := range []int64{-1000, -3, -1, 0, 1, 7, 5000} {
		got, flag := NormalizeQuantity(q)
		assert.Equal(t, q, got, "quantity must pass through unchanged")
		assert.Equal(t, q < 0, flag)
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		raw  string
		want civil.Date
	}{
		{raw: "2023-07-22", want: civil.Date{Year: 2023, Month: 7, Day: 22}},
		{raw: "2023-7-2", want: civil.Date{Year: 2023, Month: 7, Day: 2}},
		{raw: "2023-07-22T14:30:00Z", want: civil.Date{Year: 2023, Month: 7, Day: 22}},
		{raw: "2023-07-22T23:30:00-05:00", want: civil.Date{Year: 2023, Month: 7, Day: 22}},
		{raw: "2023-07-22T14:30:00.123Z", want: civil.Date{Year: 2023, Month: 7, Day: 22}},
		{raw: "2023-07-22T14:30:00", want: civil.Date{Year: 2023, Month: 7, Day: 22}},
		{raw: "2023-07-22 14:30:00", want: civil.Date{Year: 2023, Month: 7, Day: 22}},
		{raw: "2023/07/22", want: civil.Date{Year: 2023, Month: 7, Day: 22}},
		{raw: "2023 07 22", want: civil.Date{Year: 2023, Month: 7, Day: 22}},
		{raw: "20230722", want: civil.Date{Year: 2023, Month: 7, Day: 22}},
		{raw: "07/22/2023", want: civil.Date{Year: 2023, Month: 7, Day: 22}},
		{raw: "22/07/2023", want: civil.Date{Year: 2023, Month: 7, Day: 22}},
		{raw: "01/02/2023", want: civil.Date{Year: 2023, Month: 1, Day: 2}},
		{raw: "07-22-2023", want: civil.Date{Year: 2023, Month: 7, Day: 22}},
		{raw: "22-07-2023", want: civil.Date{Year: 2023, Month: 7, Day: 22}},
		{raw: "Jul 22, 2023", want: civil.Date{Year: 2023, Month: 7, Day: 22}},
		{raw: "July 22, 2023", want: civil.Date{Year: 2023, Month: 7, Day: 22}},
		{raw: "22 Jul 2023", want: civil.Date{Year: 2023, Month: 7, Day: 22}},
		{raw: "  2023-07-22  ", want: civil.Date{Year: 2023, Month: 7, Day: 22}},
		{raw: "20 23-07-22", want: civil.Date{Year: 2023, Month: 7, Day: 22}},
		{raw: "2024-02-29", want: civil.Date{Year: 2024, Month: 2, Day: 29}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, issue := NormalizeDate(strPtr(tt.raw))
			require.NotNil(t, got)
			assert.False(t, issue)
			assert.True(t, got.IsValid())
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestNormalizeDate_Unparseable(t *testing.T) {
	for _, raw := range []string{"31/02/2023", "2023-02-30", "2023-13-01", "not a date", "", "   ", "13/13/2023", "2023-02-29"} {
		t.Run(raw, func(t *testing.T) {
			got, issue := NormalizeDate(strPtr(raw))
			assert.Nil(t, got)
			assert.True(t, issue)
		})
	}

	got, issue := NormalizeDate(nil)
	assert.Nil(t, got)
	assert.True(t, issue)
}

func TestComputeTotalValue(t *testing.T) {
	tests := []struct {
		price    string
		quantity int64
		want     string
	}{
		{price: "10", quantity: -3, want: "-30"},
		{price: "999.99", quantity: 2, want: "1999.98"},
		{price: "0.10", quantity: 3, want: "0.3"},
		{price: "5", quantity: 0, want: "0"},
	}

	for _, tt := range tests {
		got := ComputeTotalValue(decimal.RequireFromString(tt.price), tt.quantity)
		assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "%s × %d = %s, want %s", tt.price, tt.quantity, got, tt.want)
	}
}
