package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dvloznov/sales-pipeline/internal/domain"
	"github.com/shopspring/decimal"
)

// Source keys.
const (
	keyTransactionID = "transaction_id"
	keyCustomerID    = "customer_id"
	keyProductID     = "product_id"
	keyProductName   = "product_name"
	keyCategory      = "category"
	keyPrice         = "price"
	keyQuantity      = "quantity"
	keyDate          = "date"
	keyRegion        = "region"
	keyTotalValue    = "total_value"
	keyProduct       = "product"
)

// nestedProductKeys maps the keys of a nested "product" object onto flat keys.
var nestedProductKeys = map[string]string{
	"id":       keyProductID,
	"name":     keyProductName,
	"category": keyCategory,
	"price":    keyPrice,
}

// DecodeRecord maps one loosely typed source object onto a RawRecord.
// A key holding a value of the wrong type is left nil and listed in Malformed.
func DecodeRecord(m map[string]interface{}, position int) domain.RawRecord {
	m = flattenProduct(m)
	rec := domain.RawRecord{Position: position}

	str := func(key string) *string {
		v, err := getOptionalStringField(m, key)
		if err != nil {
			rec.Malformed = append(rec.Malformed, key)
			return nil
		}
		return v
	}
	dec := func(key string) *decimal.Decimal {
		v, err := getOptionalDecimalField(m, key)
		if err != nil {
			rec.Malformed = append(rec.Malformed, key)
			return nil
		}
		return v
	}

	rec.TransactionID = str(keyTransactionID)
	rec.CustomerID = str(keyCustomerID)
	rec.ProductID = str(keyProductID)
	rec.ProductName = str(keyProductName)
	rec.Category = str(keyCategory)
	rec.Price = dec(keyPrice)
	rec.Quantity = dec(keyQuantity)
	rec.Date = str(keyDate)
	rec.Region = str(keyRegion)
	rec.TotalValue = dec(keyTotalValue)

	return rec
}

// flattenProduct lifts the fields of a nested product object to the top level.
// Flat keys already present win.
func flattenProduct(m map[string]interface{}) map[string]interface{} {
	nested, ok := m[keyProduct].(map[string]interface{})
	if !ok {
		return m
	}
	out := make(map[string]interface{}, len(m)+len(nested))
	for k, v := range m {
		if k != keyProduct {
			out[k] = v
		}
	}
	for k, v := range nested {
		flat, known := nestedProductKeys[k]
		if !known {
			continue
		}
		if _, exists := out[flat]; !exists {
			out[flat] = v
		}
	}
	return out
}

func getOptionalStringField(m map[string]interface{}, key string) (*string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case string:
		return &val, nil
	case json.Number:
		s := val.String()
		return &s, nil
	case float64:
		s := strconv.FormatFloat(val, 'f', -1, 64)
		return &s, nil
	default:
		return nil, fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

func getOptionalDecimalField(m map[string]interface{}, key string) (*decimal.Decimal, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	var (
		d   decimal.Decimal
		err error
	)
	switch val := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(val.String())
	case float64:
		d = decimal.NewFromFloat(val)
	case int:
		d = decimal.NewFromInt(int64(val))
	case int64:
		d = decimal.NewFromInt(val)
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		d, err = decimal.NewFromString(s)
	default:
		return nil, fmt.Errorf("field %q has type %T, want number", key, v)
	}
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", key, err)
	}
	return &d, nil
}
