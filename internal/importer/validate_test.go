package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashboard-service/internal/models"
)

func salesRow(line int, cells map[string]string) RawRow {
	return RawRow{Line: line, Cells: cells}
}

func TestValidateRow_SalesValid(t *testing.T) {
	raw := salesRow(2, map[string]string{
		"Order ID":   "WB-1001",
		"SKU":        "TS-001",
		"Color":      "Red",
		"Size":       "M",
		"Quantity":   "2",
		"Amount":     "2490.50",
		"Order Date": "2025-02-01",
	})

	row, rowErr := ValidateRow(models.ImportTypeSales, raw)

	require.Nil(t, rowErr)
	assert.Equal(t, 2, row.Line)
	assert.Equal(t, "WB-1001", row.String(FieldOrderID))
	assert.Equal(t, int64(2), row.Int(FieldQuantity))
	assert.Equal(t, 2490.50, row.Number(FieldAmount))
	orderDate, ok := row.Date(FieldOrderDate)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC), orderDate)
}

func TestValidateRow_MissingRequiredField(t *testing.T) {
	raw := salesRow(5, map[string]string{
		"Order ID":   "WB-1001",
		"Quantity":   "2",
		"Amount":     "100",
		"Order Date": "2025-02-01",
	})

	row, rowErr := ValidateRow(models.ImportTypeSales, raw)

	assert.Nil(t, row)
	require.NotNil(t, rowErr)
	assert.Equal(t, 5, rowErr.Row)
	assert.Equal(t, "sku", rowErr.Field)
}

func TestValidateRow_NegativeQuantity(t *testing.T) {
	raw := salesRow(37, map[string]string{
		"Order ID":   "WB-1001",
		"SKU":        "TS-001",
		"Quantity":   "-5",
		"Amount":     "100",
		"Order Date": "2025-02-01",
	})

	row, rowErr := ValidateRow(models.ImportTypeSales, raw)

	assert.Nil(t, row)
	require.NotNil(t, rowErr)
	assert.Equal(t, 37, rowErr.Row)
	assert.Equal(t, "quantity", rowErr.Field)
	assert.Equal(t, "-5", rowErr.Value)
	assert.Contains(t, rowErr.Message, "negative")
}

func TestValidateRow_BadDate(t *testing.T) {
	raw := salesRow(3, map[string]string{
		"Order ID":   "WB-1001",
		"SKU":        "TS-001",
		"Quantity":   "1",
		"Amount":     "100",
		"Order Date": "not a date",
	})

	row, rowErr := ValidateRow(models.ImportTypeSales, raw)

	assert.Nil(t, row)
	require.NotNil(t, rowErr)
	assert.Equal(t, "order_date", rowErr.Field)
}

func TestValidateRow_FractionalQuantityRejected(t *testing.T) {
	raw := salesRow(4, map[string]string{
		"Order ID":   "WB-1001",
		"SKU":        "TS-001",
		"Quantity":   "1.5",
		"Amount":     "100",
		"Order Date": "2025-02-01",
	})

	_, rowErr := ValidateRow(models.ImportTypeSales, raw)

	require.NotNil(t, rowErr)
	assert.Contains(t, rowErr.Message, "whole number")
}

func TestValidateRow_OptionalFieldsMayBeEmpty(t *testing.T) {
	raw := salesRow(2, map[string]string{
		"Order ID":    "WB-1001",
		"SKU":         "TS-001",
		"Quantity":    "1",
		"Amount":      "100",
		"Order Date":  "2025-02-01",
		"Color":       "",
		"Marketplace": "",
	})

	row, rowErr := ValidateRow(models.ImportTypeSales, raw)

	require.Nil(t, rowErr)
	assert.Equal(t, "", row.String(FieldColor))
}

func TestValidateRow_SettlementNegativeAmountAllowed(t *testing.T) {
	// Settlements can be refunds; amount carries no non-negative rule.
	raw := salesRow(2, map[string]string{
		"Order ID":          "WB-1001",
		"Settlement Date":   "2025-02-05",
		"Settlement Amount": "-120.50",
	})

	row, rowErr := ValidateRow(models.ImportTypeAdvertisingSettlement, raw)

	require.Nil(t, rowErr)
	assert.Equal(t, -120.50, row.Number(FieldAmount))
}

func TestParseNumber_LocalizedFormats(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"555,000", 555000},   // comma groups thousands
		{"4,50", 4.5},         // comma as decimal separator
		{"1 234,56", 1234.56}, // space thousands, comma decimal
		{"1,234.56", 1234.56}, // comma thousands, dot decimal
		{"1.234,56", 1234.56}, // dot thousands, comma decimal
		{"₽2490.50", 2490.50},
		{"1500 руб.", 1500},
		{"-95,5", -95.5},
		{"0", 0},
	}

	for _, tc := range cases {
		got, err := parseNumber(tc.in)
		assert.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestParseNumber_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "12a", "--5"} {
		_, err := parseNumber(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestNaturalKey_Sales(t *testing.T) {
	row := ValidRow{Values: map[Field]interface{}{
		FieldOrderID: "WB-1001",
		FieldSKU:     "TS-001",
		FieldColor:   "Red",
		FieldSize:    "M",
	}}

	assert.Equal(t, "WB-1001|TS-001|Red|M", row.NaturalKey(models.ImportTypeSales))
}

func TestNaturalKey_DateFieldsUseCalendarDate(t *testing.T) {
	row := ValidRow{Values: map[Field]interface{}{
		FieldSKU:          "TS-001",
		FieldWarehouse:    "Moscow",
		FieldMovementDate: time.Date(2025, time.February, 1, 13, 45, 0, 0, time.UTC),
	}}

	assert.Equal(t, "TS-001|Moscow|2025-02-01", row.NaturalKey(models.ImportTypeStock))
}

func TestNaturalKey_MissingPartsEmpty(t *testing.T) {
	row := ValidRow{Values: map[Field]interface{}{
		FieldOrderID: "WB-1001",
		FieldSKU:     "TS-001",
	}}

	assert.Equal(t, "WB-1001|TS-001||", row.NaturalKey(models.ImportTypeSales))
}
