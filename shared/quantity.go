package shared

import (
	"github.com/shopspring/decimal"
)

// Truncate floors the provided quantity to the given number of decimal digits.
// It never rounds up.
func Truncate(quantity float64, precision int32) float64 {
	return decimal.NewFromFloat(quantity).Truncate(precision).InexactFloat64()
}

// FormatQuantity renders the provided quantity truncated to the given number of
// decimal digits, as expected by exchange order parameters.
func FormatQuantity(quantity float64, precision int32) string {
	return decimal.NewFromFloat(quantity).Truncate(precision).StringFixed(precision)
}
