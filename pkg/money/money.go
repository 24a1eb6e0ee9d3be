// Package money converts between minor-unit integers and display strings.
package money

import "github.com/shopspring/decimal"

// Format renders minor units with two decimals, e.g. 1299 as "12.99".
func Format(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

// FormatWithCurrency renders minor units prefixed with an ISO currency code.
func FormatWithCurrency(minor int64, currency string) string {
	return currency + " " + Format(minor)
}

// PercentOf returns amount*pct/100 rounded half away from zero to a whole
// minor unit.
func PercentOf(amount int64, pct decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(pct).Div(decimal.NewFromInt(100)).Round(0).IntPart()
}

// MulDiv returns a*b/c truncated toward zero without overflowing on the
// intermediate product.
func MulDiv(a, b, c int64) int64 {
	q, _ := decimal.NewFromInt(a).Mul(decimal.NewFromInt(b)).QuoRem(decimal.NewFromInt(c), 0)
	return q.IntPart()
}
