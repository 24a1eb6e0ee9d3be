// Package pricing holds the pure money calculations for carts and orders.
// Every function is side-effect free and works in integer minor units; rates
// are decimals so tax and percentage discounts never pass through float64.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/utafrali/RestaurantPOS/internal/domain"
	"github.com/utafrali/RestaurantPOS/pkg/money"
)

// Warning names a data-integrity condition that ComputeTotals corrected.
type Warning string

const (
	// WarnStaleDiscount: a fixed discount exceeded the subtotal after the cart
	// shrank and was clamped.
	WarnStaleDiscount Warning = "stale_discount"
	// WarnStaleLineDiscount: a line discount exceeded its line's gross amount
	// and the line net was clamped to zero.
	WarnStaleLineDiscount Warning = "stale_line_discount"
	// WarnNegativeTotal: the total came out negative and was clamped to zero.
	WarnNegativeTotal Warning = "negative_total"
)

// Totals is the result of ComputeTotals. Total == Subtotal + Tax - Discount
// unless WarnNegativeTotal is present.
type Totals struct {
	Subtotal int64     `json:"subtotal"`
	Tax      int64     `json:"tax"`
	Discount int64     `json:"discount"`
	Total    int64     `json:"total"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// LineTax is the tax on a single line, rounded to a whole minor unit.
func LineTax(l *domain.Line) int64 {
	return money.PercentOf(l.Net(), l.TaxRate)
}

// Subtotal sums line nets.
func Subtotal(lines []domain.Line) int64 {
	var s int64
	for i := range lines {
		s += lines[i].Net()
	}
	return s
}

// ComputeTotals derives subtotal, per-line tax, the order discount and total.
func ComputeTotals(lines []domain.Line, d *domain.OrderDiscount) Totals {
	var t Totals
	for i := range lines {
		if lines[i].LineDiscount > lines[i].Gross() {
			t.Warnings = append(t.Warnings, WarnStaleLineDiscount)
		}
		t.Subtotal += lines[i].Net()
		t.Tax += LineTax(&lines[i])
	}

	if d != nil {
		t.Discount = discountAmount(d.Type, d.Value, t.Subtotal)
		if d.Type == domain.DiscountFixed && d.Value.GreaterThan(decimal.NewFromInt(t.Subtotal)) {
			t.Warnings = append(t.Warnings, WarnStaleDiscount)
		}
	}

	t.Total = t.Subtotal + t.Tax - t.Discount
	if t.Total < 0 {
		t.Total = 0
		t.Warnings = append(t.Warnings, WarnNegativeTotal)
	}
	return t
}

// discountAmount returns the discount for subtotal clamped to [0, subtotal].
func discountAmount(typ domain.DiscountType, value decimal.Decimal, subtotal int64) int64 {
	var amt int64
	switch typ {
	case domain.DiscountPercentage:
		amt = money.PercentOf(subtotal, value)
	case domain.DiscountFixed:
		amt = value.Round(0).IntPart()
	}
	return max(0, min(amt, subtotal))
}

// ApplyDiscount validates an order discount against the current subtotal.
// The result replaces any existing discount; discounts do not stack.
func ApplyDiscount(typ domain.DiscountType, value decimal.Decimal, subtotal int64) (domain.OrderDiscount, error) {
	if !typ.Valid() {
		return domain.OrderDiscount{}, domain.Errorf(domain.ErrInvalidDiscount, "discount type must be percentage or fixed")
	}
	if !value.IsPositive() {
		return domain.OrderDiscount{}, domain.ErrInvalidDiscount
	}
	switch typ {
	case domain.DiscountPercentage:
		if value.GreaterThan(decimal.NewFromInt(100)) {
			return domain.OrderDiscount{}, domain.ErrDiscountExceedsLimit
		}
	case domain.DiscountFixed:
		if !value.Equal(value.Truncate(0)) {
			return domain.OrderDiscount{}, domain.Errorf(domain.ErrInvalidDiscount, "fixed discount must be whole minor units")
		}
		if value.GreaterThan(decimal.NewFromInt(subtotal)) {
			return domain.OrderDiscount{}, domain.ErrDiscountExceedsSubtotal
		}
	}
	return domain.OrderDiscount{Type: typ, Value: value}, nil
}

// PreviewDiscount returns the amount ApplyDiscount would take off subtotal,
// without committing anything.
func PreviewDiscount(typ domain.DiscountType, value decimal.Decimal, subtotal int64) (int64, error) {
	d, err := ApplyDiscount(typ, value, subtotal)
	if err != nil {
		return 0, err
	}
	return discountAmount(d.Type, d.Value, subtotal), nil
}
