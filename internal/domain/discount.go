package domain

import "github.com/shopspring/decimal"

// DiscountType selects how an order discount is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// OrderDiscount is a single order-level discount. Value is a percentage for
// DiscountPercentage and an amount in minor units for DiscountFixed.
type OrderDiscount struct {
	Type  DiscountType    `json:"type"`
	Value decimal.Decimal `json:"value"`
}
