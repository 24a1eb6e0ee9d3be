package domain

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Bounds that keep every amount derived from lines well inside int64.
const (
	MaxLineQuantity       = 9999
	MaxLineAmount   int64 = 1_000_000_000_000
	MaxOrderAmount  int64 = 10_000_000_000_000
)

// Line is one entry of a cart or order. Price, tax rate, name and kitchen flag
// are snapshotted from the catalog when the line is created. Lines are keyed
// by the menu item id.
type Line struct {
	ItemID         string          `json:"item_id"`
	Name           string          `json:"name"`
	UnitPrice      int64           `json:"unit_price"`
	Quantity       int             `json:"quantity"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	LineDiscount   int64           `json:"line_discount"`
	KitchenDisplay bool            `json:"kitchen_display"`
}

// NewLine snapshots item into a line of qty units.
func NewLine(item *MenuItem, qty int) Line {
	return Line{
		ItemID:         item.ID,
		Name:           item.Name,
		UnitPrice:      item.Price,
		Quantity:       qty,
		TaxRate:        item.TaxRate,
		KitchenDisplay: item.KitchenDisplay,
	}
}

// Validate checks the quantity and the gross amount against the line bounds.
func (l *Line) Validate() error {
	if l.Quantity < 1 || l.Quantity > MaxLineQuantity {
		return Errorf(ErrInvalidQuantity, "quantity must be between 1 and "+strconv.Itoa(MaxLineQuantity))
	}
	if l.UnitPrice < 0 || l.UnitPrice > MaxLineAmount/int64(l.Quantity) {
		return Errorf(ErrAmountTooLarge, "line amount for item "+l.ItemID+" is out of range")
	}
	return nil
}

// ValidateLines validates every line and the sum of their gross amounts.
func ValidateLines(lines []Line) error {
	var sum int64
	for i := range lines {
		if err := lines[i].Validate(); err != nil {
			return err
		}
		sum += lines[i].Gross()
		if sum > MaxOrderAmount {
			return Errorf(ErrAmountTooLarge, "order amount is out of range")
		}
	}
	return nil
}

// Gross is unit price times quantity. It is exact for lines that pass
// Validate.
func (l *Line) Gross() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Net is gross minus the line discount, never below zero. A line discount can
// outgrow a shrinking line; it is clamped here rather than rejected.
func (l *Line) Net() int64 {
	net := l.Gross() - l.LineDiscount
	if net < 0 {
		return 0
	}
	return net
}
