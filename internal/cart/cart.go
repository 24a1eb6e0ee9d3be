// Package cart is the in-session mutable collection of lines that an order is
// built from. A Cart belongs to one session and is never shared.
package cart

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/utafrali/RestaurantPOS/internal/domain"
	"github.com/utafrali/RestaurantPOS/internal/pricing"
)

// Cart holds lines keyed by menu item id, in insertion order, plus an
// optional order discount.
type Cart struct {
	lines    []domain.Line
	discount *domain.OrderDiscount
}

// View is the serializable state of a cart with its computed totals.
type View struct {
	Lines    []domain.Line         `json:"lines"`
	Discount *domain.OrderDiscount `json:"discount,omitempty"`
	Totals   pricing.Totals        `json:"totals"`
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// FromOrder loads a copy of an order's lines and discount into a new cart.
func FromOrder(o *domain.Order) *Cart {
	c := &Cart{lines: o.CloneLines()}
	if o.Discount != nil {
		d := *o.Discount
		c.discount = &d
	}
	return c
}

func (c *Cart) index(itemID string) int {
	return slices.IndexFunc(c.lines, func(l domain.Line) bool { return l.ItemID == itemID })
}

// AddItem adds qty units of item. An existing line for the item is
// incremented and keeps its original price snapshot. qty below 1 is a no-op.
// A change that would take a line or the cart past the domain bounds is
// rejected and leaves the cart unchanged.
func (c *Cart) AddItem(item *domain.MenuItem, qty int) error {
	if qty < 1 {
		return nil
	}
	if qty > domain.MaxLineQuantity {
		return domain.Errorf(domain.ErrInvalidQuantity, "quantity exceeds the per-line maximum")
	}
	if i := c.index(item.ID); i >= 0 {
		return c.setQuantity(i, c.lines[i].Quantity+qty)
	}
	next := append(slices.Clone(c.lines), domain.NewLine(item, qty))
	if err := domain.ValidateLines(next); err != nil {
		return err
	}
	c.lines = next
	return nil
}

// UpdateQuantity adjusts a line by delta. A line that reaches zero or below is
// removed. Unknown ids are ignored.
func (c *Cart) UpdateQuantity(itemID string, delta int) error {
	i := c.index(itemID)
	if i < 0 {
		return nil
	}
	if delta > domain.MaxLineQuantity {
		return domain.Errorf(domain.ErrInvalidQuantity, "quantity exceeds the per-line maximum")
	}
	if q := c.lines[i].Quantity + delta; q > 0 {
		return c.setQuantity(i, q)
	}
	c.lines = slices.Delete(c.lines, i, i+1)
	return nil
}

func (c *Cart) setQuantity(i, qty int) error {
	next := slices.Clone(c.lines)
	next[i].Quantity = qty
	if err := domain.ValidateLines(next); err != nil {
		return err
	}
	c.lines = next
	return nil
}

// RemoveLine deletes a line. Removing an absent line is a no-op.
func (c *Cart) RemoveLine(itemID string) {
	if i := c.index(itemID); i >= 0 {
		c.lines = slices.Delete(c.lines, i, i+1)
	}
}

// SetLineDiscount sets a discount in minor units on one line. It must not
// exceed the line's gross amount.
func (c *Cart) SetLineDiscount(itemID string, amount int64) error {
	i := c.index(itemID)
	if i < 0 {
		return domain.Errorf(domain.ErrItemNotFound, "no line for item "+itemID)
	}
	if amount < 0 {
		return domain.ErrInvalidDiscount
	}
	if amount > c.lines[i].Gross() {
		return domain.Errorf(domain.ErrDiscountExceedsSubtotal, "line discount exceeds the line amount")
	}
	c.lines[i].LineDiscount = amount
	return nil
}

// ApplyDiscount validates and sets the order discount against the current
// subtotal, replacing any previous one.
func (c *Cart) ApplyDiscount(typ domain.DiscountType, value decimal.Decimal) error {
	d, err := pricing.ApplyDiscount(typ, value, pricing.Subtotal(c.lines))
	if err != nil {
		return err
	}
	c.discount = &d
	return nil
}

// Clear empties the cart and resets the discount.
func (c *Cart) Clear() {
	c.lines = nil
	c.discount = nil
}

// Lines returns a copy of the current lines.
func (c *Cart) Lines() []domain.Line {
	return slices.Clone(c.lines)
}

// Discount returns a copy of the order discount, or nil.
func (c *Cart) Discount() *domain.OrderDiscount {
	if c.discount == nil {
		return nil
	}
	d := *c.discount
	return &d
}

// Len is the number of lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Totals computes the cart totals. A stale fixed discount is clamped, not
// dropped.
func (c *Cart) Totals() pricing.Totals {
	return pricing.ComputeTotals(c.lines, c.discount)
}

// View snapshots the cart for serialization.
func (c *Cart) View() View {
	lines := c.Lines()
	if lines == nil {
		lines = []domain.Line{}
	}
	return View{Lines: lines, Discount: c.Discount(), Totals: c.Totals()}
}
