// Package receipt builds the frozen, read-only projection of a paid order.
package receipt

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/RestaurantPOS/internal/domain"
	"github.com/utafrali/RestaurantPOS/internal/pricing"
	"github.com/utafrali/RestaurantPOS/pkg/money"
)

// Line is one printed line item.
type Line struct {
	ItemID       string          `json:"item_id"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    int64           `json:"unit_price"`
	LineDiscount int64           `json:"line_discount,omitempty"`
	LineSubtotal int64           `json:"line_subtotal"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	Tax          int64           `json:"tax"`
}

// Payment is the settled payment as printed.
type Payment struct {
	Method        string `json:"method"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Received      int64  `json:"received,omitempty"`
	Change        int64  `json:"change,omitempty"`
}

// Receipt is an immutable snapshot of a paid order. It is derived only from
// the stored order, so generating it again yields the same values.
type Receipt struct {
	OrderID     string    `json:"order_id"`
	OrderType   string    `json:"order_type"`
	TableNumber *int      `json:"table_number,omitempty"`
	Currency    string    `json:"currency"`
	Lines       []Line    `json:"lines"`
	Subtotal    int64     `json:"subtotal"`
	Tax         int64     `json:"tax"`
	Discount    int64     `json:"discount"`
	Total       int64     `json:"total"`
	Payment     Payment   `json:"payment"`
	PaidAt      time.Time `json:"paid_at"`
	PaidBy      string    `json:"paid_by,omitempty"`
}

// Generate builds the receipt for a paid order.
func Generate(o *domain.Order) (*Receipt, error) {
	if o.Status != domain.StatusPaid || o.Payment == nil {
		return nil, domain.ErrOrderNotPaid
	}

	lines := make([]Line, len(o.Lines))
	for i := range o.Lines {
		l := &o.Lines[i]
		lines[i] = Line{
			ItemID:       l.ItemID,
			Name:         l.Name,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			LineDiscount: l.LineDiscount,
			LineSubtotal: l.Net(),
			TaxRate:      l.TaxRate,
			Tax:          pricing.LineTax(l),
		}
	}

	var table *int
	if o.TableNumber != nil {
		n := *o.TableNumber
		table = &n
	}

	return &Receipt{
		OrderID:     o.ID,
		OrderType:   o.OrderType,
		TableNumber: table,
		Currency:    o.Currency,
		Lines:       lines,
		Subtotal:    o.Subtotal,
		Tax:         o.TaxAmount,
		Discount:    o.DiscountAmount,
		Total:       o.TotalAmount,
		Payment: Payment{
			Method:        o.Payment.Method,
			TransactionID: o.Payment.TransactionID,
			Amount:        o.Payment.Amount,
			Received:      o.Payment.Received,
			Change:        o.Payment.Change,
		},
		PaidAt: o.Payment.PaidAt.UTC(),
		PaidBy: o.Payment.PaidBy,
	}, nil
}

// Filename is the download name for a receipt export.
func Filename(orderID string) string {
	return "receipt-" + orderID + ".json"
}

// MarshalIndent renders the receipt as indented JSON for export.
func (r *Receipt) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// RenderText writes a plain-text bill.
func (r *Receipt) RenderText(w io.Writer, storeName string) error {
	var b strings.Builder
	if storeName != "" {
		fmt.Fprintf(&b, "%s\n", storeName)
	}
	fmt.Fprintf(&b, "Order %s\n", r.OrderID)
	fmt.Fprintf(&b, "%s", r.OrderType)
	if r.TableNumber != nil {
		fmt.Fprintf(&b, " / table %d", *r.TableNumber)
	}
	fmt.Fprintf(&b, "\n%s\n", r.PaidAt.Format(time.RFC3339))
	b.WriteString(strings.Repeat("-", 40) + "\n")

	tw := tabwriter.NewWriter(&b, 0, 0, 1, ' ', tabwriter.AlignRight)
	for _, l := range r.Lines {
		fmt.Fprintf(tw, "%s\tx%d\t%s\t\n", l.Name, l.Quantity, money.Format(l.LineSubtotal))
	}
	_ = tw.Flush()

	b.WriteString(strings.Repeat("-", 40) + "\n")
	tw = tabwriter.NewWriter(&b, 0, 0, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Subtotal\t%s\t\n", money.Format(r.Subtotal))
	fmt.Fprintf(tw, "Tax\t%s\t\n", money.Format(r.Tax))
	if r.Discount > 0 {
		fmt.Fprintf(tw, "Discount\t-%s\t\n", money.Format(r.Discount))
	}
	fmt.Fprintf(tw, "Total\t%s\t\n", money.FormatWithCurrency(r.Total, r.Currency))
	fmt.Fprintf(tw, "Paid (%s)\t%s\t\n", r.Payment.Method, money.Format(r.Payment.Amount))
	if r.Payment.Change > 0 {
		fmt.Fprintf(tw, "Change\t%s\t\n", money.Format(r.Payment.Change))
	}
	_ = tw.Flush()
	fmt.Fprintf(&b, "Txn %s\n", r.Payment.TransactionID)

	_, err := io.WriteString(w, b.String())
	return err
}
