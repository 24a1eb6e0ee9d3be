package domain

import (
	"slices"
	"time"
)

// Order statuses.
const (
	StatusDraft     = "draft"
	StatusParked    = "parked"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

// Order types.
const (
	OrderTypeDineIn   = "dine-in"
	OrderTypeTakeaway = "takeaway"
	OrderTypeDelivery = "delivery"
)

// ValidStatuses returns every order status.
func ValidStatuses() []string {
	return []string{StatusDraft, StatusParked, StatusPaid, StatusCancelled}
}

// IsValidStatus checks if a status string is valid.
func IsValidStatus(status string) bool {
	return slices.Contains(ValidStatuses(), status)
}

// IsValidOrderType checks if t is a known order type.
func IsValidOrderType(t string) bool {
	return t == OrderTypeDineIn || t == OrderTypeTakeaway || t == OrderTypeDelivery
}

// AllowedTransitions lists the legal targets of every status. Paid and
// cancelled are terminal.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		StatusDraft:     {StatusParked, StatusPaid, StatusCancelled},
		StatusParked:    {StatusDraft, StatusCancelled},
		StatusPaid:      {},
		StatusCancelled: {},
	}
}

// Payment records a settled payment attached to a paid order.
type Payment struct {
	Method        string    `json:"method"`
	TransactionID string    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	Received      int64     `json:"received,omitempty"`
	Change        int64     `json:"change,omitempty"`
	PaidAt        time.Time `json:"paid_at"`
	PaidBy        string    `json:"paid_by,omitempty"`
}

// Order is the durable aggregate. Lines are a snapshot, never shared with a
// live cart. Amounts are in minor units.
type Order struct {
	ID             string         `json:"id"`
	Status         string         `json:"status"`
	OrderType      string         `json:"order_type"`
	TableNumber    *int           `json:"table_number,omitempty"`
	Lines          []Line         `json:"lines"`
	Discount       *OrderDiscount `json:"discount,omitempty"`
	Currency       string         `json:"currency"`
	Subtotal       int64          `json:"subtotal"`
	TaxAmount      int64          `json:"tax_amount"`
	DiscountAmount int64          `json:"discount_amount"`
	TotalAmount    int64          `json:"total_amount"`
	Payment        *Payment       `json:"payment,omitempty"`
	ParkedAt       *time.Time     `json:"parked_at,omitempty"`
	ParkedBy       string         `json:"parked_by,omitempty"`
	CancelReason   string         `json:"cancel_reason,omitempty"`
	CreatedBy      string         `json:"created_by,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// CanTransitionTo checks if the order can move to target.
func (o *Order) CanTransitionTo(target string) bool {
	return slices.Contains(AllowedTransitions()[o.Status], target)
}

// IsTerminal reports whether no further transition is possible.
func (o *Order) IsTerminal() bool {
	return o.Status == StatusPaid || o.Status == StatusCancelled
}

func (o *Order) transitionError(target string) error {
	return Errorf(ErrInvalidTransition, "cannot move order from "+o.Status+" to "+target)
}

// Park moves a draft order to parked.
func (o *Order) Park(by string, now time.Time) error {
	if o.Status != StatusDraft {
		return o.transitionError(StatusParked)
	}
	o.Status = StatusParked
	o.ParkedAt = &now
	o.ParkedBy = by
	o.UpdatedAt = now
	return nil
}

// Resume moves a parked order back to draft.
func (o *Order) Resume(now time.Time) error {
	if o.Status != StatusParked {
		return o.transitionError(StatusDraft)
	}
	o.Status = StatusDraft
	o.ParkedAt = nil
	o.ParkedBy = ""
	o.UpdatedAt = now
	return nil
}

// MarkPaid attaches p and moves a draft order to paid. A paid order yields
// ErrAlreadyPaid and its payment is left untouched.
func (o *Order) MarkPaid(p Payment, now time.Time) error {
	switch o.Status {
	case StatusPaid:
		return ErrAlreadyPaid
	case StatusDraft:
	default:
		return o.transitionError(StatusPaid)
	}
	p.PaidAt = now
	o.Status = StatusPaid
	o.Payment = &p
	o.ParkedAt = nil
	o.UpdatedAt = now
	return nil
}

// Cancel moves a draft or parked order to cancelled.
func (o *Order) Cancel(reason string, now time.Time) error {
	if !o.CanTransitionTo(StatusCancelled) {
		if o.Status == StatusPaid {
			return ErrAlreadyPaid
		}
		return o.transitionError(StatusCancelled)
	}
	o.Status = StatusCancelled
	o.CancelReason = reason
	o.ParkedAt = nil
	o.UpdatedAt = now
	return nil
}

// CloneLines returns a copy of the order lines.
func (o *Order) CloneLines() []Line {
	return slices.Clone(o.Lines)
}
