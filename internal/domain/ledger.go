package domain

import "time"

// LedgerEntry is an append-only record of a settled payment.
type LedgerEntry struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"order_id"`
	Method        string    `json:"method"`
	TransactionID string    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	Received      int64     `json:"received"`
	Change        int64     `json:"change"`
	PaidBy        string    `json:"paid_by,omitempty"`
	PaidAt        time.Time `json:"paid_at"`
}

// Reconciliation records an authorization whose order commit failed. The
// processor holds the money but the order is still unpaid.
type Reconciliation struct {
	ID            string     `json:"id"`
	OrderID       string     `json:"order_id"`
	TransactionID string     `json:"transaction_id"`
	Method        string     `json:"method"`
	Amount        int64      `json:"amount"`
	Currency      string     `json:"currency"`
	Error         string     `json:"error"`
	CreatedAt     time.Time  `json:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}
