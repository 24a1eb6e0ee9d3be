// Package payment validates payment attempts per method and settles them
// against an authorization Gateway. Every attempt resolves to exactly one of
// a Result or an error kind from the domain package.
package payment

import (
	"context"
	"strings"
	"time"
)

// Payment methods.
const (
	MethodCash       = "cash"
	MethodCreditCard = "credit_card"
	MethodUPI        = "upi"
	MethodNetbanking = "netbanking"
)

// Request carries the method-specific input of a payment attempt. Only the
// fields of the selected method are read.
type Request struct {
	Method         string `json:"method" validate:"required,oneof=cash credit_card upi netbanking"`
	ReceivedAmount int64  `json:"received_amount,omitempty" validate:"gte=0"`
	CardNumber     string `json:"card_number,omitempty"`
	CardHolder     string `json:"card_holder,omitempty"`
	CVV            string `json:"cvv,omitempty"`
	UPIID          string `json:"upi_id,omitempty"`
	Bank           string `json:"bank,omitempty"`
	OTP            string `json:"otp,omitempty"`
}

// Attempt identifies what is being paid.
type Attempt struct {
	ID       string
	OrderID  string
	Amount   int64
	Currency string
}

// AuthorizeRequest is sent to a Gateway. It is also the body of the mock
// authorization endpoint, which additionally accepts cash.
type AuthorizeRequest struct {
	AttemptID      string `json:"attempt_id,omitempty"`
	OrderID        string `json:"order_id,omitempty"`
	Method         string `json:"method" validate:"required,oneof=cash credit_card upi netbanking"`
	Amount         int64  `json:"amount" validate:"gt=0"`
	Currency       string `json:"currency,omitempty" validate:"omitempty,len=3"`
	ReceivedAmount int64  `json:"received_amount,omitempty" validate:"gte=0"`
	CardNumber     string `json:"card_number,omitempty"`
	CVV            string `json:"cvv,omitempty"`
	UPIID          string `json:"upi_id,omitempty"`
	Bank           string `json:"bank,omitempty"`
	OTP            string `json:"otp,omitempty"`
}

// MethodRequest extracts the method-specific input.
func (r AuthorizeRequest) MethodRequest() Request {
	return Request{
		Method:         r.Method,
		ReceivedAmount: r.ReceivedAmount,
		CardNumber:     r.CardNumber,
		CVV:            r.CVV,
		UPIID:          r.UPIID,
		Bank:           r.Bank,
		OTP:            r.OTP,
	}
}

// AuthorizeResponse is the outcome reported by the mock authorization
// endpoint. Declines are reported with Success false and the error kind in
// Code.
type AuthorizeResponse struct {
	Success       bool      `json:"success"`
	TransactionID string    `json:"transaction_id,omitempty"`
	AuthorizedAt  time.Time `json:"authorized_at,omitzero"`
	Change        int64     `json:"change,omitempty"`
	Error         string    `json:"error,omitempty"`
	Code          string    `json:"code,omitempty"`
}

// Authorization is a successful gateway response.
type Authorization struct {
	TransactionID string    `json:"transaction_id"`
	AuthorizedAt  time.Time `json:"authorized_at"`
}

// Gateway authorizes non-cash payments. Implementations return a domain
// error kind (ErrCardDeclined, ErrPaymentRejected, ...) on a decline and must
// honour ctx cancellation.
type Gateway interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (*Authorization, error)
}

// Result is a settled payment.
type Result struct {
	Method        string `json:"method"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Received      int64  `json:"received,omitempty"`
	Change        int64  `json:"change,omitempty"`
}

// Method is one payment variant.
type Method interface {
	Name() string
	// Validate checks method input against the amount due without side effects.
	Validate(amount int64) error
	// Settle validates and then settles the attempt.
	Settle(ctx context.Context, gw Gateway, a Attempt) (*Result, error)
}

// MaskCard keeps only the last four digits of a card number.
func MaskCard(number string) string {
	n := normalizeCard(number)
	if len(n) <= 4 {
		return n
	}
	return strings.Repeat("*", len(n)-4) + n[len(n)-4:]
}

func normalizeCard(number string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(number)
}
