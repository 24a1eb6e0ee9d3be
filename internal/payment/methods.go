package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/utafrali/RestaurantPOS/internal/domain"
	"github.com/utafrali/RestaurantPOS/pkg/validator"
)

// NewMethod selects the variant named by req.Method.
func NewMethod(req Request) (Method, error) {
	switch req.Method {
	case MethodCash:
		return Cash{Received: req.ReceivedAmount}, nil
	case MethodCreditCard:
		return CreditCard{Number: normalizeCard(req.CardNumber), CVV: req.CVV, Holder: req.CardHolder}, nil
	case MethodUPI:
		return UPI{ID: strings.TrimSpace(req.UPIID)}, nil
	case MethodNetbanking:
		return Netbanking{Bank: strings.TrimSpace(req.Bank), OTP: req.OTP}, nil
	}
	return nil, domain.Errorf(domain.ErrUnsupportedMethod, fmt.Sprintf("unsupported payment method %q", req.Method))
}

// authorize runs the shared gateway step for non-cash variants.
func authorize(ctx context.Context, gw Gateway, a Attempt, req AuthorizeRequest) (*Result, error) {
	req.AttemptID = a.ID
	req.OrderID = a.OrderID
	req.Amount = a.Amount
	req.Currency = a.Currency

	auth, err := gw.Authorize(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Result{Method: req.Method, TransactionID: auth.TransactionID, Amount: a.Amount}, nil
}

// --- Cash ---

// Cash settles locally and returns change.
type Cash struct {
	Received int64
}

func (Cash) Name() string { return MethodCash }

func (c Cash) Validate(amount int64) error {
	if c.Received < amount {
		return domain.ErrInsufficientAmount
	}
	return nil
}

func (c Cash) Settle(_ context.Context, _ Gateway, a Attempt) (*Result, error) {
	if err := c.Validate(a.Amount); err != nil {
		return nil, err
	}
	return &Result{
		Method:        MethodCash,
		TransactionID: "CASH-" + strings.ToUpper(uuid.NewString()[:8]),
		Amount:        a.Amount,
		Received:      c.Received,
		Change:        c.Received - a.Amount,
	}, nil
}

// --- Credit card ---

// CreditCard needs a 16 digit number and a 3 digit CVV.
type CreditCard struct {
	Number string
	CVV    string
	Holder string
}

func (CreditCard) Name() string { return MethodCreditCard }

func (c CreditCard) Validate(int64) error {
	if validator.Var(c.Number, "len=16,digits") != nil {
		return domain.ErrInvalidCardNumber
	}
	if validator.Var(c.CVV, "len=3,digits") != nil {
		return domain.ErrInvalidCVV
	}
	return nil
}

func (c CreditCard) Settle(ctx context.Context, gw Gateway, a Attempt) (*Result, error) {
	if err := c.Validate(a.Amount); err != nil {
		return nil, err
	}
	return authorize(ctx, gw, a, AuthorizeRequest{Method: MethodCreditCard, CardNumber: c.Number, CVV: c.CVV})
}

// --- UPI ---

// UPI needs an id of the form name@provider.
type UPI struct {
	ID string
}

func (UPI) Name() string { return MethodUPI }

func (u UPI) Validate(int64) error {
	if validator.Var(u.ID, "upi") != nil {
		return domain.ErrInvalidUPIID
	}
	return nil
}

func (u UPI) Settle(ctx context.Context, gw Gateway, a Attempt) (*Result, error) {
	if err := u.Validate(a.Amount); err != nil {
		return nil, err
	}
	return authorize(ctx, gw, a, AuthorizeRequest{Method: MethodUPI, UPIID: u.ID})
}

// --- Netbanking ---

// Netbanking needs a selected bank and the 6 digit OTP sent by it.
type Netbanking struct {
	Bank string
	OTP  string
}

func (Netbanking) Name() string { return MethodNetbanking }

func (n Netbanking) Validate(int64) error {
	if n.Bank == "" {
		return domain.ErrInvalidBank
	}
	if validator.Var(n.OTP, "len=6,digits") != nil {
		return domain.ErrInvalidOTP
	}
	return nil
}

func (n Netbanking) Settle(ctx context.Context, gw Gateway, a Attempt) (*Result, error) {
	if err := n.Validate(a.Amount); err != nil {
		return nil, err
	}
	return authorize(ctx, gw, a, AuthorizeRequest{Method: MethodNetbanking, Bank: n.Bank, OTP: n.OTP})
}
