// Package simulator is an in-process payment processor. It waits a fixed
// delay and then answers deterministically: card numbers ending in the
// decline suffix are declined, the reserved amount is rejected, everything
// else is authorized.
package simulator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/RestaurantPOS/internal/domain"
	"github.com/utafrali/RestaurantPOS/internal/payment"
)

// Config controls the simulated processor.
type Config struct {
	Delay         time.Duration
	RejectAmount  int64
	DeclineSuffix string
}

// DefaultConfig mirrors the test conditions documented for the POS: a 1.5s
// delay, cards ending 0000 declined and 13.00 rejected.
func DefaultConfig() Config {
	return Config{
		Delay:         1500 * time.Millisecond,
		RejectAmount:  1300,
		DeclineSuffix: "0000",
	}
}

// Gateway implements payment.Gateway.
type Gateway struct {
	cfg Config
	now func() time.Time
}

var _ payment.Gateway = (*Gateway)(nil)

// New creates a simulator.
func New(cfg Config) *Gateway {
	return &Gateway{cfg: cfg, now: time.Now}
}

// Authorize implements payment.Gateway. A cancelled ctx abandons the attempt
// before any outcome is produced.
func (g *Gateway) Authorize(ctx context.Context, req payment.AuthorizeRequest) (*payment.Authorization, error) {
	if g.cfg.Delay > 0 {
		t := time.NewTimer(g.cfg.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("authorize: %w", ctx.Err())
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("authorize: %w", err)
	}

	if req.Method == payment.MethodCreditCard && g.cfg.DeclineSuffix != "" &&
		strings.HasSuffix(req.CardNumber, g.cfg.DeclineSuffix) {
		return nil, domain.ErrCardDeclined
	}
	if g.cfg.RejectAmount > 0 && req.Amount == g.cfg.RejectAmount {
		return nil, domain.ErrPaymentRejected
	}

	now := g.now().UTC()
	return &payment.Authorization{
		TransactionID: fmt.Sprintf("TXN-%d-%s", now.UnixMilli(), strings.ToUpper(uuid.NewString()[:8])),
		AuthorizedAt:  now,
	}, nil
}
