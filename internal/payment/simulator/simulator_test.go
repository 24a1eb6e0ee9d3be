package simulator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/RestaurantPOS/internal/domain"
	"github.com/utafrali/RestaurantPOS/internal/payment"
)

func instant() *Gateway {
	cfg := DefaultConfig()
	cfg.Delay = 0
	return New(cfg)
}

func card(number string, amount int64) payment.AuthorizeRequest {
	return payment.AuthorizeRequest{Method: payment.MethodCreditCard, CardNumber: number, Amount: amount}
}

func TestAuthorize_Success(t *testing.T) {
	auth, err := instant().Authorize(context.Background(), card("4111111111111111", 4200))
	require.NoError(t, err)
	assert.Regexp(t, `^TXN-\d+-[0-9A-F]{8}$`, auth.TransactionID)
	assert.False(t, auth.AuthorizedAt.IsZero())
}

func TestAuthorize_DeclineIsDeterministic(t *testing.T) {
	g := instant()
	for i := 0; i < 5; i++ {
		_, err := g.Authorize(context.Background(), card("4111111111110000", 4200))
		assert.ErrorIs(t, err, domain.ErrCardDeclined)
	}
}

func TestAuthorize_ReservedAmountRejected(t *testing.T) {
	g := instant()
	for _, m := range []string{payment.MethodCreditCard, payment.MethodUPI, payment.MethodNetbanking} {
		_, err := g.Authorize(context.Background(), payment.AuthorizeRequest{Method: m, CardNumber: "4111111111111111", Amount: 1300})
		assert.ErrorIs(t, err, domain.ErrPaymentRejected, m)
	}
}

func TestAuthorize_DeclineSuffixOnlyForCards(t *testing.T) {
	_, err := instant().Authorize(context.Background(), payment.AuthorizeRequest{Method: payment.MethodUPI, UPIID: "a@0000", Amount: 100})
	assert.NoError(t, err)
}

func TestAuthorize_UniqueTransactionIDs(t *testing.T) {
	g := instant()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		auth, err := g.Authorize(context.Background(), card("4111111111111111", 100))
		require.NoError(t, err)
		require.False(t, seen[auth.TransactionID])
		seen[auth.TransactionID] = true
	}
}

func TestAuthorize_CancelledDuringDelay(t *testing.T) {
	g := New(Config{Delay: time.Second, RejectAmount: 1300, DeclineSuffix: "0000"})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	auth, err := g.Authorize(ctx, card("4111111111111111", 100))

	assert.Nil(t, auth)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
