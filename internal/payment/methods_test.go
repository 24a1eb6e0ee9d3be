package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/RestaurantPOS/internal/domain"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Authorize(ctx context.Context, req AuthorizeRequest) (*Authorization, error) {
	args := m.Called(ctx, req)
	if a := args.Get(0); a != nil {
		return a.(*Authorization), args.Error(1)
	}
	return nil, args.Error(1)
}

func attempt(amount int64) Attempt {
	return Attempt{ID: "att-1", OrderID: "ord-1", Amount: amount, Currency: "USD"}
}

// --- NewMethod ---

func TestNewMethod_Dispatch(t *testing.T) {
	tests := map[string]Method{
		MethodCash:       Cash{},
		MethodCreditCard: CreditCard{},
		MethodUPI:        UPI{},
		MethodNetbanking: Netbanking{},
	}
	for name, want := range tests {
		m, err := NewMethod(Request{Method: name})
		require.NoError(t, err)
		assert.IsType(t, want, m)
		assert.Equal(t, name, m.Name())
	}

	_, err := NewMethod(Request{Method: "crypto"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedMethod)
}

func TestNewMethod_NormalizesCardNumber(t *testing.T) {
	m, err := NewMethod(Request{Method: MethodCreditCard, CardNumber: "4111 1111-1111 1111", CVV: "123"})
	require.NoError(t, err)
	assert.NoError(t, m.Validate(100))
}

// --- Cash ---

func TestCash_Change(t *testing.T) {
	res, err := Cash{Received: 5000}.Settle(context.Background(), nil, attempt(4200))
	require.NoError(t, err)
	assert.Equal(t, int64(800), res.Change)
	assert.Equal(t, int64(5000), res.Received)
	assert.Contains(t, res.TransactionID, "CASH-")
}

func TestCash_Insufficient(t *testing.T) {
	res, err := Cash{Received: 4000}.Settle(context.Background(), nil, attempt(4200))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrInsufficientAmount)
}

func TestCash_ExactAmount(t *testing.T) {
	res, err := Cash{Received: 4200}.Settle(context.Background(), nil, attempt(4200))
	require.NoError(t, err)
	assert.Zero(t, res.Change)
}

// --- Validation ---

func TestCreditCard_Validate(t *testing.T) {
	assert.NoError(t, CreditCard{Number: "4111111111111111", CVV: "123"}.Validate(1))
	assert.ErrorIs(t, CreditCard{Number: "411111111111111", CVV: "123"}.Validate(1), domain.ErrInvalidCardNumber)
	assert.ErrorIs(t, CreditCard{Number: "41111111111111ab", CVV: "123"}.Validate(1), domain.ErrInvalidCardNumber)
	assert.ErrorIs(t, CreditCard{Number: "4111111111111111", CVV: "12"}.Validate(1), domain.ErrInvalidCVV)
	assert.ErrorIs(t, CreditCard{Number: "4111111111111111", CVV: "12a"}.Validate(1), domain.ErrInvalidCVV)
}

func TestUPI_Validate(t *testing.T) {
	assert.NoError(t, UPI{ID: "diner@okbank"}.Validate(1))
	for _, id := range []string{"", "diner", "@okbank", "diner@"} {
		assert.ErrorIs(t, UPI{ID: id}.Validate(1), domain.ErrInvalidUPIID, id)
	}
}

func TestNetbanking_Validate(t *testing.T) {
	assert.NoError(t, Netbanking{Bank: "HDFC", OTP: "123456"}.Validate(1))
	assert.ErrorIs(t, Netbanking{OTP: "123456"}.Validate(1), domain.ErrInvalidBank)
	assert.ErrorIs(t, Netbanking{Bank: "HDFC", OTP: "12345"}.Validate(1), domain.ErrInvalidOTP)
	assert.ErrorIs(t, Netbanking{Bank: "HDFC", OTP: "12345x"}.Validate(1), domain.ErrInvalidOTP)
}

// --- Settlement through the gateway ---

func TestCreditCard_SettleAuthorizes(t *testing.T) {
	gw := new(mockGateway)
	gw.On("Authorize", mock.Anything, AuthorizeRequest{
		AttemptID: "att-1", OrderID: "ord-1", Method: MethodCreditCard,
		Amount: 4200, Currency: "USD", CardNumber: "4111111111111111", CVV: "123",
	}).Return(&Authorization{TransactionID: "TXN-1"}, nil)

	res, err := CreditCard{Number: "4111111111111111", CVV: "123"}.Settle(context.Background(), gw, attempt(4200))

	require.NoError(t, err)
	assert.Equal(t, &Result{Method: MethodCreditCard, TransactionID: "TXN-1", Amount: 4200}, res)
	gw.AssertExpectations(t)
}

func TestSettle_InvalidInputSkipsGateway(t *testing.T) {
	gw := new(mockGateway)

	_, err := UPI{ID: "nope"}.Settle(context.Background(), gw, attempt(100))

	assert.ErrorIs(t, err, domain.ErrInvalidUPIID)
	gw.AssertNotCalled(t, "Authorize", mock.Anything, mock.Anything)
}

func TestSettle_GatewayDeclinePropagates(t *testing.T) {
	gw := new(mockGateway)
	gw.On("Authorize", mock.Anything, mock.Anything).Return(nil, domain.ErrPaymentRejected)

	res, err := Netbanking{Bank: "SBI", OTP: "654321"}.Settle(context.Background(), gw, attempt(1300))

	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrPaymentRejected)
}

func TestMaskCard(t *testing.T) {
	assert.Equal(t, "************0000", MaskCard("4111 1111 1111 0000"))
	assert.Equal(t, "12", MaskCard("12"))
}
