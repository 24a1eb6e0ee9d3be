package remote

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/RestaurantPOS/internal/domain"
	"github.com/utafrali/RestaurantPOS/internal/payment"
	apperrors "github.com/utafrali/RestaurantPOS/pkg/errors"
	"github.com/utafrali/RestaurantPOS/pkg/httpclient"
)

func newGateway(t *testing.T, h http.HandlerFunc) *Gateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	cb := httpclient.NewCircuitBreakerClient(httpclient.New(cfg), httpclient.DefaultCircuitBreakerConfig(t.Name()), logger)
	return New(srv.URL+"/", "anon-123", cb, logger)
}

func writeData(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": v})
}

func request() payment.AuthorizeRequest {
	return payment.AuthorizeRequest{
		AttemptID: "att-1", OrderID: "ord-1", Method: payment.MethodCreditCard,
		Amount: 4200, Currency: "USD", CardNumber: "4111111111111111", CVV: "123",
	}
}

func TestAuthorize_Success(t *testing.T) {
	var got payment.AuthorizeRequest
	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/payments/mock", r.URL.Path)
		assert.Equal(t, "att-1", r.Header.Get(httpclient.IdempotencyKeyHeader))
		assert.Equal(t, "anon-123", r.Header.Get("X-Anon-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeData(w, http.StatusOK, payment.AuthorizeResponse{Success: true, TransactionID: "TXN-9", AuthorizedAt: time.Now()})
	})

	auth, err := gw.Authorize(context.Background(), request())

	require.NoError(t, err)
	assert.Equal(t, "TXN-9", auth.TransactionID)
	assert.Equal(t, request(), got)
}

func TestAuthorize_DeclineMapsToKind(t *testing.T) {
	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, payment.AuthorizeResponse{Error: "Card declined", Code: "CARD_DECLINED"})
	})

	_, err := gw.Authorize(context.Background(), request())
	assert.ErrorIs(t, err, domain.ErrCardDeclined)
}

func TestAuthorize_UnknownDeclineIsRejected(t *testing.T) {
	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, payment.AuthorizeResponse{Error: "velocity limit", Code: "VELOCITY"})
	})

	_, err := gw.Authorize(context.Background(), request())
	assert.ErrorIs(t, err, domain.ErrPaymentRejected)
}

func TestAuthorize_ValidationErrorBody(t *testing.T) {
	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"CVV must be 3 digits","code":"INVALID_CVV"}`)
	})

	_, err := gw.Authorize(context.Background(), request())
	assert.ErrorIs(t, err, domain.ErrInvalidCVV)
}

func TestAuthorize_UnauthorizedKeepsCategory(t *testing.T) {
	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"missing credentials","code":"UNAUTHORIZED"}`)
	})

	_, err := gw.Authorize(context.Background(), request())
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestAuthorize_ServerErrorIsUnavailable(t *testing.T) {
	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := gw.Authorize(context.Background(), request())
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
}

func TestAuthorize_MissingTransactionID(t *testing.T) {
	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, payment.AuthorizeResponse{Success: true})
	})

	_, err := gw.Authorize(context.Background(), request())
	assert.ErrorContains(t, err, "no transaction id")
}

func TestAuthorize_CancelledContext(t *testing.T) {
	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := gw.Authorize(ctx, request())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, domain.ErrGatewayUnavailable)
}
