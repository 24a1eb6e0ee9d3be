// Package remote authorizes payments against an HTTP processor that speaks
// the mock authorization protocol (POST /api/payments/mock).
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/RestaurantPOS/internal/domain"
	"github.com/utafrali/RestaurantPOS/internal/payment"
	apperrors "github.com/utafrali/RestaurantPOS/pkg/errors"
	"github.com/utafrali/RestaurantPOS/pkg/httpclient"
	"github.com/utafrali/RestaurantPOS/pkg/middleware"
)

const authorizePath = "/api/payments/mock"

// Gateway implements payment.Gateway over HTTP behind a circuit breaker.
type Gateway struct {
	baseURL string
	anonKey string
	client  *httpclient.CircuitBreakerClient
	logger  *slog.Logger
}

var _ payment.Gateway = (*Gateway)(nil)

// New creates a remote gateway for the processor at baseURL. anonKey, when
// set, is sent in the X-Anon-Key header.
func New(baseURL, anonKey string, client *httpclient.CircuitBreakerClient, logger *slog.Logger) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		client:  client,
		logger:  logger,
	}
}

// Authorize implements payment.Gateway. The attempt id is sent as the
// idempotency key so transport retries cannot charge twice.
func (g *Gateway) Authorize(ctx context.Context, req payment.AuthorizeRequest) (*payment.Authorization, error) {
	httpReq, err := httpclient.NewJSONRequest(ctx, http.MethodPost, g.baseURL+authorizePath, req)
	if err != nil {
		return nil, fmt.Errorf("authorize: %w", err)
	}
	if req.AttemptID != "" {
		httpReq.Header.Set(httpclient.IdempotencyKeyHeader, req.AttemptID)
	}
	if g.anonKey != "" {
		httpReq.Header.Set(middleware.AnonKeyHeader, g.anonKey)
	}

	resp, err := g.client.Do(ctx, httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("authorize: %w", err)
		}
		g.logger.WarnContext(ctx, "payment processor unreachable",
			slog.String("order_id", req.OrderID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("authorize: %w: %w", domain.ErrGatewayUnavailable, err)
	}

	if resp.StatusCode >= 300 {
		perr := httpclient.ParseResponseError(resp, "payment processor")
		if kind, ok := domain.PaymentKind(apperrors.CodeOf(perr)); ok {
			return nil, kind
		}
		return nil, fmt.Errorf("authorize: %w", perr)
	}
	defer func() { _ = resp.Body.Close() }()

	var envelope struct {
		Data payment.AuthorizeResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("authorize: decode response: %w", err)
	}

	out := envelope.Data
	if !out.Success {
		if kind, ok := domain.PaymentKind(out.Code); ok {
			return nil, kind
		}
		return nil, domain.Errorf(domain.ErrPaymentRejected, out.Error)
	}
	if out.TransactionID == "" {
		return nil, errors.New("authorize: processor returned no transaction id")
	}
	return &payment.Authorization{TransactionID: out.TransactionID, AuthorizedAt: out.AuthorizedAt}, nil
}
