package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/RestaurantPOS/internal/domain"
	"github.com/utafrali/RestaurantPOS/internal/payment"
	"github.com/utafrali/RestaurantPOS/internal/repository"
	apperrors "github.com/utafrali/RestaurantPOS/pkg/errors"
	pkglogger "github.com/utafrali/RestaurantPOS/pkg/logger"
)

// PaymentService backs the mock authorization endpoint and exposes the
// reconciliation ledger.
type PaymentService struct {
	processor payment.Gateway
	ledger    repository.LedgerRepository
	logger    *slog.Logger
}

// NewPaymentService creates a payment service. processor is the in-process
// simulator; ledger may be nil.
func NewPaymentService(processor payment.Gateway, ledger repository.LedgerRepository, logger *slog.Logger) *PaymentService {
	return &PaymentService{processor: processor, ledger: ledger, logger: logger}
}

// MockAuthorize runs a simulated authorization. Input errors are returned;
// processor declines are reported in the response with Success false.
func (s *PaymentService) MockAuthorize(ctx context.Context, req payment.AuthorizeRequest) (*payment.AuthorizeResponse, error) {
	method, err := payment.NewMethod(req.MethodRequest())
	if err != nil {
		return nil, err
	}

	attempt := payment.Attempt{
		ID:       req.AttemptID,
		OrderID:  req.OrderID,
		Amount:   req.Amount,
		Currency: req.Currency,
	}
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}

	result, err := method.Settle(ctx, s.processor, attempt)
	if err != nil {
		if !isDecline(err) {
			return nil, err
		}
		pkglogger.WithContext(ctx, s.logger).InfoContext(ctx, "mock authorization declined",
			slog.String("attempt_id", attempt.ID),
			slog.String("method", method.Name()),
			slog.String("code", apperrors.CodeOf(err)),
		)
		return &payment.AuthorizeResponse{
			Success: false,
			Error:   errorMessage(err),
			Code:    apperrors.CodeOf(err),
		}, nil
	}

	pkglogger.WithContext(ctx, s.logger).InfoContext(ctx, "mock authorization approved",
		slog.String("attempt_id", attempt.ID),
		slog.String("method", method.Name()),
		slog.String("transaction_id", result.TransactionID),
	)
	return &payment.AuthorizeResponse{
		Success:       true,
		TransactionID: result.TransactionID,
		AuthorizedAt:  time.Now().UTC(),
		Change:        result.Change,
	}, nil
}

func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func (s *PaymentService) requireLedger() error {
	if s.ledger == nil {
		return apperrors.New("LEDGER_UNAVAILABLE", "payment ledger is not configured", apperrors.ErrServiceUnavail)
	}
	return nil
}

// ListReconciliations returns authorizations whose order commit failed.
func (s *PaymentService) ListReconciliations(ctx context.Context, unresolvedOnly bool) ([]domain.Reconciliation, error) {
	if err := s.requireLedger(); err != nil {
		return nil, err
	}
	recs, err := s.ledger.ListReconciliations(ctx, unresolvedOnly)
	if err != nil {
		return nil, fmt.Errorf("list reconciliations: %w", err)
	}
	return recs, nil
}

// ResolveReconciliation marks a reconciliation as handled.
func (s *PaymentService) ResolveReconciliation(ctx context.Context, id string) error {
	if err := s.requireLedger(); err != nil {
		return err
	}
	if err := s.ledger.ResolveReconciliation(ctx, id); err != nil {
		return fmt.Errorf("resolve reconciliation: %w", err)
	}
	pkglogger.WithContext(ctx, s.logger).InfoContext(ctx, "reconciliation resolved", slog.String("reconciliation_id", id))
	return nil
}
