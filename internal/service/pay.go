package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/RestaurantPOS/internal/domain"
	"github.com/utafrali/RestaurantPOS/internal/event"
	"github.com/utafrali/RestaurantPOS/internal/payment"
	"github.com/utafrali/RestaurantPOS/internal/repository"
	apperrors "github.com/utafrali/RestaurantPOS/pkg/errors"
	"github.com/utafrali/RestaurantPOS/pkg/tracing"
)

type settlement struct {
	gateway payment.Gateway
	ledger  repository.LedgerRepository
	lockTTL time.Duration
	timeout time.Duration
}

// PayInput holds the payment attempt for an order.
type PayInput struct {
	Payment payment.Request
	PaidBy  string
}

// PayResult is a paid order together with the settlement, which carries the
// change due for cash.
type PayResult struct {
	Order  *domain.Order   `json:"order"`
	Result *payment.Result `json:"payment"`
}

// checkPayable rejects orders that cannot move to paid.
func checkPayable(o *domain.Order) error {
	switch o.Status {
	case domain.StatusDraft:
		return nil
	case domain.StatusPaid:
		return domain.ErrAlreadyPaid
	}
	return domain.Errorf(domain.ErrInvalidTransition, "cannot pay an order that is "+o.Status)
}

// updateUnlessPaying applies fn under the payment lock. Park, resume and
// cancel go through here so they fail with domain.ErrPaymentInProgress
// instead of moving an order whose authorization is in flight.
func (s *OrderService) updateUnlessPaying(ctx context.Context, id string, fn func(*domain.Order) error) (*domain.Order, error) {
	unlock, err := s.orders.LockPayment(ctx, id, s.settle.lockTTL)
	if err != nil {
		return nil, err
	}
	defer s.releasePaymentLock(ctx, id, unlock)
	return s.orders.Update(ctx, id, fn)
}

func (s *OrderService) releasePaymentLock(ctx context.Context, id string, unlock func(context.Context) error) {
	if err := unlock(context.WithoutCancel(ctx)); err != nil {
		s.log(ctx).WarnContext(ctx, "failed to release payment lock",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// Pay settles a draft order. The order is locked for the duration of the
// attempt so at most one authorization runs per order; the paid transition
// itself is an optimistic check-then-set in the store. A failed or abandoned
// attempt leaves the order draft. An authorization whose commit fails is
// written to the reconciliation ledger.
func (s *OrderService) Pay(ctx context.Context, id string, input PayInput) (_ *PayResult, err error) {
	ctx, span := tracing.Tracer("service").Start(ctx, "OrderService.Pay")
	defer func() { tracing.End(span, err) }()

	method, err := payment.NewMethod(input.Payment)
	if err != nil {
		return nil, err
	}

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkPayable(order); err != nil {
		return nil, err
	}
	if err := method.Validate(order.TotalAmount); err != nil {
		paymentsTotal.WithLabelValues(method.Name(), outcomeInvalid).Inc()
		return nil, err
	}

	unlock, err := s.orders.LockPayment(ctx, id, s.settle.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("lock order for payment: %w", err)
	}
	defer s.releasePaymentLock(ctx, id, unlock)

	// Another terminal may have paid or parked the order before we held the lock.
	if order, err = s.GetOrder(ctx, id); err != nil {
		return nil, err
	}
	if err := checkPayable(order); err != nil {
		return nil, err
	}

	result, err := s.authorize(ctx, method, order)
	if err != nil {
		return nil, err
	}

	paid, err := s.orders.Update(ctx, id, func(o *domain.Order) error {
		if o.TotalAmount != result.Amount {
			return apperrors.Conflict("order total changed during payment")
		}
		return o.MarkPaid(domain.Payment{
			Method:        result.Method,
			TransactionID: result.TransactionID,
			Amount:        result.Amount,
			Received:      result.Received,
			Change:        result.Change,
			PaidBy:        input.PaidBy,
		}, s.now())
	})
	if err != nil {
		s.reconcile(ctx, order, result, err)
		return nil, fmt.Errorf("commit payment: %w", err)
	}
	paymentsTotal.WithLabelValues(result.Method, outcomeSuccess).Inc()
	orderTransitions.WithLabelValues(domain.StatusPaid).Inc()

	s.recordLedger(ctx, paid)

	if err := s.producer.PublishOrderPaid(ctx, paid); err != nil {
		s.log(ctx).ErrorContext(ctx, "failed to publish order.paid event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.log(ctx).InfoContext(ctx, "order paid",
		slog.String("order_id", id),
		slog.String("method", result.Method),
		slog.String("transaction_id", result.TransactionID),
		slog.Int64("amount", result.Amount),
		slog.Int64("change", result.Change),
	)
	return &PayResult{Order: paid, Result: result}, nil
}

// authorize settles the attempt through the gateway and classifies failures.
func (s *OrderService) authorize(ctx context.Context, method payment.Method, order *domain.Order) (*payment.Result, error) {
	if s.settle.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settle.timeout)
		defer cancel()
	}

	attempt := payment.Attempt{
		ID:       uuid.NewString(),
		OrderID:  order.ID,
		Amount:   order.TotalAmount,
		Currency: order.Currency,
	}

	start := time.Now()
	result, err := method.Settle(ctx, s.settle.gateway, attempt)
	authorizationDuration.WithLabelValues(method.Name()).Observe(time.Since(start).Seconds())
	if err == nil {
		return result, nil
	}

	switch {
	case isDecline(err):
		paymentsTotal.WithLabelValues(method.Name(), outcomeDeclined).Inc()
		data := event.PaymentDeclinedData{
			OrderID: order.ID,
			Method:  method.Name(),
			Amount:  order.TotalAmount,
			Code:    apperrors.CodeOf(err),
			Reason:  err.Error(),
		}
		if cc, ok := method.(payment.CreditCard); ok {
			data.Card = payment.MaskCard(cc.Number)
		}
		if perr := s.producer.PublishPaymentDeclined(ctx, data); perr != nil {
			s.log(ctx).ErrorContext(ctx, "failed to publish payment.declined event",
				slog.String("order_id", order.ID),
				slog.String("error", perr.Error()),
			)
		}
		s.log(ctx).InfoContext(ctx, "payment declined",
			slog.String("order_id", order.ID),
			slog.String("method", method.Name()),
			slog.String("code", data.Code),
		)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		paymentsTotal.WithLabelValues(method.Name(), outcomeAbandoned).Inc()
		s.log(ctx).WarnContext(ctx, "payment attempt abandoned",
			slog.String("order_id", order.ID),
			slog.String("method", method.Name()),
		)
	case errors.Is(err, apperrors.ErrInvalidInput):
		paymentsTotal.WithLabelValues(method.Name(), outcomeInvalid).Inc()
	default:
		paymentsTotal.WithLabelValues(method.Name(), outcomeError).Inc()
		s.log(ctx).ErrorContext(ctx, "payment authorization failed",
			slog.String("order_id", order.ID),
			slog.String("method", method.Name()),
			slog.String("error", err.Error()),
		)
	}
	return nil, err
}

// reconcile records an authorization that could not be committed to the
// order. It must not be lost, so it runs detached from request cancellation.
func (s *OrderService) reconcile(ctx context.Context, order *domain.Order, result *payment.Result, cause error) {
	ctx = context.WithoutCancel(ctx)
	reconciliationsTotal.Inc()
	paymentsTotal.WithLabelValues(result.Method, outcomeReconciled).Inc()

	s.log(ctx).ErrorContext(ctx, "payment authorized but order commit failed",
		slog.String("order_id", order.ID),
		slog.String("transaction_id", result.TransactionID),
		slog.String("method", result.Method),
		slog.Int64("amount", result.Amount),
		slog.String("error", cause.Error()),
	)

	if s.settle.ledger == nil {
		return
	}
	rec := &domain.Reconciliation{
		OrderID:       order.ID,
		TransactionID: result.TransactionID,
		Method:        result.Method,
		Amount:        result.Amount,
		Currency:      order.Currency,
		Error:         cause.Error(),
		CreatedAt:     s.now(),
	}
	if err := s.settle.ledger.RecordReconciliation(ctx, rec); err != nil {
		s.log(ctx).ErrorContext(ctx, "failed to record payment reconciliation",
			slog.String("order_id", order.ID),
			slog.String("transaction_id", result.TransactionID),
			slog.String("error", err.Error()),
		)
	}
}

// recordLedger appends the committed payment to the ledger. The order is
// already paid, so a failure is logged and not returned.
func (s *OrderService) recordLedger(ctx context.Context, o *domain.Order) {
	if s.settle.ledger == nil || o.Payment == nil {
		return
	}
	entry := &domain.LedgerEntry{
		OrderID:       o.ID,
		Method:        o.Payment.Method,
		TransactionID: o.Payment.TransactionID,
		Amount:        o.Payment.Amount,
		Currency:      o.Currency,
		Received:      o.Payment.Received,
		Change:        o.Payment.Change,
		PaidBy:        o.Payment.PaidBy,
		PaidAt:        o.Payment.PaidAt,
	}
	if err := s.settle.ledger.RecordPayment(context.WithoutCancel(ctx), entry); err != nil {
		s.log(ctx).ErrorContext(ctx, "failed to record payment in ledger",
			slog.String("order_id", o.ID),
			slog.String("transaction_id", o.Payment.TransactionID),
			slog.String("error", err.Error()),
		)
	}
}
