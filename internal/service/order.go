package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/RestaurantPOS/internal/cart"
	"github.com/utafrali/RestaurantPOS/internal/domain"
	"github.com/utafrali/RestaurantPOS/internal/event"
	"github.com/utafrali/RestaurantPOS/internal/payment"
	"github.com/utafrali/RestaurantPOS/internal/pricing"
	"github.com/utafrali/RestaurantPOS/internal/receipt"
	"github.com/utafrali/RestaurantPOS/internal/repository"
	apperrors "github.com/utafrali/RestaurantPOS/pkg/errors"
	pkglogger "github.com/utafrali/RestaurantPOS/pkg/logger"
	"github.com/utafrali/RestaurantPOS/pkg/pagination"
)

// OrderService implements the order lifecycle: creation from catalog lines,
// park and resume, cancellation, receipts and bill splitting. Payment lives
// in pay.go.
type OrderService struct {
	orders   repository.OrderRepository
	menu     repository.MenuRepository
	settle   *settlement
	producer *event.Producer
	logger   *slog.Logger
	currency string
	now      func() time.Time
}

// NewOrderService creates an order service. ledger may be nil, in which case
// settled payments are only recorded on the order itself.
func NewOrderService(
	orders repository.OrderRepository,
	menu repository.MenuRepository,
	ledger repository.LedgerRepository,
	gateway payment.Gateway,
	producer *event.Producer,
	logger *slog.Logger,
	cfg Config,
) *OrderService {
	cfg = cfg.withDefaults()
	return &OrderService{
		orders:   orders,
		menu:     menu,
		settle:   &settlement{gateway: gateway, ledger: ledger, lockTTL: cfg.PayLockTTL, timeout: cfg.AuthorizeTimeout},
		producer: producer,
		logger:   logger,
		currency: cfg.Currency,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *OrderService) log(ctx context.Context) *slog.Logger {
	return pkglogger.WithContext(ctx, s.logger)
}

// LineInput is one requested line. LineDiscount is in minor units.
type LineInput struct {
	ItemID       string
	Quantity     int
	LineDiscount int64
}

// DiscountInput is a requested order discount.
type DiscountInput struct {
	Type  domain.DiscountType
	Value decimal.Decimal
}

// CartInput describes a cart by catalog references.
type CartInput struct {
	Lines    []LineInput
	Discount *DiscountInput
}

// CreateOrderInput holds the parameters for creating an order.
type CreateOrderInput struct {
	CartInput
	OrderType   string
	TableNumber *int
	CreatedBy   string
}

// buildCart resolves every line against the catalog and applies the
// discount. Lines for the same item are merged.
func (s *OrderService) buildCart(ctx context.Context, in CartInput) (*cart.Cart, error) {
	if len(in.Lines) == 0 {
		return nil, domain.ErrEmptyOrder
	}

	c := cart.New()
	for _, l := range in.Lines {
		if l.Quantity < 1 || l.Quantity > domain.MaxLineQuantity {
			return nil, domain.Errorf(domain.ErrInvalidQuantity,
				fmt.Sprintf("quantity for %s must be between 1 and %d", l.ItemID, domain.MaxLineQuantity))
		}
		item, err := s.menu.GetItem(ctx, l.ItemID)
		if err != nil {
			return nil, fmt.Errorf("lookup item %s: %w", l.ItemID, err)
		}
		if err := c.AddItem(item, l.Quantity); err != nil {
			return nil, err
		}
		if l.LineDiscount > 0 {
			if err := c.SetLineDiscount(l.ItemID, l.LineDiscount); err != nil {
				return nil, err
			}
		}
	}

	if in.Discount != nil {
		if err := c.ApplyDiscount(in.Discount.Type, in.Discount.Value); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// warnIntegrity logs and counts totals that were corrected by clamping.
func (s *OrderService) warnIntegrity(ctx context.Context, orderID string, t pricing.Totals) {
	for _, w := range t.Warnings {
		integrityWarnings.WithLabelValues(string(w)).Inc()
		s.log(ctx).WarnContext(ctx, "order totals clamped",
			slog.String("order_id", orderID),
			slog.String("warning", string(w)),
			slog.Int64("subtotal", t.Subtotal),
			slog.Int64("discount", t.Discount),
		)
	}
}

func resolveOrderType(orderType string, table *int) (string, error) {
	if orderType == "" {
		if table != nil {
			orderType = domain.OrderTypeDineIn
		} else {
			orderType = domain.OrderTypeTakeaway
		}
	}
	if !domain.IsValidOrderType(orderType) {
		return "", domain.ErrInvalidOrderType
	}
	if table != nil && *table < 1 {
		return "", domain.Errorf(domain.ErrTableRequired, "table number must be positive")
	}
	if orderType == domain.OrderTypeDineIn && table == nil {
		return "", domain.ErrTableRequired
	}
	return orderType, nil
}

// CreateOrder builds a draft order from catalog lines.
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	orderType, err := resolveOrderType(input.OrderType, input.TableNumber)
	if err != nil {
		return nil, err
	}
	c, err := s.buildCart(ctx, input.CartInput)
	if err != nil {
		return nil, err
	}

	now := s.now()
	totals := c.Totals()
	order := &domain.Order{
		ID:             uuid.NewString(),
		Status:         domain.StatusDraft,
		OrderType:      orderType,
		TableNumber:    input.TableNumber,
		Lines:          c.Lines(),
		Discount:       c.Discount(),
		Currency:       s.currency,
		Subtotal:       totals.Subtotal,
		TaxAmount:      totals.Tax,
		DiscountAmount: totals.Discount,
		TotalAmount:    totals.Total,
		CreatedBy:      input.CreatedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.warnIntegrity(ctx, order.ID, totals)

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	orderTransitions.WithLabelValues(domain.StatusDraft).Inc()

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.log(ctx).ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.log(ctx).InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("order_type", order.OrderType),
		slog.Int("lines", len(order.Lines)),
		slog.Int64("total_amount", order.TotalAmount),
	)
	return order, nil
}

// PreviewCart computes totals for a cart without persisting anything.
func (s *OrderService) PreviewCart(ctx context.Context, input CartInput) (*cart.View, error) {
	c, err := s.buildCart(ctx, input)
	if err != nil {
		return nil, err
	}
	v := c.View()
	return &v, nil
}

// GetOrder retrieves an order by its ID.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return order, nil
}

// ListOrders returns a page of orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	if filter.Status != nil && !domain.IsValidStatus(*filter.Status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid status %q", *filter.Status))
	}
	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// ListParked returns parked orders, most recently parked first.
func (s *OrderService) ListParked(ctx context.Context, params pagination.Params) ([]domain.Order, int, error) {
	orders, total, err := s.orders.ListParked(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list parked orders: %w", err)
	}
	return orders, total, nil
}

// Park suspends a draft order.
func (s *OrderService) Park(ctx context.Context, id, parkedBy string) (*domain.Order, error) {
	order, err := s.updateUnlessPaying(ctx, id, func(o *domain.Order) error {
		return o.Park(parkedBy, s.now())
	})
	if err != nil {
		return nil, fmt.Errorf("park order: %w", err)
	}
	orderTransitions.WithLabelValues(domain.StatusParked).Inc()

	if err := s.producer.PublishOrderParked(ctx, order); err != nil {
		s.log(ctx).ErrorContext(ctx, "failed to publish order.parked event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.log(ctx).InfoContext(ctx, "order parked",
		slog.String("order_id", id),
		slog.String("parked_by", parkedBy),
	)
	return order, nil
}

// ResumeResult is a resumed order with its lines loaded into a cart.
type ResumeResult struct {
	Order *domain.Order `json:"order"`
	Cart  cart.View     `json:"cart"`
}

// Resume moves a parked order back to draft and reloads it into a cart.
func (s *OrderService) Resume(ctx context.Context, id string) (*ResumeResult, error) {
	order, err := s.updateUnlessPaying(ctx, id, func(o *domain.Order) error {
		return o.Resume(s.now())
	})
	if err != nil {
		return nil, fmt.Errorf("resume order: %w", err)
	}
	orderTransitions.WithLabelValues(domain.StatusDraft).Inc()

	view := cart.FromOrder(order).View()
	s.warnIntegrity(ctx, id, view.Totals)

	if err := s.producer.PublishOrderResumed(ctx, order); err != nil {
		s.log(ctx).ErrorContext(ctx, "failed to publish order.resumed event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.log(ctx).InfoContext(ctx, "order resumed", slog.String("order_id", id))
	return &ResumeResult{Order: order, Cart: view}, nil
}

// Cancel moves a draft or parked order to cancelled.
func (s *OrderService) Cancel(ctx context.Context, id, reason string) (*domain.Order, error) {
	var oldStatus string
	order, err := s.updateUnlessPaying(ctx, id, func(o *domain.Order) error {
		oldStatus = o.Status
		return o.Cancel(reason, s.now())
	})
	if err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	orderTransitions.WithLabelValues(domain.StatusCancelled).Inc()

	if err := s.producer.PublishOrderCancelled(ctx, order, oldStatus); err != nil {
		s.log(ctx).ErrorContext(ctx, "failed to publish order.cancelled event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.log(ctx).InfoContext(ctx, "order cancelled",
		slog.String("order_id", id),
		slog.String("old_status", oldStatus),
		slog.String("reason", reason),
	)
	return order, nil
}

// Receipt returns the receipt of a paid order.
func (s *OrderService) Receipt(ctx context.Context, id string) (*receipt.Receipt, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return receipt.Generate(order)
}

// Split methods.
const (
	SplitMethodEqual  = "equal"
	SplitMethodCustom = "custom"
)

// SplitInput describes how to divide a bill. Assignments map item ids to
// zero-based payer indexes and are used by the custom method only.
type SplitInput struct {
	Method      string
	Payers      int
	Assignments map[string]int
}

// SplitResult lists each payer's share in minor units.
type SplitResult struct {
	OrderID  string  `json:"order_id"`
	Method   string  `json:"method"`
	Total    int64   `json:"total"`
	Currency string  `json:"currency"`
	Shares   []int64 `json:"shares"`
}

// Split computes bill shares for an order. It changes nothing.
func (s *OrderService) Split(ctx context.Context, id string, input SplitInput) (*SplitResult, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == domain.StatusCancelled {
		return nil, domain.Errorf(domain.ErrInvalidTransition, "cannot split a cancelled order")
	}

	var shares []int64
	switch input.Method {
	case SplitMethodEqual:
		shares, err = pricing.SplitEqual(order.TotalAmount, input.Payers)
	case SplitMethodCustom:
		payers := input.Payers
		if payers == 0 {
			for _, p := range input.Assignments {
				payers = max(payers, p+1)
			}
		}
		shares, err = pricing.SplitByAssignment(order.Lines, order.Discount, input.Assignments, payers)
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("split method must be %s or %s", SplitMethodEqual, SplitMethodCustom))
	}
	if err != nil {
		return nil, err
	}

	return &SplitResult{
		OrderID:  order.ID,
		Method:   input.Method,
		Total:    order.TotalAmount,
		Currency: order.Currency,
		Shares:   shares,
	}, nil
}

// isDecline reports whether err is a processor decline rather than bad input
// or an infrastructure failure.
func isDecline(err error) bool {
	return errors.Is(err, apperrors.ErrPaymentFailed)
}
