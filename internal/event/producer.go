package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/RestaurantPOS/internal/domain"
	pkgkafka "github.com/utafrali/RestaurantPOS/pkg/kafka"
	"github.com/utafrali/RestaurantPOS/pkg/logger"
)

// Kafka topics for order lifecycle events.
var (
	TopicOrderCreated    = pkgkafka.Topic("order", "created")
	TopicOrderParked     = pkgkafka.Topic("order", "parked")
	TopicOrderResumed    = pkgkafka.Topic("order", "resumed")
	TopicOrderPaid       = pkgkafka.Topic("order", "paid")
	TopicOrderCancelled  = pkgkafka.Topic("order", "cancelled")
	TopicPaymentDeclined = pkgkafka.Topic("payment", "declined")
)

const (
	AggregateTypeOrder = "order"
	SourcePOS          = "pos-service"
)

// Publisher is the part of *pkgkafka.Producer the event producer needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// OrderLineData is one line of an order snapshot.
type OrderLineData struct {
	ItemID         string `json:"item_id"`
	Name           string `json:"name"`
	UnitPrice      int64  `json:"unit_price"`
	Quantity       int    `json:"quantity"`
	LineDiscount   int64  `json:"line_discount,omitempty"`
	KitchenDisplay bool   `json:"kitchen_display"`
}

// OrderSnapshotData is the payload of order.created and order.paid. Kitchen
// displays consume order.created.
type OrderSnapshotData struct {
	OrderID     string          `json:"order_id"`
	Status      string          `json:"status"`
	OrderType   string          `json:"order_type"`
	TableNumber *int            `json:"table_number,omitempty"`
	Lines       []OrderLineData `json:"lines"`
	Subtotal    int64           `json:"subtotal"`
	Tax         int64           `json:"tax"`
	Discount    int64           `json:"discount"`
	Total       int64           `json:"total"`
	Currency    string          `json:"currency"`
	Payment     *domain.Payment `json:"payment,omitempty"`
}

// OrderStatusData is the payload of parked, resumed and cancelled events.
type OrderStatusData struct {
	OrderID   string `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	Reason    string `json:"reason,omitempty"`
	Actor     string `json:"actor,omitempty"`
}

// PaymentDeclinedData is the payload of payment.declined.
type PaymentDeclinedData struct {
	OrderID string `json:"order_id"`
	Method  string `json:"method"`
	Amount  int64  `json:"amount"`
	Code    string `json:"code"`
	Reason  string `json:"reason"`
	Card    string `json:"card,omitempty"`
}

// Producer publishes order domain events. A nil publisher turns every call
// into a no-op.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates an event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

func snapshot(o *domain.Order) OrderSnapshotData {
	lines := make([]OrderLineData, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = OrderLineData{
			ItemID:         l.ItemID,
			Name:           l.Name,
			UnitPrice:      l.UnitPrice,
			Quantity:       l.Quantity,
			LineDiscount:   l.LineDiscount,
			KitchenDisplay: l.KitchenDisplay,
		}
	}
	return OrderSnapshotData{
		OrderID:     o.ID,
		Status:      o.Status,
		OrderType:   o.OrderType,
		TableNumber: o.TableNumber,
		Lines:       lines,
		Subtotal:    o.Subtotal,
		Tax:         o.TaxAmount,
		Discount:    o.DiscountAmount,
		Total:       o.TotalAmount,
		Currency:    o.Currency,
		Payment:     o.Payment,
	}
}

// PublishOrderCreated publishes order.created with the full snapshot.
func (p *Producer) PublishOrderCreated(ctx context.Context, o *domain.Order) error {
	return p.publish(ctx, TopicOrderCreated, o.ID, snapshot(o))
}

// PublishOrderPaid publishes order.paid with the snapshot and payment.
func (p *Producer) PublishOrderPaid(ctx context.Context, o *domain.Order) error {
	return p.publish(ctx, TopicOrderPaid, o.ID, snapshot(o))
}

// PublishOrderParked publishes order.parked.
func (p *Producer) PublishOrderParked(ctx context.Context, o *domain.Order) error {
	return p.publish(ctx, TopicOrderParked, o.ID, OrderStatusData{
		OrderID:   o.ID,
		OldStatus: domain.StatusDraft,
		NewStatus: domain.StatusParked,
		Actor:     o.ParkedBy,
	})
}

// PublishOrderResumed publishes order.resumed.
func (p *Producer) PublishOrderResumed(ctx context.Context, o *domain.Order) error {
	return p.publish(ctx, TopicOrderResumed, o.ID, OrderStatusData{
		OrderID:   o.ID,
		OldStatus: domain.StatusParked,
		NewStatus: domain.StatusDraft,
	})
}

// PublishOrderCancelled publishes order.cancelled.
func (p *Producer) PublishOrderCancelled(ctx context.Context, o *domain.Order, oldStatus string) error {
	return p.publish(ctx, TopicOrderCancelled, o.ID, OrderStatusData{
		OrderID:   o.ID,
		OldStatus: oldStatus,
		NewStatus: domain.StatusCancelled,
		Reason:    o.CancelReason,
	})
}

// PublishPaymentDeclined publishes payment.declined.
func (p *Producer) PublishPaymentDeclined(ctx context.Context, data PaymentDeclinedData) error {
	return p.publish(ctx, TopicPaymentDeclined, data.OrderID, data)
}

func (p *Producer) publish(ctx context.Context, topic, orderID string, data any) error {
	if p == nil || p.kafka == nil {
		return nil
	}

	evt, err := pkgkafka.NewEvent(topic, orderID, AggregateTypeOrder, SourcePOS, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	evt.WithCorrelationID(logger.CorrelationIDFromContext(ctx)).
		WithMetadata("staff_id", logger.StaffIDFromContext(ctx)).
		WithMetadata("terminal_id", logger.TerminalIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("order_id", orderID),
	)
	return nil
}
