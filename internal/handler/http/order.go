package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/RestaurantPOS/internal/domain"
	"github.com/utafrali/RestaurantPOS/internal/payment"
	"github.com/utafrali/RestaurantPOS/internal/receipt"
	"github.com/utafrali/RestaurantPOS/internal/repository"
	"github.com/utafrali/RestaurantPOS/internal/service"
	"github.com/utafrali/RestaurantPOS/pkg/httputil"
	"github.com/utafrali/RestaurantPOS/pkg/middleware"
	"github.com/utafrali/RestaurantPOS/pkg/pagination"
	"github.com/utafrali/RestaurantPOS/pkg/validator"
)

const maxBodyBytes = 1 << 20

// OrderHandler handles HTTP requests for order and cart endpoints.
type OrderHandler struct {
	service   *service.OrderService
	storeName string
	logger    *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, storeName string, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{service: svc, storeName: storeName, logger: logger}
}

// --- Request DTOs ---

// LineRequest is one cart line referencing a catalog item.
type LineRequest struct {
	ItemID       string `json:"item_id" validate:"required"`
	Quantity     int    `json:"quantity" validate:"required,gte=1,lte=9999"`
	LineDiscount int64  `json:"line_discount" validate:"gte=0"`
}

// DiscountRequest is an order discount. Value is a percentage or an amount in
// minor units depending on Type.
type DiscountRequest struct {
	Type  string          `json:"type" validate:"required,oneof=percentage fixed"`
	Value decimal.Decimal `json:"value"`
}

// CartRequest is the body of POST /api/cart/preview.
type CartRequest struct {
	Lines    []LineRequest    `json:"lines" validate:"required,min=1,dive"`
	Discount *DiscountRequest `json:"discount"`
}

// CreateOrderRequest is the body of POST /api/orders.
type CreateOrderRequest struct {
	Lines       []LineRequest    `json:"lines" validate:"required,min=1,dive"`
	Discount    *DiscountRequest `json:"discount"`
	OrderType   string           `json:"order_type" validate:"omitempty,oneof=dine-in takeaway delivery"`
	TableNumber *int             `json:"table_number" validate:"omitempty,gte=1"`
}

// CancelOrderRequest is the optional body of POST /api/orders/{id}/cancel.
type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// SplitRequest is the body of POST /api/orders/{id}/split.
type SplitRequest struct {
	Method      string         `json:"method" validate:"required,oneof=equal custom"`
	Payers      int            `json:"payers" validate:"omitempty,gte=2,lte=10"`
	Assignments map[string]int `json:"assignments" validate:"required_if=Method custom"`
}

func toCartInput(lines []LineRequest, d *DiscountRequest) service.CartInput {
	in := service.CartInput{Lines: make([]service.LineInput, len(lines))}
	for i, l := range lines {
		in.Lines[i] = service.LineInput{ItemID: l.ItemID, Quantity: l.Quantity, LineDiscount: l.LineDiscount}
	}
	if d != nil {
		in.Discount = &service.DiscountInput{Type: domain.DiscountType(d.Type), Value: d.Value}
	}
	return in
}

// orderID reads and checks the {id} path parameter.
func orderID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Error: "order id must be a UUID", Code: "INVALID_INPUT"})
		return "", false
	}
	return id, true
}

// actor names who performed an action: the terminal when the request
// carries one, otherwise the authenticated staff member.
func actor(r *http.Request) string {
	if t := r.Header.Get(middleware.TerminalHeader); t != "" {
		return t
	}
	return middleware.StaffIDFromContext(r.Context())
}

// --- Handlers ---

// CreateOrder handles POST /api/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req CreateOrderRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), service.CreateOrderInput{
		CartInput:   toCartInput(req.Lines, req.Discount),
		OrderType:   req.OrderType,
		TableNumber: req.TableNumber,
		CreatedBy:   middleware.StaffIDFromContext(r.Context()),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, order)
}

// PreviewCart handles POST /api/cart/preview
func (h *OrderHandler) PreviewCart(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req CartRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	view, err := h.service.PreviewCart(r.Context(), toCartInput(req.Lines, req.Discount))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, view)
}

// ListOrders handles GET /api/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	filter := repository.OrderFilter{Params: pagination.FromRequest(r)}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}

	orders, total, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(orders, total, filter.Params))
}

// ListParked handles GET /api/orders/parked
func (h *OrderHandler) ListParked(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	orders, total, err := h.service.ListParked(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(orders, total, params))
}

// GetOrder handles GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, order)
}

// ParkOrder handles POST /api/orders/{id}/park
func (h *OrderHandler) ParkOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	order, err := h.service.Park(r.Context(), id, actor(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, order)
}

// ResumeOrder handles POST /api/orders/{id}/resume
func (h *OrderHandler) ResumeOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	res, err := h.service.Resume(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, res)
}

// PayOrder handles PUT /api/orders/{id}/pay
func (h *OrderHandler) PayOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req payment.Request
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	res, err := h.service.Pay(r.Context(), id, service.PayInput{Payment: req, PaidBy: actor(r)})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, res)
}

// CancelOrder handles POST /api/orders/{id}/cancel
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var req CancelOrderRequest
	if r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := validator.DecodeAndValidate(r, &req); err != nil {
			httputil.WriteValidationError(w, r, err)
			return
		}
	}

	order, err := h.service.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, order)
}

// GetReceipt handles GET /api/orders/{id}/receipt. format=text renders a
// printable bill; download=1 returns the JSON receipt as a file.
func (h *OrderHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	rcpt, err := h.service.Receipt(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	q := r.URL.Query()
	switch {
	case q.Get("format") == "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := rcpt.RenderText(w, h.storeName); err != nil {
			h.logger.ErrorContext(r.Context(), "failed to render receipt",
				slog.String("order_id", id),
				slog.String("error", err.Error()),
			)
		}
	case q.Get("download") == "1" || q.Get("download") == "true":
		body, err := rcpt.MarshalIndent()
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		httputil.WriteAttachment(w, receipt.Filename(id), body)
	default:
		httputil.WriteData(w, http.StatusOK, rcpt)
	}
}

// SplitOrder handles POST /api/orders/{id}/split
func (h *OrderHandler) SplitOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req SplitRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	res, err := h.service.Split(r.Context(), id, service.SplitInput{
		Method:      req.Method,
		Payers:      req.Payers,
		Assignments: req.Assignments,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, res)
}
