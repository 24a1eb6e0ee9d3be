package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/RestaurantPOS/internal/domain"
	"github.com/utafrali/RestaurantPOS/internal/event"
	"github.com/utafrali/RestaurantPOS/internal/payment/simulator"
	"github.com/utafrali/RestaurantPOS/internal/receipt"
	redisrepo "github.com/utafrali/RestaurantPOS/internal/repository/redis"
	"github.com/utafrali/RestaurantPOS/internal/service"
	"github.com/utafrali/RestaurantPOS/pkg/database"
	"github.com/utafrali/RestaurantPOS/pkg/health"
	"github.com/utafrali/RestaurantPOS/pkg/httputil"
	"github.com/utafrali/RestaurantPOS/pkg/middleware"
)

const (
	testSecret  = "test-secret"
	testAnonKey = "anon-key"
)

// --- Test Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	menu := redisrepo.NewMenuRepository(client)
	_, err := menu.Seed(context.Background(), domain.DefaultCatalog())
	require.NoError(t, err)

	simCfg := simulator.DefaultConfig()
	simCfg.Delay = 0
	sim := simulator.New(simCfg)

	logger := testLogger()
	orders := service.NewOrderService(
		redisrepo.NewOrderRepository(client, database.QueryTracer{}),
		menu, nil, sim, event.NewProducer(nil, logger), logger, service.Config{},
	)
	payments := service.NewPaymentService(sim, nil, logger)

	return NewRouter(orders, payments, health.NewHandler(), logger, RouterConfig{
		Validate:  middleware.NewJWTValidator(testSecret),
		AnonKey:   testAnonKey,
		StoreName: "Test Bistro",
		CORS:      middleware.DefaultCORSConfig(),
	})
}

func token(t *testing.T, staffID, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  staffID,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

type client struct {
	t      *testing.T
	router http.Handler
	bearer string
}

func newClient(t *testing.T) *client {
	return &client{t: t, router: newTestRouter(t), bearer: token(t, "cashier-1", "cashier")}
}

func (c *client) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorBody {
	t.Helper()
	var body httputil.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func createOrder(t *testing.T, c *client) domain.Order {
	t.Helper()
	rec := c.do(http.MethodPost, "/api/orders", map[string]any{
		"lines": []map[string]any{
			{"item_id": "ITEM001", "quantity": 2},
			{"item_id": "ITEM003", "quantity": 1},
		},
		"table_number": 7,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var o domain.Order
	decodeData(t, rec, &o)
	return o
}

// ---------------------------------------------------------------------------
// Auth and plumbing
// ---------------------------------------------------------------------------

func TestRouter_RequiresAuth(t *testing.T) {
	c := newClient(t)
	c.bearer = ""

	rec := c.do(http.MethodGet, "/api/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = c.do(http.MethodGet, "/api/orders", nil, middleware.AnonKeyHeader, testAnonKey)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "anon key only opens the mock processor")
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	c := newClient(t)
	c.bearer = ""

	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/health/live", nil).Code)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/health/ready", nil).Code)

	rec := c.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pos_http_requests_total")
}

func TestRouter_RejectsNonJSONBody(t *testing.T) {
	c := newClient(t)
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader("lines=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.bearer)
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRouter_InvalidOrderID(t *testing.T) {
	c := newClient(t)

	rec := c.do(http.MethodGet, "/api/orders/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodGet, "/api/orders/0b3f4c1e-8d2a-4c7e-9d3b-5a6f7e8d9c0b", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ORDER_NOT_FOUND", decodeError(t, rec).Code)
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

func TestCreateOrder_Handler(t *testing.T) {
	c := newClient(t)

	o := createOrder(t, c)
	assert.Equal(t, domain.StatusDraft, o.Status)
	assert.Equal(t, domain.OrderTypeDineIn, o.OrderType)
	assert.Equal(t, int64(3120), o.TotalAmount)
	assert.Equal(t, "cashier-1", o.CreatedBy)
}

func TestCreateOrder_ValidationError(t *testing.T) {
	c := newClient(t)

	rec := c.do(http.MethodPost, "/api/orders", map[string]any{
		"lines": []map[string]any{{"item_id": "ITEM001", "quantity": 0}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)

	rec = c.do(http.MethodPost, "/api/orders", map[string]any{
		"lines":    []map[string]any{{"item_id": "ITEM001", "quantity": 1}},
		"discount": map[string]any{"type": "percentage", "value": 150},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "DISCOUNT_EXCEEDS_LIMIT", decodeError(t, rec).Code)

	rec = c.do(http.MethodPost, "/api/orders", map[string]any{
		"lines":      []map[string]any{{"item_id": "ITEM001", "quantity": 1}},
		"order_type": "dine-in",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "TABLE_REQUIRED", decodeError(t, rec).Code)

	rec = c.do(http.MethodPost, "/api/orders", map[string]any{
		"lines": []map[string]any{{"item_id": "ITEM001", "quantity": int64(1e16)}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
}

func TestListOrders_Handler(t *testing.T) {
	c := newClient(t)
	createOrder(t, c)
	createOrder(t, c)

	rec := c.do(http.MethodGet, "/api/orders?status=draft&per_page=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Data       []domain.Order `json:"data"`
		TotalCount int            `json:"total_count"`
		HasNext    bool           `json:"has_next"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Data, 1)
	assert.Equal(t, 2, page.TotalCount)
	assert.True(t, page.HasNext)

	rec = c.do(http.MethodGet, "/api/orders?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParkResume_Handler(t *testing.T) {
	c := newClient(t)
	o := createOrder(t, c)

	rec := c.do(http.MethodPost, "/api/orders/"+o.ID+"/park", nil, middleware.TerminalHeader, "till-3")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var parked domain.Order
	decodeData(t, rec, &parked)
	assert.Equal(t, domain.StatusParked, parked.Status)
	assert.Equal(t, "till-3", parked.ParkedBy)

	rec = c.do(http.MethodGet, "/api/orders/parked", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), o.ID)

	rec = c.do(http.MethodPost, "/api/orders/"+o.ID+"/park", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", decodeError(t, rec).Code)

	rec = c.do(http.MethodPost, "/api/orders/"+o.ID+"/resume", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resumed service.ResumeResult
	decodeData(t, rec, &resumed)
	assert.Equal(t, domain.StatusDraft, resumed.Order.Status)
	require.Len(t, resumed.Cart.Lines, 2)
	assert.Equal(t, 2, resumed.Cart.Lines[0].Quantity)
	assert.Equal(t, int64(3120), resumed.Cart.Totals.Total)
}

func TestCancel_Handler(t *testing.T) {
	c := newClient(t)
	o := createOrder(t, c)

	rec := c.do(http.MethodPost, "/api/orders/"+o.ID+"/cancel", map[string]any{"reason": "duplicate"})
	require.Equal(t, http.StatusOK, rec.Code)
	var cancelled domain.Order
	decodeData(t, rec, &cancelled)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	rec = c.do(http.MethodPost, "/api/orders/"+o.ID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// ---------------------------------------------------------------------------
// Payment, receipt, split
// ---------------------------------------------------------------------------

func TestPay_Handler(t *testing.T) {
	c := newClient(t)
	o := createOrder(t, c)

	rec := c.do(http.MethodPut, "/api/orders/"+o.ID+"/pay", map[string]any{
		"method": "credit_card", "card_number": "4111111111110000", "cvv": "123",
	})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "CARD_DECLINED", body.Code)
	assert.Equal(t, "Card declined", body.Error)

	rec = c.do(http.MethodPut, "/api/orders/"+o.ID+"/pay", map[string]any{
		"method": "cash", "received_amount": 3000,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INSUFFICIENT_AMOUNT", decodeError(t, rec).Code)

	rec = c.do(http.MethodPut, "/api/orders/"+o.ID+"/pay", map[string]any{
		"method": "cash", "received_amount": 5000,
	}, middleware.TerminalHeader, "till-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var paid service.PayResult
	decodeData(t, rec, &paid)
	assert.Equal(t, domain.StatusPaid, paid.Order.Status)
	assert.Equal(t, int64(1880), paid.Result.Change)
	assert.Equal(t, "till-1", paid.Order.Payment.PaidBy)

	rec = c.do(http.MethodPut, "/api/orders/"+o.ID+"/pay", map[string]any{
		"method": "cash", "received_amount": 5000,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_PAID", decodeError(t, rec).Code)
}

func TestReceipt_Handler(t *testing.T) {
	c := newClient(t)
	o := createOrder(t, c)

	rec := c.do(http.MethodGet, "/api/orders/"+o.ID+"/receipt", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ORDER_NOT_PAID", decodeError(t, rec).Code)

	rec = c.do(http.MethodPut, "/api/orders/"+o.ID+"/pay", map[string]any{"method": "upi", "upi_id": "diner@okbank"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	first := c.do(http.MethodGet, "/api/orders/"+o.ID+"/receipt", nil)
	second := c.do(http.MethodGet, "/api/orders/"+o.ID+"/receipt", nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())

	rec = c.do(http.MethodGet, "/api/orders/"+o.ID+"/receipt?download=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="receipt-`+o.ID+`.json"`, rec.Header().Get("Content-Disposition"))
	var exported receipt.Receipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exported))
	assert.Equal(t, o.ID, exported.OrderID)
	assert.Equal(t, int64(3120), exported.Total)
	assert.Contains(t, rec.Body.String(), "\n  \"order_id\"")

	rec = c.do(http.MethodGet, "/api/orders/"+o.ID+"/receipt?format=text", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, rec.Body.String(), "Test Bistro")
	assert.Contains(t, rec.Body.String(), "31.20")
}

func TestSplit_Handler(t *testing.T) {
	c := newClient(t)
	o := createOrder(t, c)

	rec := c.do(http.MethodPost, "/api/orders/"+o.ID+"/split", map[string]any{"method": "equal", "payers": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	var split service.SplitResult
	decodeData(t, rec, &split)
	assert.Equal(t, []int64{1040, 1040, 1040}, split.Shares)

	rec = c.do(http.MethodPost, "/api/orders/"+o.ID+"/split", map[string]any{"method": "equal", "payers": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPost, "/api/orders/"+o.ID+"/split", map[string]any{"method": "custom"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviewCart_Handler(t *testing.T) {
	c := newClient(t)

	rec := c.do(http.MethodPost, "/api/cart/preview", map[string]any{
		"lines":    []map[string]any{{"item_id": "ITEM002", "quantity": 1}},
		"discount": map[string]any{"type": "percentage", "value": 10},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view struct {
		Totals struct {
			Subtotal int64 `json:"subtotal"`
			Tax      int64 `json:"tax"`
			Discount int64 `json:"discount"`
			Total    int64 `json:"total"`
		} `json:"totals"`
	}
	decodeData(t, rec, &view)
	// 8.99 + 0.72 tax - 0.90 discount.
	assert.Equal(t, int64(899), view.Totals.Subtotal)
	assert.Equal(t, int64(72), view.Totals.Tax)
	assert.Equal(t, int64(90), view.Totals.Discount)
	assert.Equal(t, int64(881), view.Totals.Total)
}

// ---------------------------------------------------------------------------
// Mock processor and admin
// ---------------------------------------------------------------------------

func TestMockPayment_AnonKey(t *testing.T) {
	c := newClient(t)
	c.bearer = ""

	rec := c.do(http.MethodPost, "/api/payments/mock", map[string]any{
		"method": "credit_card", "amount": 1000, "card_number": "4111111111110000", "cvv": "123",
	}, middleware.AnonKeyHeader, testAnonKey)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
	}
	decodeData(t, rec, &resp)
	assert.False(t, resp.Success)
	assert.Equal(t, "CARD_DECLINED", resp.Code)

	rec = c.do(http.MethodPost, "/api/payments/mock", map[string]any{
		"method": "upi", "amount": 1000, "upi_id": "nobody",
	}, middleware.AnonKeyHeader, testAnonKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_UPI_ID", decodeError(t, rec).Code)

	rec = c.do(http.MethodPost, "/api/payments/mock", map[string]any{
		"method": "upi", "amount": 1000, "upi_id": "a@b",
	}, middleware.AnonKeyHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReconciliations_RequiresAdmin(t *testing.T) {
	c := newClient(t)

	rec := c.do(http.MethodGet, "/api/admin/reconciliations", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c.bearer = token(t, "boss", "manager")
	rec = c.do(http.MethodGet, "/api/admin/reconciliations", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "router under test runs without a ledger")
	assert.Equal(t, "LEDGER_UNAVAILABLE", decodeError(t, rec).Code)
}
