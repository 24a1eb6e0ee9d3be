package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/RestaurantPOS/internal/service"
	"github.com/utafrali/RestaurantPOS/pkg/health"
	"github.com/utafrali/RestaurantPOS/pkg/middleware"
)

const serviceName = "pos"

// Admin roles may read and resolve the reconciliation queue.
var adminRoles = []string{"admin", "manager"}

// RouterConfig carries the HTTP-only settings of the router.
type RouterConfig struct {
	Validate  middleware.TokenValidator
	AnonKey   string
	StoreName string
	CORS      middleware.CORSConfig
	// PaymentLimiter throttles payment routes. Nil disables throttling.
	PaymentLimiter *middleware.RateLimiter
}

// NewRouter creates a chi router with all POS routes registered.
func NewRouter(
	orderService *service.OrderService,
	paymentService *service.PaymentService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	orderHandler := NewOrderHandler(orderService, cfg.StoreName, logger)
	paymentHandler := NewPaymentHandler(paymentService, logger)

	throttle := func(next http.Handler) http.Handler { return next }
	if cfg.PaymentLimiter != nil {
		throttle = cfg.PaymentLimiter.Handler
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// The mock processor also accepts the anon key.
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthOrAnonKey(cfg.Validate, cfg.AnonKey))
			r.Use(middleware.RequestLogger(logger))
			r.With(throttle).Post("/payments/mock", paymentHandler.MockAuthorize)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Validate))
			r.Use(middleware.RequestLogger(logger))

			r.Post("/cart/preview", orderHandler.PreviewCart)

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", orderHandler.CreateOrder)
				r.Get("/", orderHandler.ListOrders)
				r.Get("/parked", orderHandler.ListParked)
				r.Get("/{id}", orderHandler.GetOrder)
				r.Post("/{id}/park", orderHandler.ParkOrder)
				r.Post("/{id}/resume", orderHandler.ResumeOrder)
				r.With(throttle).Put("/{id}/pay", orderHandler.PayOrder)
				r.Post("/{id}/cancel", orderHandler.CancelOrder)
				r.Get("/{id}/receipt", orderHandler.GetReceipt)
				r.Post("/{id}/split", orderHandler.SplitOrder)
			})

			r.Route("/admin/reconciliations", func(r chi.Router) {
				r.Use(middleware.RequireRole(adminRoles...))
				r.Get("/", paymentHandler.ListReconciliations)
				r.Post("/{id}/resolve", paymentHandler.ResolveReconciliation)
			})
		})
	})

	return r
}
