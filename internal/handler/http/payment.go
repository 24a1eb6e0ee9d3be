package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/RestaurantPOS/internal/payment"
	"github.com/utafrali/RestaurantPOS/internal/service"
	"github.com/utafrali/RestaurantPOS/pkg/httputil"
	"github.com/utafrali/RestaurantPOS/pkg/validator"
)

// PaymentHandler serves the mock processor and the reconciliation queue.
type PaymentHandler struct {
	service *service.PaymentService
	logger  *slog.Logger
}

// NewPaymentHandler creates a new payment HTTP handler.
func NewPaymentHandler(svc *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{service: svc, logger: logger}
}

// MockAuthorize handles POST /api/payments/mock. A decline is a 200 with
// success false; malformed input is a 400.
func (h *PaymentHandler) MockAuthorize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req payment.AuthorizeRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	resp, err := h.service.MockAuthorize(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, resp)
}

// ListReconciliations handles GET /api/admin/reconciliations. Only open
// cases are listed unless all=true.
func (h *PaymentHandler) ListReconciliations(w http.ResponseWriter, r *http.Request) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))

	recs, err := h.service.ListReconciliations(r.Context(), !all)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, recs)
}

// ResolveReconciliation handles POST /api/admin/reconciliations/{id}/resolve
func (h *PaymentHandler) ResolveReconciliation(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResolveReconciliation(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
