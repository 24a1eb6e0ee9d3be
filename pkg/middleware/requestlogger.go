package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/RestaurantPOS/pkg/logger"
)

// TerminalHeader identifies the till or tablet a request came from.
const TerminalHeader = "X-Terminal-ID"

// RequestLogger stores a request-scoped logger in the context, enriched with
// the correlation id, authenticated staff id, terminal id and trace ids.
// Mount it after RequestLogging, Tracing and Auth.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if staffID := StaffIDFromContext(ctx); staffID != "" {
				ctx = logger.WithStaffID(ctx, staffID)
			}
			if terminalID := r.Header.Get(TerminalHeader); terminalID != "" {
				ctx = logger.WithTerminalID(ctx, terminalID)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
