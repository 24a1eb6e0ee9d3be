package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Payment outcomes.
const (
	outcomeSuccess    = "success"
	outcomeDeclined   = "declined"
	outcomeInvalid    = "invalid"
	outcomeAbandoned  = "abandoned"
	outcomeError      = "error"
	outcomeReconciled = "reconcile"
)

var (
	paymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pos",
			Name:      "payments_total",
			Help:      "Payment attempts by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	authorizationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pos",
			Name:      "payment_authorization_duration_seconds",
			Help:      "Time spent settling a payment attempt",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 1.5, 2, 3, 5, 10},
		},
		[]string{"method"},
	)

	integrityWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pos",
			Name:      "integrity_warnings_total",
			Help:      "Totals corrected by clamping, by kind",
		},
		[]string{"kind"},
	)

	reconciliationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pos",
			Name:      "payment_reconciliations_total",
			Help:      "Authorized payments whose order commit failed",
		},
	)

	orderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pos",
			Name:      "order_transitions_total",
			Help:      "Committed order state transitions by target status",
		},
		[]string{"status"},
	)
)
