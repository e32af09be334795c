// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "path", "status_code"})

	VisitConfirmations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "visit_confirmations_total",
		Help: "Visit confirmation attempts by kind and outcome.",
	}, []string{"kind", "outcome"})

	ExpensesFinalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "expenses_finalized_total",
		Help: "Expenses marked paid by monthly finalization.",
	})

	PaymentBatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_batches_total",
		Help: "Monthly payment batches created.",
	})

	VersionChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_version_checks_total",
		Help: "Client version checks by resulting update type.",
	}, []string{"update_type"})
)

// Visit confirmation outcomes.
const (
	OutcomeConfirmed  = "confirmed"
	OutcomeTooFar     = "too_far"
	OutcomeNoLocation = "no_target_location"
)
