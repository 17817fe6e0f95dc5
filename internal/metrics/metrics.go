// Package metrics holds the Prometheus collectors shared by the HTTP layer,
// the services and the recurring worker.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "khata"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	TransactionsPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_posted_total",
			Help:      "Ledger transactions posted, by type",
		},
		[]string{"type"},
	)
	TransactionsVoided = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_voided_total",
			Help:      "Ledger transactions voided",
		},
	)

	ScheduleRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_runs_total",
			Help:      "Recurring schedule generation attempts, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
	ScheduleBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "schedule_batch_duration_seconds",
			Help:      "Duration of a due-schedule batch",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	StatementRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statement_rows_total",
			Help:      "Bank statement rows seen during import, by outcome",
		},
		[]string{"outcome"},
	)
	Reconciliations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Bank rows linked to ledger transactions, by method",
		},
		[]string{"method"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
