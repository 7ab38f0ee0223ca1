// Package metrics holds the Prometheus collectors of the ledger.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bilancio"

var RecordsLoaded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "records_loaded_total",
	Help:      "Total records accepted while loading a record store.",
})

var RecordsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "records_skipped_total",
	Help:      "Total records skipped while loading, by failing field.",
}, []string{"field"})

var TransactionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "transactions_rejected_total",
	Help:      "Total transactions refused by add or edit, by failing field.",
}, []string{"field"})

var LedgerSize = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "transactions",
	Help:      "Current number of transactions in the session ledger.",
})

var Forecasts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "forecast",
	Name:      "predictions_total",
	Help:      "Total forecasts computed, by granularity and degenerate flag.",
}, []string{"granularity", "degenerate"})

var BudgetAlerts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "forecast",
	Name:      "budget_alerts_total",
	Help:      "Total forecasts that crossed the budget alert threshold.",
})

var PersistDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "storage",
	Name:      "persist_seconds",
	Help:      "Time spent saving the ledger to the record store.",
	Buckets:   prometheus.DefBuckets,
}, []string{"result"})

var HTTPAuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "auth_failures_total",
	Help:      "Total API requests refused by basic auth, by reason.",
}, []string{"reason"})

var HTTPRateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Total API requests refused by the per-client rate limit.",
})

// Auth failure reasons.
const (
	AuthMissing     = "missing"
	AuthInvalid     = "invalid"
	AuthUnavailable = "unavailable"
	AuthWrongOwner  = "wrong_owner"
)

// ObserveForecast counts one forecast.
func ObserveForecast(granularity string, degenerate bool) {
	Forecasts.WithLabelValues(granularity, strconv.FormatBool(degenerate)).Inc()
}

// Result maps an error to the "ok"/"error" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
