package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QuotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "swap_quotes_total", Help: "Quote requests by chain, backend and result"},
		[]string{"chain", "backend", "result"},
	)
	AttemptTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "swap_attempt_transitions_total", Help: "Swap attempt state transitions"},
		[]string{"chain", "status"},
	)
	AttemptFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "swap_attempt_failures_total", Help: "Failed swap attempts by error kind"},
		[]string{"chain", "kind"},
	)
	SubmitRetries = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "swap_submit_retries_total", Help: "sendTransaction retries after transient transport errors"},
	)
	ConfirmOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "swap_confirm_outcomes_total", Help: "Confirmation outcomes"},
		[]string{"outcome"},
	)
	CatalogWarnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "token_catalog_load_warnings_total", Help: "Token list providers that failed during load"},
		[]string{"provider"},
	)
)

func init() {
	prometheus.MustRegister(QuotesTotal, AttemptTransitions, AttemptFailures, SubmitRetries, ConfirmOutcomes, CatalogWarnings)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
