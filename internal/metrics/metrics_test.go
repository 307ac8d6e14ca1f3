package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerExposesCounters(t *testing.T) {
	QuotesTotal.WithLabelValues("solana", "aggregator", "ok").Inc()
	SubmitRetries.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "swap_quotes_total")
	assert.Contains(t, rec.Body.String(), "swap_submit_retries_total")
}
