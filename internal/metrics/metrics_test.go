package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveClassification(t *testing.T) {
	m := New()

	m.ObserveClassification("text", "scam", 95)
	m.ObserveClassification("text", "scam", 85)
	m.ObserveClassification("email", "Safe", 10)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.classifications.WithLabelValues("text", "scam")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.classifications.WithLabelValues("email", "Safe")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.scores))
}

func TestCountersAndHandler(t *testing.T) {
	m := New()

	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)
	m.CapabilityDegraded("ml")
	m.RateLimited()
	m.ObserveHTTP(http.MethodPost, "/api/classify", 200, 15*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, name := range []string{
		"scamsniper_classify_cache_lookups_total",
		"scamsniper_capability_degraded_total",
		"scamsniper_http_requests_total",
		"scamsniper_rate_limited_total",
		"go_goroutines",
	} {
		assert.True(t, strings.Contains(body, name), "missing %s", name)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveClassification("text", "safe", 0)
		m.CacheLookup(true)
		m.CapabilityDegraded("ocr")
		m.ObserveHTTP("GET", "/", 200, time.Millisecond)
		m.RateLimited()
	})
}
