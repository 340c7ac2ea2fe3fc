package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/legal-indexer/internal/metrics"
)

func TestNew_IndependentRegistries(t *testing.T) {
	// Each instance owns its registry, so creating two must not panic.
	a := metrics.New()
	b := metrics.New()

	a.RecordFetch("govinfo", metrics.OutcomeOK)
	assert.InDelta(t, 1, testutil.ToFloat64(a.FetchRequests.WithLabelValues("govinfo", metrics.OutcomeOK)), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.FetchRequests.WithLabelValues("govinfo", metrics.OutcomeOK)), 0)
}

func TestRecorders(t *testing.T) {
	m := metrics.New()

	m.RecordBackendCall("ucc", "create_section", true)
	m.RecordBackendCall("ucc", "create_section", false)
	m.RecordUnit("ucc", metrics.UnitStored)
	m.RecordSections("ucc", 3)
	m.RecordSections("ucc", 0)
	m.RecordRun("ucc", "full", "completed", 2*time.Second, time.Unix(1700000000, 0))

	assert.InDelta(t, 1, testutil.ToFloat64(m.BackendCalls.WithLabelValues("ucc", "create_section", "failed")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.Sections.WithLabelValues("ucc")), 0)
	assert.InDelta(t, 1700000000, testutil.ToFloat64(m.LastRun.WithLabelValues("ucc", "full")), 0)
}

func TestNilMetrics(t *testing.T) {
	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.RecordFetch("cornell", metrics.OutcomeCacheHit)
		m.ObserveWait("cornell", time.Second)
		m.RecordBackendCall("uscode", "stats", true)
		m.RecordUnit("uscode", metrics.UnitFailed)
		m.RecordSections("uscode", 1)
		m.RecordRun("uscode", "incremental", "failed", time.Second, time.Now())
	})
}

func TestHandler(t *testing.T) {
	m := metrics.New()
	m.RecordUnit("uscode", metrics.UnitUnchanged)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `legal_indexer_units_total{corpus="uscode",result="unchanged"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
