package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/health"
)

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.DocIndexed()
	m.DocIndexed()
	m.DocSkipped()
	m.Commit("success", 0.01, 3, 42)
	m.Commit("failure", 0.02, 0, 0)
	m.Search("hit", "miss", 0.001, 2)
	m.Search("invalid", "disabled", 0.001, 0)
	m.CacheMiss()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocsIndexedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocsSkippedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexCommitsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexCommitsTotal.WithLabelValues("failure")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.IndexSegments), "failed commits leave gauges alone")
	assert.Equal(t, 42.0, testutil.ToFloat64(m.IndexLiveDocuments))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("invalid")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SearchResultsCount))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.DocIndexed()
		m.DocSkipped()
		m.DocDeleted()
		m.Commit("success", 1, 1, 1)
		m.Search("hit", "hit", 1, 1)
		m.CacheHit()
		m.CacheMiss()
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New(nil)
	m.DocIndexed()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "docs_indexed_total 1"))
}

func TestMuxRoutes(t *testing.T) {
	checker := health.NewChecker()
	checker.Register("index", func(context.Context) health.ComponentHealth {
		return health.Down(errors.New("store closed"))
	})
	mux := NewMux(New(nil), checker)

	tests := []struct {
		path string
		want int
	}{
		{"/metrics", http.StatusOK},
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusServiceUnavailable},
		{"/search", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.want, rec.Code, tt.path)
	}

	rec := httptest.NewRecorder()
	NewMux(New(nil), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
