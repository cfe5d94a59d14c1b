package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/cashledger/internal/infrastructure/metrics"
)

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/api/v1/entries/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/entries/"+id, nil))
	}

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "/api/v1/entries/{id}", "418")); got != 3 {
		t.Fatalf("expected 3 requests on the route pattern, got %v", got)
	}
	if got := testutil.CollectAndCount(m.HTTPDuration); got != 1 {
		t.Fatalf("expected a single duration series, got %d", got)
	}
}

func TestMetricsMiddlewareCollapsesUnmatchedPaths(t *testing.T) {
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())

	handler := Metrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/random/abc", nil))

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "unmatched", "404")); got != 1 {
		t.Fatalf("expected unmatched label, got %v", got)
	}
}
