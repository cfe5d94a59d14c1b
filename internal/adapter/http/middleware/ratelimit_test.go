package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/cashledger/internal/infrastructure/metrics"
)

func TestRateLimiter_Limit(t *testing.T) {
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	rl := NewRateLimiter(1, 2, m)
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/balances", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected burst of 2 then 429, got %v", codes)
	}
	if got := testutil.ToFloat64(m.RateLimitHits.WithLabelValues("10.0.0.1")); got != 1 {
		t.Fatalf("expected one rate limit hit, got %v", got)
	}

	other := httptest.NewRequest(http.MethodGet, "/api/v1/balances", nil)
	other.RemoteAddr = "10.0.0.2:5555"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, other)
	if rr.Code != http.StatusOK {
		t.Fatalf("other clients must not share the limiter, got %d", rr.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	if got := clientIP(req); got != "192.0.2.1" {
		t.Fatalf("expected host without port, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("expected first forwarded address, got %q", got)
	}
}

func TestRateLimiter_CleanupLimiters(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(10, 10, nil)
	rl.now = func() time.Time { return now }

	rl.getLimiter("a")
	now = now.Add(2 * time.Hour)
	rl.getLimiter("b")

	if removed := rl.CleanupLimiters(time.Hour); removed != 1 {
		t.Fatalf("expected one idle limiter removed, got %d", removed)
	}
	if _, ok := rl.limiters["b"]; !ok {
		t.Fatalf("active limiter must be kept")
	}
}
