package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/cashledger/internal/adapter/http/dto"
	"github.com/iho/cashledger/internal/domain"
)

// withURLParams attaches chi route params to req.
func withURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestParseIntQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/entries?limit=50", nil)
	if got := parseIntQuery(req, "limit", 10); got != 50 {
		t.Fatalf("expected limit=50, got %d", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/entries?limit=invalid", nil)
	if got := parseIntQuery(req, "limit", 10); got != 10 {
		t.Fatalf("expected fallback to default, got %d", got)
	}

	req.URL = &url.URL{RawQuery: ""}
	if got := parseIntQuery(req, "limit", 25); got != 25 {
		t.Fatalf("expected default when missing, got %d", got)
	}
}

func TestParseTimeQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/entries?from=2024-03-01&to=2024-03-31&at=2024-03-05T10:00:00Z&bad=yesterday", nil)

	from, err := parseTimeQuery(req, "from", false)
	if err != nil || !from.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected from: %v %v", from, err)
	}

	to, err := parseTimeQuery(req, "to", true)
	if err != nil || !to.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)) {
		t.Fatalf("expected end of day, got %v %v", to, err)
	}

	at, err := parseTimeQuery(req, "at", true)
	if err != nil || !at.Equal(time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("RFC 3339 values are taken as is, got %v %v", at, err)
	}

	if _, err := parseTimeQuery(req, "bad", false); !errors.Is(err, domain.ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}

	missing, err := parseTimeQuery(req, "missing", false)
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing key, got %v %v", missing, err)
	}
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"entry not found", domain.ErrEntryNotFound, http.StatusNotFound},
		{"entry referenced", fmt.Errorf("%w: entry 3", domain.ErrEntryReferenced), http.StatusConflict},
		{"snapshot mismatch", &domain.SnapshotMismatch{EntryID: 2}, http.StatusConflict},
		{"invalid amount", domain.ErrInvalidAmount, http.StatusBadRequest},
		{"mixed not allowed", domain.ErrMixedNotAllowed, http.StatusBadRequest},
		{"invalid transition", domain.ErrInvalidTransition, http.StatusBadRequest},
		{"refund exceeds total", domain.ErrRefundExceedsTotal, http.StatusBadRequest},
		{"expired token", domain.ErrExpiredToken, http.StatusUnauthorized},
		{"insufficient role", domain.ErrInsufficientRole, http.StatusForbidden},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapDomainError(tt.err); got != tt.expected {
				t.Fatalf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestWriteDomainError_HidesInternalErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/balances", nil)

	writeDomainError(rr, req, "failed to get balances", errors.New("pq: connection refused"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "connection refused") {
		t.Fatalf("internal error leaked: %s", rr.Body.String())
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	payload := map[string]string{"status": "ok"}

	writeJSON(rr, http.StatusCreated, payload)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content-type application/json, got %s", ct)
	}

	var decoded map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if decoded["status"] != "ok" {
		t.Fatalf("expected payload to round-trip, got %+v", decoded)
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()

	writeError(rr, http.StatusBadRequest, "bad request", "detail")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}

	if resp.Error != "bad request" || resp.Message != "detail" {
		t.Fatalf("expected error message to propagate, got %+v", resp)
	}
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(`{"amount":"1","currency":"USD"}`))

	var v dto.RecordEntryRequest
	if decodeJSON(rr, req, &v) {
		t.Fatal("expected decode to fail")
	}
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
