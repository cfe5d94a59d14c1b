package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iho/cashledger/internal/adapter/http/dto"
	"github.com/iho/cashledger/internal/domain"
)

type reportServiceStub struct {
	totalsFn func(ctx context.Context, executorName string, from, to time.Time) (domain.ExecutorPeriodTotals, error)
}

func (s *reportServiceStub) ComputeExecutorPeriodTotals(ctx context.Context, executorName string, from, to time.Time) (domain.ExecutorPeriodTotals, error) {
	return s.totalsFn(ctx, executorName, from, to)
}

func reportRequest(name, query string) *http.Request {
	return withURLParams(httptest.NewRequest(http.MethodGet, "/reports/executors/"+name+query, nil), map[string]string{"name": name})
}

func TestReportHandler_ExecutorTotals(t *testing.T) {
	var gotFrom, gotTo time.Time
	handler := NewReportHandler(&reportServiceStub{
		totalsFn: func(ctx context.Context, executorName string, from, to time.Time) (domain.ExecutorPeriodTotals, error) {
			gotFrom, gotTo = from, to
			return domain.ExecutorPeriodTotals{
				ExecutorName:    executorName,
				LaborTotal:      dec("300"),
				PartsProfit:     dec("100"),
				CommissionTotal: dec("-6"),
				EntryCount:      4,
			}, nil
		},
	})

	rec := httptest.NewRecorder()
	handler.ExecutorTotals(rec, reportRequest("Ann", "?from=2024-03-01&to=2024-03-31&salary_percent=50"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !gotFrom.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) || gotTo.Day() != 31 {
		t.Fatalf("unexpected period %v - %v", gotFrom, gotTo)
	}

	var resp dto.ExecutorTotalsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ExecutorName != "Ann" || resp.EntryCount != 4 || resp.Share == nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestReportHandler_DefaultsToCurrentMonth(t *testing.T) {
	var gotFrom, gotTo time.Time
	handler := NewReportHandler(&reportServiceStub{
		totalsFn: func(ctx context.Context, executorName string, from, to time.Time) (domain.ExecutorPeriodTotals, error) {
			gotFrom, gotTo = from, to
			return domain.ExecutorPeriodTotals{ExecutorName: executorName}, nil
		},
	})
	handler.now = func() time.Time { return time.Date(2024, 2, 17, 15, 0, 0, 0, time.UTC) }

	rec := httptest.NewRecorder()
	handler.ExecutorTotals(rec, reportRequest("Ann", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !gotFrom.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected month start, got %v", gotFrom)
	}
	if !gotTo.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)) {
		t.Fatalf("expected month end, got %v", gotTo)
	}
}

func TestReportHandler_Rejections(t *testing.T) {
	handler := NewReportHandler(&reportServiceStub{
		totalsFn: func(ctx context.Context, executorName string, from, to time.Time) (domain.ExecutorPeriodTotals, error) {
			t.Fatal("ComputeExecutorPeriodTotals should not be called")
			return domain.ExecutorPeriodTotals{}, nil
		},
	})

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"reversed period", reportRequest("Ann", "?from=2024-04-01&to=2024-03-01"), http.StatusBadRequest},
		{"bad percent", reportRequest("Ann", "?salary_percent=150"), http.StatusBadRequest},
		{"other executor", func() *http.Request {
			req := reportRequest("Ann", "")
			return req.WithContext(domain.ContextWithUser(req.Context(), &domain.User{ID: "u-2", Name: "Bob", Role: domain.RoleExecutor}))
		}(), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ExecutorTotals(rec, tt.req)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}
