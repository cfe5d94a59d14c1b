package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/cashledger/internal/adapter/http/dto"
	"github.com/iho/cashledger/internal/domain"
)

// ReportService defines the behavior needed by ReportHandler.
type ReportService interface {
	ComputeExecutorPeriodTotals(ctx context.Context, executorName string, from, to time.Time) (domain.ExecutorPeriodTotals, error)
}

// ReportHandler serves executor salary reports.
type ReportHandler struct {
	reportUC ReportService
	now      func() time.Time
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportUC ReportService) *ReportHandler {
	return &ReportHandler{reportUC: reportUC, now: time.Now}
}

// ExecutorTotals returns an executor's totals for [from, to]. The period
// defaults to the current month. An authenticated executor can only read
// their own totals.
func (h *ReportHandler) ExecutorTotals(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing executor name", "")
		return
	}

	if user, ok := domain.UserFromContext(r.Context()); ok && user.Role == domain.RoleExecutor && !strings.EqualFold(user.Name, name) {
		writeError(w, http.StatusForbidden, "insufficient permissions", "executors can only read their own totals")
		return
	}

	from, to, err := h.period(r)
	if err != nil {
		writeDomainError(w, r, "invalid period", err)
		return
	}

	var salaryPercent *decimal.Decimal
	if v := r.URL.Query().Get("salary_percent"); v != "" {
		pct, err := decimal.NewFromString(v)
		if err != nil || pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
			writeError(w, http.StatusBadRequest, "invalid salary_percent", v)
			return
		}
		salaryPercent = &pct
	}

	totals, err := h.reportUC.ComputeExecutorPeriodTotals(r.Context(), name, from, to)
	if err != nil {
		writeDomainError(w, r, "failed to compute totals", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ExecutorTotalsFromDomain(totals, from, to, salaryPercent))
}

func (h *ReportHandler) period(r *http.Request) (time.Time, time.Time, error) {
	from, err := parseTimeQuery(r, "from", false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseTimeQuery(r, "to", true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	now := h.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if from == nil {
		from = &monthStart
	}
	if to == nil {
		end := monthStart.AddDate(0, 1, 0).Add(-time.Nanosecond)
		to = &end
	}
	if from.After(*to) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s after %s", domain.ErrInvalidDateRange, from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return *from, *to, nil
}
