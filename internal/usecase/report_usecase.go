package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/iho/cashledger/internal/domain"
)

// ReportUseCase computes executor salary figures from the ledger.
type ReportUseCase struct {
	entryRepo EntryRepository
}

// NewReportUseCase creates a new ReportUseCase.
func NewReportUseCase(entryRepo EntryRepository) *ReportUseCase {
	return &ReportUseCase{
		entryRepo: entryRepo,
	}
}

// ComputeExecutorPeriodTotals sums labor, parts profit and bank commission of
// the executor's entries executed within [from, to].
func (uc *ReportUseCase) ComputeExecutorPeriodTotals(ctx context.Context, executorName string, from, to time.Time) (domain.ExecutorPeriodTotals, error) {
	executorName = strings.TrimSpace(executorName)
	totals := domain.ExecutorPeriodTotals{ExecutorName: executorName}

	if from.After(to) {
		return totals, domain.ErrInvalidDateRange
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultReadTimeout)
	defer cancel()

	entries, err := uc.entryRepo.ListByExecutor(ctx, executorName, from, to)
	if err != nil {
		return totals, err
	}

	for _, e := range entries {
		totals.Add(e)
	}

	return totals, nil
}
