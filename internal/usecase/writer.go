package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/infrastructure/metrics"
)

// DefaultReadTimeout bounds read-only queries. Writes are not bounded: once a
// ledger transaction starts it runs to completion.
const DefaultReadTimeout = 10 * time.Second

// ledgerWriter runs ledger mutations in one writer transaction. It is
// embedded by every use case that appends or edits entries.
type ledgerWriter struct {
	txManager TransactionManager
	retrier   Retrier
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func newLedgerWriter(txManager TransactionManager, m *metrics.Metrics) ledgerWriter {
	return ledgerWriter{
		txManager: txManager,
		metrics:   m,
		logger:    zerolog.Nop(),
	}
}

// inTx runs fn inside a transaction and commits it. The context is detached
// from the caller's cancellation: once started, a write runs to completion.
// Transient conflicts are retried when a retrier is configured.
func (w *ledgerWriter) inTx(ctx context.Context, operation string, fn func(ctx context.Context, tx Transaction) error) error {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	attempts := 0

	op := func() error {
		attempts++
		tx, err := w.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := fn(ctx, tx); err != nil {
			return err
		}

		return tx.Commit(ctx)
	}

	var err error
	if w.retrier != nil {
		err = w.retrier.Retry(ctx, op)
	} else {
		err = op()
	}

	if w.metrics != nil {
		w.metrics.WriteDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		if attempts > 1 {
			w.metrics.WriteRetries.Add(float64(attempts - 1))
		}
		if err != nil {
			w.metrics.WriteErrors.WithLabelValues(operation).Inc()
		}
	}

	if err != nil {
		w.logger.Debug().Err(err).Str("operation", operation).Int("attempts", attempts).Msg("ledger write failed")
	}

	return err
}

// observeCommitted records metrics for entries appended by a committed write.
func (w *ledgerWriter) observeCommitted(entries []*domain.LedgerEntry) {
	if len(entries) == 0 {
		return
	}

	if w.metrics != nil {
		for _, e := range entries {
			w.metrics.EntriesAppended.WithLabelValues(string(e.Category)).Inc()
		}
		tail := entries[len(entries)-1]
		w.metrics.SetBalances(tail.CashAfter, tail.CardAfter)
	}

	for _, e := range entries {
		w.logger.Info().
			Int64("entry_id", e.ID).
			Str("category", string(e.Category)).
			Str("method", string(e.PaymentMethod)).
			Str("amount", e.Amount.String()).
			Str("cash_after", e.CashAfter.String()).
			Str("card_after", e.CardAfter.String()).
			Msg("ledger entry appended")
	}
}

// skipped records an operation ignored because the cash register is disabled.
func (w *ledgerWriter) skipped(operation string) {
	w.logger.Debug().Str("operation", operation).Msg("cash register disabled, skipping")
	if w.metrics != nil {
		w.metrics.SkippedOperations.WithLabelValues(operation).Inc()
	}
}

