// Package retry replays ledger writes that lost a race for the database.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Classifier reports whether err is transient for a given store.
type Classifier func(err error) bool

// Retrier implements usecase.Retrier on top of exponential backoff. Errors
// the classifier rejects end the loop at once.
type Retrier struct {
	classify   Classifier
	maxRetries uint64
	first      time.Duration
	ceiling    time.Duration
	budget     time.Duration
	logger     zerolog.Logger
}

func New(classify Classifier) *Retrier {
	return &Retrier{
		classify:   classify,
		maxRetries: 3,
		first:      50 * time.Millisecond,
		ceiling:    time.Second,
		budget:     10 * time.Second,
		logger:     zerolog.Nop(),
	}
}

func (r *Retrier) WithLogger(logger zerolog.Logger) *Retrier {
	r.logger = logger
	return r
}

// WithMaxRetries sets how many times an operation is replayed after its
// first attempt.
func (r *Retrier) WithMaxRetries(n int) *Retrier {
	r.maxRetries = uint64(max(n, 0))
	return r
}

// WithIntervals sets the first delay, the delay ceiling and the total time
// budget.
func (r *Retrier) WithIntervals(first, ceiling, budget time.Duration) *Retrier {
	r.first, r.ceiling, r.budget = first, ceiling, budget
	return r
}

// Retry runs operation until it succeeds, fails permanently, runs out of
// retries or ctx ends.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	policy := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(r.first),
		backoff.WithMaxInterval(r.ceiling),
		backoff.WithMaxElapsedTime(r.budget),
	)

	attempt := func() error {
		err := operation()
		if err != nil && (r.classify == nil || !r.classify(err)) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn().Err(err).Dur("wait", wait).Msg("transient database error, retrying")
	}

	return backoff.RetryNotify(attempt,
		backoff.WithContext(backoff.WithMaxRetries(policy, r.maxRetries), ctx), notify)
}
