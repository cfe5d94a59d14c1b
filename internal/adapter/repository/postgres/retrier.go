package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/cashledger/internal/infrastructure/retry"
)

// transientCodes are SQLSTATEs after which a ledger write can run again
// from a fresh transaction. Writers serialize on an advisory lock, so these
// mostly show up as lock timeouts or failovers rather than deadlocks.
var transientCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
	"57P01": {}, // admin_shutdown
}

// NewRetrier creates a retrier for transient PostgreSQL failures.
func NewRetrier() *retry.Retrier {
	return retry.New(IsRetryableError)
}

// IsRetryableError reports whether err is a transient PostgreSQL failure or
// a connection error raised before anything reached the server.
func IsRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		_, ok := transientCodes[pgErr.Code]
		return ok
	}
	return pgconn.SafeToRetry(err)
}
