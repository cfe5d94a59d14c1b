package sqlite

import (
	"errors"

	"github.com/mattn/go-sqlite3"

	"github.com/iho/cashledger/internal/infrastructure/retry"
)

// NewRetrier creates a retrier for SQLite lock contention.
func NewRetrier() *retry.Retrier {
	return retry.New(IsRetryableError)
}

// IsRetryableError reports whether the database was busy or locked.
func IsRetryableError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
