package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Options holds connection settings.
type Options struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DSN builds the go-sqlite3 connection string. Every transaction is started
// with BEGIN IMMEDIATE so the write lock is taken up front.
func DSN(path string, opts Options) string {
	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}

	params := url.Values{}
	params.Set("_busy_timeout", fmt.Sprintf("%d", busy.Milliseconds()))
	params.Set("_journal_mode", "WAL")
	params.Set("_foreign_keys", "on")
	params.Set("_txlock", "immediate")
	params.Set("_synchronous", "NORMAL")

	return "file:" + path + "?" + params.Encode()
}

// Open opens the database file, creating its directory when needed.
func Open(ctx context.Context, path string, opts Options) (*sql.DB, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", DSN(path, opts))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}
