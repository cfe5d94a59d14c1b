package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	clientName  = "cashledger"
	pingTimeout = 3 * time.Second
)

// Options override what the connection URL carries.
type Options struct {
	URL      string
	PoolSize int
}

// NewClient opens a client for o.URL and fails unless the server answers a
// ping.
func NewClient(ctx context.Context, o Options) (*redis.Client, error) {
	opts, err := redis.ParseURL(o.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if o.PoolSize > 0 {
		opts.PoolSize = o.PoolSize
	}
	opts.ClientName = clientName

	client := redis.NewClient(opts)
	if err := Ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

// Ping backs the readiness probe.
func Ping(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis at %s: %w", client.Options().Addr, err)
	}
	return nil
}
