package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Cache implements usecase.Cache on a keyspace of its own, so several
// registers can share one Redis database.
type Cache struct {
	client    *redis.Client
	namespace string
}

// NewCache creates a Cache storing keys under "<prefix>:cache:".
func NewCache(client *redis.Client, prefix string) *Cache {
	if prefix == "" {
		prefix = "cashledger"
	}
	return &Cache{
		client:    client,
		namespace: prefix + ":cache:",
	}
}

func (c *Cache) key(name string) string {
	return c.namespace + name
}

// Get returns the stored bytes or ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return val, err
}

// Set stores value for ttl.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

// Delete drops the key. Deleting an absent key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}
