package redis

import (
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	t.Run("database from URL", func(t *testing.T) {
		client, err := NewClient(ctx, Options{URL: fmt.Sprintf("redis://%s/3", mr.Addr())})
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })

		assert.Equal(t, 3, client.Options().DB)
		assert.Equal(t, clientName, client.Options().ClientName)
		assert.NoError(t, Ping(ctx, client))
	})

	t.Run("pool size override", func(t *testing.T) {
		client, err := NewClient(ctx, Options{URL: "redis://" + mr.Addr(), PoolSize: 4})
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })

		assert.Equal(t, 4, client.Options().PoolSize)
	})
}

func TestNewClientErrors(t *testing.T) {
	_, err := NewClient(context.Background(), Options{URL: "://bad-url"})
	assert.ErrorContains(t, err, "parse redis URL")

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err = NewClient(context.Background(), Options{URL: "redis://" + addr})
	assert.ErrorContains(t, err, "ping redis at "+addr)
}
