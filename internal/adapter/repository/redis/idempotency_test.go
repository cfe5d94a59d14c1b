package redis

import (
	"context"
	"testing"
	"time"
)

func TestIdempotencyStore_CheckAndSetExisting(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client, "")
	ctx := context.Background()

	if err := client.Set(ctx, store.prefix+"key", "cached", time.Minute).Err(); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	exists, resp, err := store.CheckAndSet(ctx, "key", nil, time.Minute)
	if err != nil {
		t.Fatalf("CheckAndSet failed: %v", err)
	}
	if !exists || string(resp) != "cached" {
		t.Fatalf("expected existing cached response, got exists=%v resp=%s", exists, resp)
	}
}

func TestIdempotencyStore_CheckAndSetClaimsNewKey(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client, "")
	ctx := context.Background()

	exists, resp, err := store.CheckAndSet(ctx, "pending", nil, time.Minute)
	if err != nil || exists || resp != nil {
		t.Fatalf("unexpected result: exists=%v resp=%v err=%v", exists, resp, err)
	}

	val, err := client.Get(ctx, store.prefix+"pending").Result()
	if err != nil || val != pendingMarker {
		t.Fatalf("expected pending marker, got val=%s err=%v", val, err)
	}

	// A second request with the same key sees the marker.
	exists, resp, err = store.CheckAndSet(ctx, "pending", nil, time.Minute)
	if err != nil || !exists || string(resp) != pendingMarker {
		t.Fatalf("expected marker on second claim, got exists=%v resp=%s err=%v", exists, resp, err)
	}
	if ttl := mr.TTL(store.prefix + "pending"); ttl <= 0 {
		t.Fatalf("expected ttl on claimed key, got %v", ttl)
	}
}

func TestIdempotencyStore_CheckAndSetWithResponse(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client, "")
	ctx := context.Background()

	exists, _, err := store.CheckAndSet(ctx, "k", []byte(`{"id":1}`), time.Minute)
	if err != nil || exists {
		t.Fatalf("unexpected result: exists=%v err=%v", exists, err)
	}

	got, err := mr.Get(store.prefix + "k")
	if err != nil || got != `{"id":1}` {
		t.Fatalf("expected stored response, got %q err=%v", got, err)
	}
}

func TestIdempotencyStore_Update(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client, "")
	ctx := context.Background()

	if _, _, err := store.CheckAndSet(ctx, "k", nil, time.Minute); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if err := store.Update(ctx, "k", []byte("final"), time.Minute); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	exists, resp, err := store.CheckAndSet(ctx, "k", nil, time.Minute)
	if err != nil || !exists || string(resp) != "final" {
		t.Fatalf("expected final response, got exists=%v resp=%s err=%v", exists, resp, err)
	}
}

func TestIdempotencyStore_Release(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client, "")
	ctx := context.Background()

	if _, _, err := store.CheckAndSet(ctx, "k", nil, time.Minute); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if err := store.Release(ctx, "k"); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	exists, _, err := store.CheckAndSet(ctx, "k", nil, time.Minute)
	if err != nil || exists {
		t.Fatalf("expected key to be claimable again, got exists=%v err=%v", exists, err)
	}
}

func TestIdempotencyStore_PrefixSeparatesRegisters(t *testing.T) {
	client, mr := newTestRedisClient(t)

	shop1 := NewIdempotencyStore(client, "shop1")
	shop2 := NewIdempotencyStore(client, "shop2")
	ctx := context.Background()

	if _, _, err := shop1.CheckAndSet(ctx, "POST /api/v1/reconcile:k1", nil, time.Minute); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if !mr.Exists("shop1:idempotency:POST /api/v1/reconcile:k1") {
		t.Fatal("expected key under the shop1 prefix")
	}

	exists, _, err := shop2.CheckAndSet(ctx, "POST /api/v1/reconcile:k1", nil, time.Minute)
	if err != nil || exists {
		t.Fatalf("expected shop2 to claim its own key, got exists=%v err=%v", exists, err)
	}
}
