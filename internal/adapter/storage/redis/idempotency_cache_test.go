package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return s, client
}

func TestIdempotencyCache_SetAndGet(t *testing.T) {
	s, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	key := "owner-123:transfer:key-1"
	value := []byte(`{"reference":"TRX-ABCDEFGHIJ"}`)

	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result)

	require.NoError(t, cache.Set(ctx, key, value, 24*time.Hour))

	result, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, value, result)
	assert.True(t, s.Exists("nfcw:idempotency:"+key))
}

func TestIdempotencyCache_TTLExpiry(t *testing.T) {
	s, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	key := "owner-456:transfer:key-2"
	require.NoError(t, cache.Set(ctx, key, []byte(`{"data":"test"}`), 1*time.Second))

	s.FastForward(2 * time.Second)

	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result, "expired key should return nil")
}

func TestIdempotencyCache_FirstResultWins(t *testing.T) {
	_, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	key := "owner-789:transfer:key-3"
	require.NoError(t, cache.Set(ctx, key, []byte(`{"reference":"TRX-FIRST"}`), time.Hour))
	require.NoError(t, cache.Set(ctx, key, []byte(`{"reference":"TRX-SECOND"}`), time.Hour))

	result, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"reference":"TRX-FIRST"}`, string(result))
}

func TestIdempotencyCache_SetError(t *testing.T) {
	s, client := newTestClient(t)
	cache := NewIdempotencyCache(client)

	s.SetError("READONLY")

	err := cache.Set(context.Background(), "k", []byte("{}"), time.Minute)
	assert.ErrorContains(t, err, "redis idempotency set")
}

func TestIdempotencyCache_GetError(t *testing.T) {
	s, client := newTestClient(t)
	cache := NewIdempotencyCache(client)

	s.SetError("LOADING")

	_, err := cache.Get(context.Background(), "k")
	assert.ErrorContains(t, err, "redis idempotency get")
}
