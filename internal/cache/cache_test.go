package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisCache(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisClient(client, "test:"), mr
}

func TestRedisClientGetSet(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)

	_, err := c.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "abc", "body", time.Hour))
	got, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "body", got)
	assert.True(t, mr.Exists("test:text:abc"))

	mr.FastForward(2 * time.Hour)
	_, err = c.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisClientClear(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)
	require.NoError(t, mr.Set("other:key", "keep"))

	require.NoError(t, c.Set(ctx, "a", "1", 0))
	require.NoError(t, c.Set(ctx, "b", "2", 0))
	require.NoError(t, c.Clear(ctx))

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)
	assert.True(t, mr.Exists("other:key"))
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", "v", time.Minute))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	now = now.Add(time.Minute)
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}
