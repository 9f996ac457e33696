package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCacheWithClient(client, Config{DefaultTTL: time.Hour, Prefix: "test:"})
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestNewRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(context.Background(), RedisConfig{Addr: mr.Addr(), Cache: DefaultConfig()})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0))
	assert.True(t, mr.Exists("reflector:k"))
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCache(context.Background(), RedisConfig{Addr: addr, Cache: DefaultConfig()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), addr)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		c, mr := setupTestRedis(t)
		require.NoError(t, c.Set(ctx, "catalog", []byte("tables: []"), time.Minute))

		value, err := c.Get(ctx, "catalog")
		require.NoError(t, err)
		assert.Equal(t, []byte("tables: []"), value)
		assert.True(t, mr.Exists("test:catalog"))
	})

	t.Run("miss", func(t *testing.T) {
		c, _ := setupTestRedis(t)
		_, err := c.Get(ctx, "missing")
		assert.True(t, IsMiss(err))
	})

	t.Run("ttl", func(t *testing.T) {
		c, mr := setupTestRedis(t)
		require.NoError(t, c.Set(ctx, "explicit", []byte("v"), time.Minute))
		require.NoError(t, c.Set(ctx, "default", []byte("v"), 0))
		require.NoError(t, c.Set(ctx, "forever", []byte("v"), -1))

		assert.Equal(t, time.Minute, mr.TTL("test:explicit"))
		assert.Equal(t, time.Hour, mr.TTL("test:default"))
		assert.Equal(t, time.Duration(0), mr.TTL("test:forever"))

		mr.FastForward(2 * time.Minute)
		_, err := c.Get(ctx, "explicit")
		assert.True(t, IsMiss(err))
		_, err = c.Get(ctx, "default")
		assert.NoError(t, err)
	})

	t.Run("delete", func(t *testing.T) {
		c, _ := setupTestRedis(t)
		require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
		require.NoError(t, c.Delete(ctx, "k"))
		require.NoError(t, c.Delete(ctx, "k"))

		_, err := c.Get(ctx, "k")
		assert.True(t, IsMiss(err))
	})

	t.Run("clear only touches own prefix", func(t *testing.T) {
		c, mr := setupTestRedis(t)
		for i := 0; i < 250; i++ {
			require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), 0))
		}
		require.NoError(t, mr.Set("other:k", "v"))

		require.NoError(t, c.Clear(ctx))
		assert.Len(t, mr.Keys(), 1)
		assert.True(t, mr.Exists("other:k"))
	})

	t.Run("clear on an empty cache", func(t *testing.T) {
		c, mr := setupTestRedis(t)
		require.NoError(t, c.Clear(ctx))
		assert.Empty(t, mr.Keys())
	})

	t.Run("server error", func(t *testing.T) {
		c, mr := setupTestRedis(t)
		mr.SetError("READONLY")
		defer mr.SetError("")

		_, err := c.Get(ctx, "k")
		require.Error(t, err)
		assert.False(t, IsMiss(err))
	})
}
