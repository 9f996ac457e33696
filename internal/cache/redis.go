package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores values in Redis
type RedisCache struct {
	client *redis.Client
	config Config
}

// RedisConfig configures the Redis backend
type RedisConfig struct {
	// Addr is host:port of the Redis server
	Addr     string
	Password string
	DB       int
	Cache    Config
}

// NewRedisCache connects to Redis and checks the server answers
func NewRedisCache(ctx context.Context, config RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", config.Addr, err)
	}

	return NewRedisCacheWithClient(client, config.Cache), nil
}

// NewRedisCacheWithClient wraps an existing client
func NewRedisCacheWithClient(client *redis.Client, config Config) *RedisCache {
	return &RedisCache{client: client, config: config}
}

// Get returns the stored value
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.config.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, &MissError{Key: key}
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores value. Redis treats a zero expiration as no expiry, so negative ttls are mapped
// to zero.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ttl = r.config.ttl(ttl)
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, r.config.Prefix+key, value, ttl).Err()
}

// Delete removes key
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.config.Prefix+key).Err()
}

// clearBatch bounds the number of keys removed per DEL
const clearBatch = 100

// Clear removes every key carrying this cache's prefix. Keys are collected before any is
// deleted; deleting while SCAN runs can skip keys.
func (r *RedisCache) Clear(ctx context.Context) error {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.config.Prefix+"*", clearBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}

	for start := 0; start < len(keys); start += clearBatch {
		end := min(start+clearBatch, len(keys))
		if err := r.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the client
func (r *RedisCache) Close() error {
	return r.client.Close()
}
