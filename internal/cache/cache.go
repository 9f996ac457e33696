// Package cache stores opaque byte values under string keys with an expiry. The relationship
// tooling uses it to keep encoded catalog snapshots between runs.
package cache

import (
	"context"
	"errors"
	"time"
)

// Cache is implemented by every cache backend
type Cache interface {
	// Get returns the value stored under key or a *MissError
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A zero ttl means the backend default, a negative ttl means
	// no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every key written through this cache
	Clear(ctx context.Context) error

	// Close releases the resources held by the backend
	Close() error
}

// Config is shared by all backends
type Config struct {
	// DefaultTTL applies when Set is called with a zero ttl
	DefaultTTL time.Duration
	// Prefix namespaces every key
	Prefix string
}

// DefaultConfig returns the configuration used when none is given
func DefaultConfig() Config {
	return Config{
		DefaultTTL: 24 * time.Hour,
		Prefix:     "reflector:",
	}
}

func (c Config) ttl(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return c.DefaultTTL
	}
	return ttl
}

// MissError is returned when a key is absent or expired
type MissError struct {
	Key string
}

func (e *MissError) Error() string {
	return "cache miss: " + e.Key
}

// IsMiss reports whether err, or any error it wraps, is a cache miss
func IsMiss(err error) bool {
	var miss *MissError
	return errors.As(err, &miss)
}
