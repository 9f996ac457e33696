package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// MemoryCache keeps values in process memory. Expired entries are dropped lazily on access
// and by a background sweep.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	config  Config
	now     func() time.Time
	stop    context.CancelFunc
}

// NewMemoryCache creates an in-memory cache with the default configuration
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithConfig(DefaultConfig())
}

// NewMemoryCacheWithConfig creates an in-memory cache. Close stops the background sweep.
func NewMemoryCacheWithConfig(config Config) *MemoryCache {
	ctx, cancel := context.WithCancel(context.Background())
	m := &MemoryCache{
		entries: make(map[string]memoryEntry),
		config:  config,
		now:     time.Now,
		stop:    cancel,
	}
	go m.sweep(ctx, time.Minute)
	return m
}

// Get returns a copy of the stored value
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full := m.config.Prefix + key
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[full]
	if !ok {
		return nil, &MissError{Key: key}
	}
	if entry.expired(m.now()) {
		delete(m.entries, full)
		return nil, &MissError{Key: key}
	}
	return append([]byte(nil), entry.value...), nil
}

// Set stores a copy of value
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl = m.config.ttl(ttl); ttl > 0 {
		entry.expires = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[m.config.Prefix+key] = entry
	m.mu.Unlock()
	return nil
}

// Delete removes key
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.entries, m.config.Prefix+key)
	m.mu.Unlock()
	return nil
}

// Clear removes every key carrying this cache's prefix
func (m *MemoryCache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, m.config.Prefix) {
			delete(m.entries, k)
		}
	}
	return nil
}

// Len returns the number of stored entries, expired ones included
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close stops the background sweep
func (m *MemoryCache) Close() error {
	if m.stop != nil {
		m.stop()
	}
	return nil
}

func (m *MemoryCache) sweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.removeExpired()
		}
	}
}

func (m *MemoryCache) removeExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
		}
	}
}
