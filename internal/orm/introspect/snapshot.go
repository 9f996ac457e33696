package introspect

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/reflector/internal/cache"
	"github.com/conduit-lang/reflector/internal/orm/platform"
	"github.com/conduit-lang/reflector/internal/orm/schema"
)

// SnapshotStore keeps encoded catalogs in a cache so repeated runs skip introspection
type SnapshotStore struct {
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewSnapshotStore creates a store. A zero ttl uses the cache default.
func NewSnapshotStore(c cache.Cache, ttl time.Duration, logger *zap.Logger) *SnapshotStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotStore{cache: c, ttl: ttl, logger: logger}
}

// SnapshotKey identifies the catalog of a database and schema list. The password is not
// part of the key.
func SnapshotKey(url string, schemas []string) string {
	sorted := append([]string(nil), schemas...)
	sort.Strings(sorted)
	return "catalog:" + platform.Redact(url) + ":" + strings.Join(sorted, ",")
}

// Load returns the cached catalog. The boolean is false on a miss.
func (s *SnapshotStore) Load(ctx context.Context, key string) (*schema.Catalog, bool, error) {
	data, err := s.cache.Get(ctx, key)
	if cache.IsMiss(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	c, err := schema.Decode(bytes.NewReader(data), schema.FormatJSON)
	if err != nil {
		return nil, false, fmt.Errorf("decode cached catalog %s: %w", key, err)
	}
	return c, true, nil
}

// Save stores the catalog
func (s *SnapshotStore) Save(ctx context.Context, key string, c *schema.Catalog) error {
	var buf bytes.Buffer
	if err := schema.Encode(&buf, c, schema.FormatJSON); err != nil {
		return err
	}
	return s.cache.Set(ctx, key, buf.Bytes(), s.ttl)
}

// Invalidate drops the cached catalog
func (s *SnapshotStore) Invalidate(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, key)
}

// Purge drops every cached catalog
func (s *SnapshotStore) Purge(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		return fmt.Errorf("purge cached catalogs: %w", err)
	}
	s.logger.Info("cached catalogs purged")
	return nil
}

// Fetch returns the cached catalog or reads it with load and caches the result. A cached
// entry that no longer decodes is replaced. Failing to write the cache is logged, not
// returned.
func (s *SnapshotStore) Fetch(ctx context.Context, key string, load func(context.Context) (*schema.Catalog, error)) (*schema.Catalog, error) {
	c, ok, err := s.Load(ctx, key)
	switch {
	case err != nil:
		s.logger.Warn("discarding cached catalog", zap.String("key", key), zap.Error(err))
	case ok:
		s.logger.Debug("catalog cache hit", zap.String("key", key))
		return c, nil
	}

	c, err = load(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, key, c); err != nil {
		s.logger.Warn("caching catalog failed", zap.String("key", key), zap.Error(err))
	}
	return c, nil
}
