package commands

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/reflector/internal/cache"
	"github.com/conduit-lang/reflector/internal/orm/introspect"
	"github.com/conduit-lang/reflector/internal/orm/platform"
	"github.com/conduit-lang/reflector/internal/orm/pool"
	"github.com/conduit-lang/reflector/internal/orm/schema"
)

var errNoSource = errors.New("no catalog source: pass --file or --url, or set database.url")

// databaseURL returns the url flag, falling back to the configured database
func (a *app) databaseURL(flag string) string {
	if flag != "" {
		return flag
	}
	return a.cfg.Database.URL
}

// openCache returns the snapshot cache. An unreachable Redis falls back to memory.
func (a *app) openCache(ctx context.Context) cache.Cache {
	cfg := cache.DefaultConfig()
	cfg.DefaultTTL = a.cfg.Cache.TTL

	if a.cfg.Cache.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: a.cfg.Cache.RedisAddr, Cache: cfg})
		if err == nil {
			return rc
		}
		a.logger.Warn("snapshot cache unavailable, using memory", zap.Error(err))
	}
	return cache.NewMemoryCacheWithConfig(cfg)
}

// newPool builds a pool that reports disposals through the logger
func (a *app) newPool(opts ...pool.Option) *pool.Pool {
	return pool.New(append([]pool.Option{pool.WithLogger(a.logger)}, opts...)...)
}

// readCatalog borrows a connection to url and introspects the configured schemas
func (a *app) readCatalog(ctx context.Context, p *pool.Pool, url string) (*schema.Catalog, error) {
	conn, err := p.GetDBWithURL(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := p.Release(conn); err != nil {
			a.logger.Warn("release connection", zap.Error(err))
		}
	}()

	db, err := conn.Database()
	if err != nil {
		return nil, err
	}
	reader, err := introspect.New(db, introspect.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}

	c, err := reader.Catalog(ctx, a.cfg.Database.Schemas)
	if err != nil {
		return nil, fmt.Errorf("introspect %s: %w", platform.Redact(url), err)
	}
	a.logger.Info("catalog introspected",
		zap.String("url", platform.Redact(url)),
		zap.Int("tables", c.Len()),
	)
	return c, nil
}

// loadCatalog reads the catalog from a snapshot file when one is given, otherwise from the
// database through the snapshot cache
func (a *app) loadCatalog(ctx context.Context, file, urlFlag string, refresh bool) (*schema.Catalog, error) {
	if file != "" {
		c, err := schema.LoadFile(file)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("catalog loaded", zap.String("file", file), zap.Int("tables", c.Len()))
		return c, nil
	}

	url := a.databaseURL(urlFlag)
	if url == "" {
		return nil, errNoSource
	}

	store := a.openCache(ctx)
	defer store.Close()
	snapshots := introspect.NewSnapshotStore(store, a.cfg.Cache.TTL, a.logger)
	key := introspect.SnapshotKey(url, a.cfg.Database.Schemas)
	if refresh {
		if err := snapshots.Invalidate(ctx, key); err != nil {
			a.logger.Warn("invalidate cached catalog", zap.String("key", key), zap.Error(err))
		}
	}

	p := a.newPool()
	defer p.Close()

	return snapshots.Fetch(ctx, key, func(ctx context.Context) (*schema.Catalog, error) {
		return a.readCatalog(ctx, p, url)
	})
}
