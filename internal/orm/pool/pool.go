// Package pool lends out backend connections keyed by database URL. Connections are reused
// after release and only destroyed when the pool is closed.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/conduit-lang/reflector/internal/orm/platform"
)

// Connector opens one backend handle for a URL
type Connector func(ctx context.Context, url string) (*platform.Platform, error)

// Stats is a snapshot of the bookkeeping for one URL
type Stats struct {
	URL      string
	Free     int
	Borrowed int
	Reserved int
}

// entry tracks the connections of one URL. free + borrowed == reserved at all times.
type entry struct {
	free     []*Conn
	borrowed map[uuid.UUID]*Conn
	reserved int
}

func (e *entry) stats(url string) Stats {
	return Stats{URL: url, Free: len(e.free), Borrowed: len(e.borrowed), Reserved: e.reserved}
}

// Pool is safe for concurrent use. Every mutation happens under one mutex; connecting to a
// backend happens outside of it.
type Pool struct {
	mu      sync.Mutex
	entries map[string]*entry
	closed  bool

	connect  Connector
	logger   *zap.Logger
	observer Observer
}

// Option configures a Pool
type Option func(*Pool)

// WithConnector replaces platform.Connect as the way new connections are opened
func WithConnector(c Connector) Option {
	return func(p *Pool) { p.connect = c }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

// WithObserver registers a callback for dispose events
func WithObserver(o Observer) Option {
	return func(p *Pool) { p.observer = o }
}

// New creates an empty pool
func New(opts ...Option) *Pool {
	p := &Pool{
		entries: make(map[string]*entry),
		connect: platform.Connect,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// freeCount returns the free connections of url without creating its bookkeeping. Must be
// called with mu held.
func (p *Pool) freeCount(url string) int {
	if e, ok := p.entries[url]; ok {
		return len(e.free)
	}
	return 0
}

// entry returns the bookkeeping of url, creating it. Only called once a connection to url
// exists, so failed connects leave no entry behind. Must be called with mu held.
func (p *Pool) entry(url string) *entry {
	e, ok := p.entries[url]
	if !ok {
		e = &entry{borrowed: make(map[uuid.UUID]*Conn)}
		p.entries[url] = e
	}
	return e
}

func (p *Pool) open(ctx context.Context, url string) (*Conn, error) {
	pl, err := p.connect(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBackendUnreachable, platform.Redact(url), err)
	}
	c := &Conn{ID: uuid.New(), URL: url, platform: pl, pool: p}
	p.logger.Debug("connection opened",
		zap.String("url", platform.Redact(url)),
		zap.String("conn_id", c.ID.String()),
	)
	return c, nil
}

// ReserveConnection makes sure at least n free connections exist for url. Missing connections
// are opened concurrently. Connections that were opened successfully stay in the pool even
// when another one fails; the first failure is returned.
func (p *Pool) ReserveConnection(ctx context.Context, url string, n int) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	shortfall := n - p.freeCount(url)
	p.mu.Unlock()

	if shortfall <= 0 {
		return nil
	}

	var g errgroup.Group
	for i := 0; i < shortfall; i++ {
		g.Go(func() error {
			c, err := p.open(ctx, url)
			if err != nil {
				return err
			}

			p.mu.Lock()
			if p.closed {
				p.mu.Unlock()
				_ = c.platform.Close()
				return ErrPoolClosed
			}
			e := p.entry(url)
			e.free = append(e.free, c)
			e.reserved++
			p.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	p.logger.Info("connections reserved",
		zap.String("url", platform.Redact(url)),
		zap.Int("opened", shortfall),
	)
	return nil
}

// GetDBWithURL lends out a free connection for url, or opens a new one when none is free. It
// never waits for another borrower to release.
func (p *Pool) GetDBWithURL(ctx context.Context, url string) (*Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if e, ok := p.entries[url]; ok && len(e.free) > 0 {
		n := len(e.free)
		c := e.free[n-1]
		e.free[n-1] = nil
		e.free = e.free[:n-1]
		e.borrowed[c.ID] = c
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	c, err := p.open(ctx, url)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		_ = c.platform.Close()
		return nil, ErrPoolClosed
	}
	e := p.entry(url)
	e.borrowed[c.ID] = c
	e.reserved++
	return c, nil
}

// Release returns a borrowed connection to the free set. Nothing changes when an error is
// returned.
func (p *Pool) Release(c *Conn) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	if c == nil || c.pool != p || c.destroyed {
		return ErrForeignHandle
	}
	e, ok := p.entries[c.URL]
	if !ok {
		return ErrForeignHandle
	}
	if _, ok := e.borrowed[c.ID]; !ok {
		if e.isFree(c) {
			return ErrDoubleRelease
		}
		return ErrForeignHandle
	}

	delete(e.borrowed, c.ID)
	e.free = append(e.free, c)
	p.logger.Debug("connection released",
		zap.String("url", platform.Redact(c.URL)),
		zap.String("conn_id", c.ID.String()),
	)
	return nil
}

func (e *entry) isFree(c *Conn) bool {
	for _, f := range e.free {
		if f == c {
			return true
		}
	}
	return false
}

// destroy removes a borrowed connection from the books and closes it
func (p *Pool) destroy(c *Conn) error {
	p.mu.Lock()
	if c.destroyed {
		p.mu.Unlock()
		return nil
	}
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	e, ok := p.entries[c.URL]
	if !ok {
		p.mu.Unlock()
		return ErrForeignHandle
	}
	if _, ok := e.borrowed[c.ID]; !ok {
		p.mu.Unlock()
		return ErrForeignHandle
	}
	delete(e.borrowed, c.ID)
	e.reserved--
	c.destroyed = true
	p.mu.Unlock()

	p.dispose(c, ClosedWhileBorrowed)
	return c.platform.Close()
}

func (p *Pool) dispose(c *Conn, reason DisposeReason) {
	p.logger.Warn("connection destroyed without release",
		zap.String("url", platform.Redact(c.URL)),
		zap.String("conn_id", c.ID.String()),
		zap.Stringer("reason", reason),
	)
	if p.observer != nil {
		p.observer(DisposeEvent{ConnID: c.ID, URL: c.URL, Reason: reason})
	}
}

// TotalFreeConnections returns the number of free connections across all URLs
func (p *Pool) TotalFreeConnections() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := 0
	for _, e := range p.entries {
		total += len(e.free)
	}
	return total
}

// Stats returns the bookkeeping of one URL
func (p *Pool) Stats(url string) Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[url]
	if !ok {
		return Stats{URL: url}
	}
	return e.stats(url)
}

// AllStats returns the bookkeeping of every URL, sorted by URL
func (p *Pool) AllStats() []Stats {
	p.mu.Lock()
	all := make([]Stats, 0, len(p.entries))
	for url, e := range p.entries {
		all = append(all, e.stats(url))
	}
	p.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].URL < all[j].URL })
	return all
}

// Close destroys every connection. Connections still borrowed are reported as dispose events.
// Later calls return nil.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true

	var free, borrowed []*Conn
	for _, e := range p.entries {
		for _, c := range e.free {
			c.destroyed = true
			free = append(free, c)
		}
		for _, c := range e.borrowed {
			c.destroyed = true
			borrowed = append(borrowed, c)
		}
	}
	p.entries = make(map[string]*entry)
	p.mu.Unlock()

	var errs []error
	for _, c := range free {
		if err := c.platform.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.ID, err))
		}
	}
	for _, c := range borrowed {
		p.dispose(c, BorrowedAtTeardown)
		if err := c.platform.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.ID, err))
		}
	}

	p.logger.Info("pool closed",
		zap.Int("free", len(free)),
		zap.Int("borrowed", len(borrowed)),
	)
	return errors.Join(errs...)
}
