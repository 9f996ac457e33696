package platform

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Database is the query capability shared by every implemented backend
type Database interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row
	Ping(ctx context.Context) error
	Kind() Kind
}

// Platform is one backend handle. Placeholder backends carry a kind but no database.
type Platform struct {
	kind Kind
	db   *sql.DB

	mu     sync.Mutex
	closed bool
}

// New wraps an open *sql.DB. A nil db yields a placeholder whose Database method fails with
// ErrNotImplemented.
func New(kind Kind, db *sql.DB) *Platform {
	return &Platform{kind: kind, db: db}
}

// Connect opens a handle for the backend named by rawURL. Every handle owns exactly one
// physical connection; pooling is done by the caller.
func Connect(ctx context.Context, rawURL string) (*Platform, error) {
	kind, err := ParseKind(rawURL)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	switch kind {
	case Postgres:
		db, err = openPostgres(rawURL)
	case Sqlite:
		db, err = openSqlite(rawURL)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotImplemented, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", Redact(rawURL), err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s: %w", Redact(rawURL), err)
	}
	return New(kind, db), nil
}

func openPostgres(rawURL string) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(rawURL)
	if err != nil {
		// the parse error echoes the url, password included
		return nil, fmt.Errorf("%w: invalid postgres url", ErrUnsupportedURL)
	}
	return stdlib.OpenDB(*cfg), nil
}

// openSqlite accepts sqlite://path, sqlite:path and sqlite::memory:
func openSqlite(rawURL string) (*sql.DB, error) {
	_, rest, _ := strings.Cut(rawURL, ":")
	path := strings.TrimPrefix(rest, "//")
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite url without a path", ErrUnsupportedURL)
	}
	return sql.Open("sqlite3", path)
}

// Kind returns the backend kind
func (p *Platform) Kind() Kind {
	return p.kind
}

// Database returns the query capability
func (p *Platform) Database() (Database, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if p.db == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotImplemented, p.kind)
	}
	return &sqlDatabase{db: p.db, kind: p.kind}, nil
}

// Close releases the underlying connection. Closing twice is a no-op.
func (p *Platform) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

// sqlDatabase adapts *sql.DB to Database
type sqlDatabase struct {
	db   *sql.DB
	kind Kind
}

func (d *sqlDatabase) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.db.ExecContext(ctx, query, args...)
}

func (d *sqlDatabase) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, query, args...)
}

func (d *sqlDatabase) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, query, args...)
}

func (d *sqlDatabase) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *sqlDatabase) Kind() Kind {
	return d.kind
}
