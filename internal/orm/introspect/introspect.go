// Package introspect reads the system catalog of a live database and turns it into a
// schema.Catalog.
package introspect

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/reflector/internal/orm/platform"
	"github.com/conduit-lang/reflector/internal/orm/schema"
)

// ErrUnsupportedBackend is returned for backends without a catalog reader
var ErrUnsupportedBackend = errors.New("no catalog reader for backend")

// Introspector reads tables, columns and keys from a database
type Introspector interface {
	// Catalog reads the given schemas. An empty list means the backend default.
	Catalog(ctx context.Context, schemas []string) (*schema.Catalog, error)
}

// Option configures an Introspector
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns the catalog reader matching the kind of db
func New(db platform.Database, opts ...Option) (Introspector, error) {
	switch db.Kind() {
	case platform.Postgres:
		return NewPostgres(db, opts...), nil
	case platform.Sqlite:
		return NewSqlite(db, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, db.Kind())
	}
}

// tableSet collects tables in read order while columns and keys are attached to them
type tableSet struct {
	order []*schema.Table
	index map[string]*schema.Table
}

func newTableSet() *tableSet {
	return &tableSet{index: make(map[string]*schema.Table)}
}

func (s *tableSet) add(t *schema.Table) {
	s.order = append(s.order, t)
	s.index[t.Schema+"."+t.Name] = t
}

func (s *tableSet) get(schemaName, name string) (*schema.Table, bool) {
	t, ok := s.index[schemaName+"."+name]
	return t, ok
}

func (s *tableSet) column(schemaName, table, column string) (*schema.Column, bool) {
	t, ok := s.get(schemaName, table)
	if !ok {
		return nil, false
	}
	return t.Column(column)
}

// catalog fills in sub tables and builds the catalog
func (s *tableSet) catalog() (*schema.Catalog, error) {
	for _, t := range s.order {
		if t.ParentTable == "" {
			continue
		}
		if parent, ok := s.get(t.Schema, t.ParentTable); ok {
			parent.SubTables = append(parent.SubTables, t.Name)
		}
	}

	tables := make([]schema.Table, 0, len(s.order))
	for _, t := range s.order {
		tables = append(tables, *t)
	}
	return schema.NewCatalog(tables)
}
