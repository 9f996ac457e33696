package introspect

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/reflector/internal/orm/platform"
	"github.com/conduit-lang/reflector/internal/orm/schema"
)

// SqliteSchema is the schema name given to every sqlite table
const SqliteSchema = "main"

const (
	sqliteTablesQuery = `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	sqliteColumnsQuery = `
		SELECT name, type, "notnull", dflt_value, pk
		FROM pragma_table_info(?)
		ORDER BY cid`

	sqliteUniqueQuery = `
		SELECT ii.name
		FROM pragma_index_list(?) il
		JOIN pragma_index_info(il.name) ii
		WHERE il."unique" = 1 AND il.origin IN ('u', 'c')
		GROUP BY il.name
		HAVING count(*) = 1`

	sqliteForeignKeysQuery = `
		SELECT "table", "from", "to"
		FROM pragma_foreign_key_list(?)
		ORDER BY id, seq`
)

// Sqlite reads sqlite_master and the table pragmas. Sqlite has no schemas or table
// inheritance; every table lands in SqliteSchema.
type Sqlite struct {
	db     platform.Database
	logger *zap.Logger
}

// NewSqlite creates a reader on top of a sqlite database
func NewSqlite(db platform.Database, opts ...Option) *Sqlite {
	o := buildOptions(opts)
	return &Sqlite{db: db, logger: o.logger}
}

// Catalog reads every table. The schema list is ignored.
func (s *Sqlite) Catalog(ctx context.Context, _ []string) (*schema.Catalog, error) {
	names, err := s.tableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("read tables: %w", err)
	}

	set := newTableSet()
	for _, name := range names {
		t := &schema.Table{Schema: SqliteSchema, Name: name}
		if err := s.readColumns(ctx, t); err != nil {
			return nil, fmt.Errorf("read columns of %s: %w", name, err)
		}
		if err := s.readUnique(ctx, t); err != nil {
			return nil, fmt.Errorf("read unique keys of %s: %w", name, err)
		}
		set.add(t)
	}

	// foreign keys without a target column point at the target's primary key, so every
	// table must be known first
	for _, t := range set.order {
		if err := s.readForeignKeys(ctx, t, set); err != nil {
			return nil, fmt.Errorf("read foreign keys of %s: %w", t.Name, err)
		}
	}

	s.logger.Info("catalog read", zap.Int("tables", len(set.order)))
	return set.catalog()
}

func (s *Sqlite) tableNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, sqliteTablesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Sqlite) readColumns(ctx context.Context, t *schema.Table) error {
	rows, err := s.db.Query(ctx, sqliteColumnsQuery, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			col     schema.Column
			notNull bool
			def     sql.NullString
			pk      int
		)
		if err := rows.Scan(&col.Name, &col.DBDataType, &notNull, &def, &pk); err != nil {
			return err
		}
		col.DataType = SqliteGenericType(col.DBDataType)
		col.NotNull = notNull || pk > 0
		col.IsPrimary = pk > 0
		if def.Valid {
			col.Default = &def.String
		}
		t.Columns = append(t.Columns, col)
	}
	return rows.Err()
}

func (s *Sqlite) readUnique(ctx context.Context, t *schema.Table) error {
	rows, err := s.db.Query(ctx, sqliteUniqueQuery, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		if col, ok := t.Column(name); ok {
			col.IsUnique = true
		}
	}
	return rows.Err()
}

func (s *Sqlite) readForeignKeys(ctx context.Context, t *schema.Table, set *tableSet) error {
	rows, err := s.db.Query(ctx, sqliteForeignKeysQuery, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			target, from string
			to           sql.NullString
		)
		if err := rows.Scan(&target, &from, &to); err != nil {
			return err
		}
		col, ok := t.Column(from)
		if !ok || col.Foreign != nil {
			continue
		}

		column := to.String
		if !to.Valid || column == "" {
			column = s.primaryColumn(set, target)
		}
		col.Foreign = &schema.Foreign{Schema: SqliteSchema, Table: target, Column: column}
	}
	return rows.Err()
}

func (s *Sqlite) primaryColumn(set *tableSet, table string) string {
	t, ok := set.get(SqliteSchema, table)
	if !ok {
		return ""
	}
	if pk := t.PrimaryColumns(); len(pk) > 0 {
		return pk[0].Name
	}
	return ""
}
