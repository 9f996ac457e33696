package introspect

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/conduit-lang/reflector/internal/orm/platform"
	"github.com/conduit-lang/reflector/internal/orm/schema"
)

const (
	postgresTablesQuery = `
		SELECT n.nspname, c.relname, COALESCE(pn.nspname, ''), COALESCE(p.relname, ''),
			COALESCE(obj_description(c.oid, 'pg_class'), '')
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		LEFT JOIN pg_catalog.pg_inherits i ON i.inhrelid = c.oid AND i.inhseqno = 1
		LEFT JOIN pg_catalog.pg_class p ON p.oid = i.inhparent
		LEFT JOIN pg_catalog.pg_namespace pn ON pn.oid = p.relnamespace
		WHERE c.relkind IN ('r', 'p') AND n.nspname = ANY($1)
		ORDER BY n.nspname, c.relname`

	postgresColumnsQuery = `
		SELECT n.nspname, c.relname, a.attname, t.typname, a.attnotnull,
			(a.attinhcount > 0 AND NOT a.attislocal), pg_get_expr(d.adbin, d.adrelid),
			COALESCE(col_description(c.oid, a.attnum), '')
		FROM pg_catalog.pg_attribute a
		JOIN pg_catalog.pg_class c ON c.oid = a.attrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_catalog.pg_type t ON t.oid = a.atttypid
		LEFT JOIN pg_catalog.pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
		WHERE a.attnum > 0 AND NOT a.attisdropped
			AND c.relkind IN ('r', 'p') AND n.nspname = ANY($1)
		ORDER BY n.nspname, c.relname, a.attnum`

	postgresKeysQuery = `
		SELECT n.nspname, c.relname, a.attname, con.contype, cardinality(con.conkey)
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class c ON c.oid = con.conrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_catalog.pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = ANY(con.conkey)
		WHERE con.contype IN ('p', 'u') AND n.nspname = ANY($1)
		ORDER BY n.nspname, c.relname, con.conname`

	postgresForeignKeysQuery = `
		SELECT n.nspname, c.relname, a.attname, fn.nspname, fc.relname, fa.attname
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class c ON c.oid = con.conrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_catalog.pg_class fc ON fc.oid = con.confrelid
		JOIN pg_catalog.pg_namespace fn ON fn.oid = fc.relnamespace
		CROSS JOIN LATERAL unnest(con.conkey, con.confkey) AS k(attnum, fattnum)
		JOIN pg_catalog.pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
		JOIN pg_catalog.pg_attribute fa ON fa.attrelid = con.confrelid AND fa.attnum = k.fattnum
		WHERE con.contype = 'f' AND n.nspname = ANY($1)
		ORDER BY n.nspname, c.relname, con.conname`
)

// Postgres reads pg_catalog
type Postgres struct {
	db     platform.Database
	logger *zap.Logger
}

// NewPostgres creates a reader on top of a Postgres database
func NewPostgres(db platform.Database, opts ...Option) *Postgres {
	o := buildOptions(opts)
	return &Postgres{db: db, logger: o.logger}
}

// Catalog reads the given schemas, "public" when none is given
func (p *Postgres) Catalog(ctx context.Context, schemas []string) (*schema.Catalog, error) {
	if len(schemas) == 0 {
		schemas = []string{"public"}
	}
	filter := pq.Array(schemas)

	set := newTableSet()
	if err := p.readTables(ctx, filter, set); err != nil {
		return nil, fmt.Errorf("read tables: %w", err)
	}
	if err := p.readColumns(ctx, filter, set); err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	if err := p.readKeys(ctx, filter, set); err != nil {
		return nil, fmt.Errorf("read keys: %w", err)
	}
	if err := p.readForeignKeys(ctx, filter, set); err != nil {
		return nil, fmt.Errorf("read foreign keys: %w", err)
	}

	p.logger.Info("catalog read",
		zap.Strings("schemas", schemas),
		zap.Int("tables", len(set.order)),
	)
	return set.catalog()
}

func (p *Postgres) readTables(ctx context.Context, filter any, set *tableSet) error {
	rows, err := p.db.Query(ctx, postgresTablesQuery, filter)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var t schema.Table
		var parentSchema string
		if err := rows.Scan(&t.Schema, &t.Name, &parentSchema, &t.ParentTable, &t.Comment); err != nil {
			return err
		}
		if t.ParentTable != "" && parentSchema != t.Schema {
			p.logger.Warn("ignoring parent table in another schema",
				zap.String("table", t.CompleteName()),
				zap.String("parent", parentSchema+"."+t.ParentTable),
			)
			t.ParentTable = ""
		}
		set.add(&t)
	}
	return rows.Err()
}

func (p *Postgres) readColumns(ctx context.Context, filter any, set *tableSet) error {
	rows, err := p.db.Query(ctx, postgresColumnsQuery, filter)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			schemaName, tableName string
			col                   schema.Column
			def                   sql.NullString
		)
		if err := rows.Scan(&schemaName, &tableName, &col.Name, &col.DBDataType, &col.NotNull,
			&col.IsInherited, &def, &col.Comment); err != nil {
			return err
		}
		t, ok := set.get(schemaName, tableName)
		if !ok {
			continue
		}
		col.DataType = PostgresGenericType(col.DBDataType)
		if def.Valid {
			col.Default = &def.String
		}
		if t.ParentTable == "" {
			col.IsInherited = false
		}
		t.Columns = append(t.Columns, col)
	}
	return rows.Err()
}

func (p *Postgres) readKeys(ctx context.Context, filter any, set *tableSet) error {
	rows, err := p.db.Query(ctx, postgresKeysQuery, filter)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			schemaName, tableName, columnName, contype string
			width                                      int
		)
		if err := rows.Scan(&schemaName, &tableName, &columnName, &contype, &width); err != nil {
			return err
		}
		col, ok := set.column(schemaName, tableName, columnName)
		if !ok {
			continue
		}
		switch contype {
		case "p":
			col.IsPrimary = true
		case "u":
			// only single column constraints make the column itself unique
			if width == 1 {
				col.IsUnique = true
			}
		}
	}
	return rows.Err()
}

func (p *Postgres) readForeignKeys(ctx context.Context, filter any, set *tableSet) error {
	rows, err := p.db.Query(ctx, postgresForeignKeysQuery, filter)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			schemaName, tableName, columnName string
			target                            schema.Foreign
		)
		if err := rows.Scan(&schemaName, &tableName, &columnName,
			&target.Schema, &target.Table, &target.Column); err != nil {
			return err
		}
		col, ok := set.column(schemaName, tableName, columnName)
		if !ok || col.Foreign != nil {
			continue
		}
		col.Foreign = &target
	}
	return rows.Err()
}
