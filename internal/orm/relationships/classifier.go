package relationships

import (
	"fmt"

	"github.com/conduit-lang/reflector/internal/orm/schema"
)

// reference is a table together with one of its columns
type reference struct {
	table  *schema.Table
	column *schema.Column
}

// linked is a table reached through a link table
type linked struct {
	table  *schema.Table
	linker *schema.Table
}

// classifier computes the relationships of one subject table against a catalog snapshot. It
// only reads the snapshot, so any number of classifiers can run on the same catalog at once.
type classifier struct {
	subject *schema.Table
	catalog *schema.Catalog
}

// AllReferencedTables returns every table related to subject, in this order: has-one,
// extension, has-many direct, has-many through a link table.
//
// A foreign key pointing at a table missing from the catalog fails the whole call with
// schema.ErrUnresolvableReference.
func AllReferencedTables(subject *schema.Table, catalog *schema.Catalog) ([]*RefTable, error) {
	c, err := newClassifier(subject, catalog)
	if err != nil {
		return nil, err
	}
	return c.classify()
}

// IsOwned reports whether the table only makes sense as part of another one: it refers to
// exactly one table and nothing refers to it. order_line owned by orders is the typical case.
func IsOwned(t *schema.Table, catalog *schema.Catalog) (bool, error) {
	c, err := newClassifier(t, catalog)
	if err != nil {
		return false, err
	}
	hasOne, err := c.referredTables()
	if err != nil {
		return false, err
	}
	return len(hasOne) == 1 && len(c.referringTables()) == 0, nil
}

func newClassifier(subject *schema.Table, catalog *schema.Catalog) (*classifier, error) {
	t, ok := catalog.Lookup(subject.Schema, subject.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSubject, subject.CompleteName())
	}
	return &classifier{subject: t, catalog: catalog}, nil
}

func (c *classifier) classify() ([]*RefTable, error) {
	refs := make([]*RefTable, 0)

	hasOne, err := c.referredTables()
	if err != nil {
		return nil, err
	}
	for _, ho := range hasOne {
		refs = append(refs, &RefTable{
			Table:    ho.table,
			Column:   ho.column,
			IsHasOne: true,
			IsDirect: true,
		})
	}

	referring := c.referringTables()

	extensions := c.extensionTables(referring)
	for _, ext := range extensions {
		refs = append(refs, &RefTable{
			Table:    ext,
			IsExt:    true,
			IsDirect: true,
		})
	}

	included := make([]*schema.Table, 0)
	for _, rt := range referring {
		if rt.table.IsLinkerTable() || contains(extensions, rt.table) || contains(included, rt.table) {
			continue
		}
		refs = append(refs, &RefTable{
			Table:     rt.table,
			Column:    rt.column,
			IsHasMany: true,
			IsDirect:  true,
		})
		included = append(included, rt.table)
	}

	indirect, err := c.indirectReferringTables(referring)
	if err != nil {
		return nil, err
	}
	for _, hi := range indirect {
		if hi.table.IsLinkerTable() || contains(extensions, hi.table) || contains(included, hi.table) {
			continue
		}
		refs = append(refs, &RefTable{
			Table:       hi.table,
			LinkerTable: hi.linker,
			IsHasMany:   true,
		})
		included = append(included, hi.table)
	}

	return refs, nil
}

// referredTables returns the tables the subject points at, one entry per foreign column in
// column order
func (c *classifier) referredTables() ([]reference, error) {
	return c.resolveForeign(c.subject, c.subject.Columns)
}

func (c *classifier) resolveForeign(t *schema.Table, columns []schema.Column) ([]reference, error) {
	referred := make([]reference, 0)
	for i := range columns {
		col := &columns[i]
		if col.Foreign == nil {
			continue
		}
		target, err := c.catalog.Resolve(col.Foreign)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.CompleteName(), col.Name, err)
		}
		referred = append(referred, reference{table: target, column: col})
	}
	return referred, nil
}

// referringTables returns every (table, column) pair of the catalog whose foreign key points at
// the subject, in catalog then column order
func (c *classifier) referringTables() []reference {
	referring := make([]reference, 0)
	for _, t := range c.catalog.Tables() {
		for i := range t.Columns {
			col := &t.Columns[i]
			if col.References(c.subject) {
				referring = append(referring, reference{table: t, column: col})
			}
		}
	}
	return referring
}

// extensionTables returns the referring tables whose whole primary key is also a foreign key
// into the primary key of the subject. photo_large keyed by photo_id is an extension of photo.
func (c *classifier) extensionTables(referring []reference) []*schema.Table {
	extensions := make([]*schema.Table, 0)
	for _, rt := range referring {
		if rt.table.Equal(c.subject) || contains(extensions, rt.table) {
			continue
		}
		if c.isExtension(rt.table) {
			extensions = append(extensions, rt.table)
		}
	}
	return extensions
}

func (c *classifier) isExtension(t *schema.Table) bool {
	pkfk := t.PrimaryAndForeignColumns()
	if len(pkfk) == 0 || len(pkfk) != len(t.PrimaryColumns()) {
		return false
	}
	for _, col := range pkfk {
		if !c.refersToPrimaryOf(col, c.subject) {
			return false
		}
	}
	return true
}

// indirectReferringTables follows every link table pointing at the subject to the table on
// the other side. Both foreign keys of the link table must point at primary columns.
func (c *classifier) indirectReferringTables(referring []reference) ([]linked, error) {
	result := make([]linked, 0)
	visited := make([]*schema.Table, 0)

	for _, rt := range referring {
		linker := rt.table
		if contains(visited, linker) {
			continue
		}
		visited = append(visited, linker)
		if !linker.IsLinkerTable() {
			continue
		}

		fk := linker.ForeignColumns()
		t0, err := c.catalog.Resolve(fk[0].Foreign)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", linker.CompleteName(), fk[0].Name, err)
		}
		t1, err := c.catalog.Resolve(fk[1].Foreign)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", linker.CompleteName(), fk[1].Name, err)
		}

		var other *schema.Table
		switch {
		case t0.Equal(c.subject):
			other = t1
		case t1.Equal(c.subject):
			other = t0
		default:
			continue
		}

		if c.refersToPrimaryOf(fk[0], t0) && c.refersToPrimaryOf(fk[1], t1) {
			result = append(result, linked{table: other, linker: linker})
		}
	}

	return result, nil
}

// refersToPrimaryOf reports whether col is a foreign key into a primary column of t
func (c *classifier) refersToPrimaryOf(col *schema.Column, t *schema.Table) bool {
	return col.References(t) && t.IsPrimary(col.Foreign.Column)
}

func contains(tables []*schema.Table, t *schema.Table) bool {
	for _, candidate := range tables {
		if candidate.Equal(t) {
			return true
		}
	}
	return false
}
