package schema

import (
	"fmt"
	"sort"
)

// Table is a catalog entity aggregating columns
type Table struct {
	// Schema is the namespace this table belongs to
	Schema string `yaml:"schema" json:"schema"`
	Name   string `yaml:"name" json:"name"`

	// ParentTable is the table this one inherits from, empty when there is none.
	// The parent lives in the same schema as the child.
	ParentTable string `yaml:"parent_table,omitempty" json:"parent_table,omitempty"`

	// SubTables are the tables inheriting from this one
	SubTables []string `yaml:"sub_tables,omitempty" json:"sub_tables,omitempty"`

	Comment string   `yaml:"comment,omitempty" json:"comment,omitempty"`
	Columns []Column `yaml:"columns" json:"columns"`
}

// Equal reports whether both tables have the same schema and name
func (t *Table) Equal(other *Table) bool {
	return other != nil && t.Schema == other.Schema && t.Name == other.Name
}

// String returns the table name
func (t *Table) String() string {
	return t.Name
}

// CompleteName returns schema.table
func (t *Table) CompleteName() string {
	return fmt.Sprintf("%s.%s", t.Schema, t.Name)
}

// HasColumnName returns true if the table has a column with exactly this name
func (t *Table) HasColumnName(name string) bool {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return true
		}
	}
	return false
}

// Column returns the first column with the given name
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// PrimaryColumns returns the primary key columns sorted by name
func (t *Table) PrimaryColumns() []*Column {
	return t.selectColumns(func(c *Column) bool { return c.IsPrimary })
}

// UniqueColumns returns the columns carrying a unique constraint sorted by name
func (t *Table) UniqueColumns() []*Column {
	return t.selectColumns(func(c *Column) bool { return c.IsUnique })
}

// ForeignColumns returns the columns referencing another table sorted by name
func (t *Table) ForeignColumns() []*Column {
	return t.selectColumns(func(c *Column) bool { return c.Foreign != nil })
}

// InheritedColumns returns the columns inherited from the parent table
func (t *Table) InheritedColumns() []*Column {
	return t.selectColumns(func(c *Column) bool { return c.IsInherited })
}

// UninheritedColumns returns the columns declared on this table itself
func (t *Table) UninheritedColumns() []*Column {
	return t.selectColumns(func(c *Column) bool { return !c.IsInherited })
}

// PrimaryAndForeignColumns returns the columns that are part of the primary key and also
// reference another table
func (t *Table) PrimaryAndForeignColumns() []*Column {
	both := make([]*Column, 0)
	for _, c := range t.ForeignColumns() {
		if t.IsPrimary(c.Name) {
			both = append(both, c)
		}
	}
	return both
}

// IsPrimary checks whether the named column is part of the primary key.
//
// Use this instead of Column.IsPrimary: introspection can report the same column twice, once
// for the primary key and once for the foreign key, so the flag on a single entry is not
// authoritative.
func (t *Table) IsPrimary(name string) bool {
	for _, p := range t.PrimaryColumns() {
		if p.Name == name {
			return true
		}
	}
	return false
}

// IsLinkerTable reports whether the table only records a many-to-many association: two
// primary columns, two foreign columns, two own columns, and the two foreign columns point at
// two different tables.
//
// This is a shape heuristic. A table can match it without being meant as an association.
func (t *Table) IsLinkerTable() bool {
	pk := t.PrimaryColumns()
	fk := t.ForeignColumns()
	uc := t.UninheritedColumns()
	if len(pk) != 2 || len(fk) != 2 || len(uc) != 2 {
		return false
	}
	a, b := fk[0].Foreign, fk[1].Foreign
	return a.Schema != b.Schema || a.Table != b.Table
}

// selectColumns returns the matching columns deduplicated by name and sorted by name
func (t *Table) selectColumns(match func(*Column) bool) []*Column {
	seen := make(map[string]bool)
	columns := make([]*Column, 0)
	for i := range t.Columns {
		c := &t.Columns[i]
		if !match(c) || seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		columns = append(columns, c)
	}
	sort.Slice(columns, func(i, j int) bool {
		return columns[i].Name < columns[j].Name
	})
	return columns
}
