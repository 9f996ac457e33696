package schema

import (
	"errors"
	"fmt"
	"strings"
)

type tableKey struct {
	schema string
	name   string
}

// Catalog is an immutable snapshot of tables indexed by schema and name. It is safe for
// concurrent readers.
type Catalog struct {
	tables []*Table
	index  map[tableKey]*Table
}

// NewCatalog builds a catalog from the given tables. The tables are copied, so later changes
// to the input do not leak into the snapshot. Duplicate tables, unknown parent tables and
// inheritance cycles are rejected.
func NewCatalog(tables []Table) (*Catalog, error) {
	c := &Catalog{
		tables: make([]*Table, 0, len(tables)),
		index:  make(map[tableKey]*Table, len(tables)),
	}

	for i := range tables {
		t := copyTable(tables[i])
		key := tableKey{t.Schema, t.Name}
		if _, exists := c.index[key]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTable, t.CompleteName())
		}
		c.index[key] = t
		c.tables = append(c.tables, t)
	}

	for _, t := range c.tables {
		if t.ParentTable == "" {
			continue
		}
		if _, ok := c.Lookup(t.Schema, t.ParentTable); !ok {
			return nil, fmt.Errorf("%w: %s inherits from %s.%s",
				ErrUnknownParent, t.CompleteName(), t.Schema, t.ParentTable)
		}
	}

	if cycles := c.detectCycles(); len(cycles) > 0 {
		return nil, fmt.Errorf("%w:\n%s", ErrInheritanceCycle, formatCycles(cycles))
	}

	return c, nil
}

// MustCatalog is like NewCatalog but panics on error. Intended for fixtures.
func MustCatalog(tables ...Table) *Catalog {
	c, err := NewCatalog(tables)
	if err != nil {
		panic(err)
	}
	return c
}

// Tables returns the tables in the order they were supplied
func (c *Catalog) Tables() []*Table {
	result := make([]*Table, len(c.tables))
	copy(result, c.tables)
	return result
}

// Len returns the number of tables
func (c *Catalog) Len() int {
	return len(c.tables)
}

// Lookup finds a table by schema and name
func (c *Catalog) Lookup(schema, name string) (*Table, bool) {
	t, ok := c.index[tableKey{schema, name}]
	return t, ok
}

// Get is like Lookup but returns ErrTableNotFound when the table is absent
func (c *Catalog) Get(schema, name string) (*Table, error) {
	t, ok := c.Lookup(schema, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrTableNotFound, schema, name)
	}
	return t, nil
}

// Resolve returns the table a foreign reference points at
func (c *Catalog) Resolve(f *Foreign) (*Table, error) {
	t, ok := c.Lookup(f.Schema, f.Table)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvableReference, f)
	}
	return t, nil
}

// Parent returns the table t inherits from
func (c *Catalog) Parent(t *Table) (*Table, bool) {
	if t.ParentTable == "" {
		return nil, false
	}
	return c.Lookup(t.Schema, t.ParentTable)
}

// Ancestors returns the parent chain of t, nearest first
func (c *Catalog) Ancestors(t *Table) []*Table {
	ancestors := make([]*Table, 0)
	for p, ok := c.Parent(t); ok; p, ok = c.Parent(p) {
		ancestors = append(ancestors, p)
	}
	return ancestors
}

// Validate checks the references inside the snapshot: every foreign key must resolve to an
// existing table and column, and every inherited column must exist unmodified on an ancestor.
// All problems are reported together.
func (c *Catalog) Validate() error {
	var errs []error

	for _, t := range c.tables {
		for i := range t.Columns {
			col := &t.Columns[i]

			if col.Foreign != nil {
				target, err := c.Resolve(col.Foreign)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s.%s: %w", t.CompleteName(), col.Name, err))
				} else if !target.HasColumnName(col.Foreign.Column) {
					errs = append(errs, fmt.Errorf("%s.%s: %w: column %s",
						t.CompleteName(), col.Name, ErrUnresolvableReference, col.Foreign))
				}
			}

			if col.IsInherited && !c.inheritedFromAncestor(t, col) {
				errs = append(errs, fmt.Errorf("%w: %s.%s", ErrInheritedColumn, t.CompleteName(), col.Name))
			}
		}
	}

	return errors.Join(errs...)
}

func (c *Catalog) inheritedFromAncestor(t *Table, col *Column) bool {
	for _, a := range c.Ancestors(t) {
		if ac, ok := a.Column(col.Name); ok && ac.DataType == col.DataType && ac.DBDataType == col.DBDataType {
			return true
		}
	}
	return false
}

// detectCycles walks the parent chain from every table and reports each loop once
func (c *Catalog) detectCycles() [][]string {
	var cycles [][]string
	done := make(map[*Table]bool)

	for _, start := range c.tables {
		if done[start] {
			continue
		}
		onPath := make(map[*Table]int)
		path := make([]string, 0)

		for node, ok := start, true; ok; node, ok = c.Parent(node) {
			if done[node] {
				break
			}
			if idx, seen := onPath[node]; seen {
				cycle := make([]string, len(path)-idx)
				copy(cycle, path[idx:])
				cycles = append(cycles, cycle)
				break
			}
			onPath[node] = len(path)
			path = append(path, node.CompleteName())
		}

		for node := range onPath {
			done[node] = true
		}
	}

	return cycles
}

// formatCycles formats cycle information for error messages
func formatCycles(cycles [][]string) string {
	var b strings.Builder
	for i, cycle := range cycles {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("  Cycle %d: %s -> %s",
			i+1,
			strings.Join(cycle, " -> "),
			cycle[0]))
	}
	return b.String()
}

func copyTable(t Table) *Table {
	cp := t
	cp.SubTables = append([]string(nil), t.SubTables...)
	cp.Columns = make([]Column, len(t.Columns))
	for i, col := range t.Columns {
		if col.Foreign != nil {
			f := *col.Foreign
			col.Foreign = &f
		}
		if col.Default != nil {
			d := *col.Default
			col.Default = &d
		}
		cp.Columns[i] = col
	}
	return &cp
}
