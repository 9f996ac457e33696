// Package schema models a database catalog snapshot: tables, their columns and the foreign
// references between them. Everything here is a pure query over in-memory data; nothing in this
// package talks to a database.
package schema

import (
	"fmt"
	"go/token"
	"strings"
)

// Foreign is the target of a foreign key column
type Foreign struct {
	Schema string `yaml:"schema" json:"schema"`
	Table  string `yaml:"table" json:"table"`
	Column string `yaml:"column" json:"column"`
}

// String returns schema.table.column
func (f *Foreign) String() string {
	return fmt.Sprintf("%s.%s.%s", f.Schema, f.Table, f.Column)
}

// Column describes one catalog column
type Column struct {
	Name string `yaml:"name" json:"name"`
	// DataType is the generic type, e.g. int32, float64, string
	DataType string `yaml:"data_type" json:"data_type"`
	// DBDataType is the native backend type, e.g. int4, numeric, character varying
	DBDataType  string   `yaml:"db_data_type" json:"db_data_type"`
	IsPrimary   bool     `yaml:"is_primary,omitempty" json:"is_primary,omitempty"`
	IsUnique    bool     `yaml:"is_unique,omitempty" json:"is_unique,omitempty"`
	NotNull     bool     `yaml:"not_null,omitempty" json:"not_null,omitempty"`
	IsInherited bool     `yaml:"is_inherited,omitempty" json:"is_inherited,omitempty"`
	Default     *string  `yaml:"default,omitempty" json:"default,omitempty"`
	Comment     string   `yaml:"comment,omitempty" json:"comment,omitempty"`
	Foreign     *Foreign `yaml:"foreign,omitempty" json:"foreign,omitempty"`
}

// Equal reports whether two columns have the same name. It is only meaningful for columns of
// the same table.
func (c *Column) Equal(other *Column) bool {
	return c.Name == other.Name
}

// String returns the column name
func (c *Column) String() string {
	return c.Name
}

// IsForeign returns true if the column references another table
func (c *Column) IsForeign() bool {
	return c.Foreign != nil
}

// References returns true if the column points at the given table
func (c *Column) References(t *Table) bool {
	return c.Foreign != nil && c.Foreign.Schema == t.Schema && c.Foreign.Table == t.Name
}

// CorrectedName returns a name safe to use as a Go identifier. Names colliding with a Go
// keyword get a trailing underscore; Name itself is left as it is in the catalog.
func (c *Column) CorrectedName() string {
	if IsReserved(c.Name) {
		return c.Name + "_"
	}
	return c.Name
}

// DisplayName returns a presentable name, e.g. owner_id -> "owner"
func (c *Column) DisplayName() string {
	return strings.ReplaceAll(c.CleanName(), "_", " ")
}

// CleanName strips a trailing _id from the name
func (c *Column) CleanName() string {
	if clean := strings.TrimSuffix(c.Name, "_id"); clean != "" {
		return clean
	}
	return c.Name
}

// CondenseName shortens the clean name using the table it points to, so that
// parent_organization_id referencing organization becomes parent.
func (c *Column) CondenseName() string {
	clean := c.CleanName()
	if c.Foreign == nil || len(clean) <= len(c.Foreign.Table) {
		return clean
	}
	condensed := strings.TrimRight(strings.TrimSuffix(clean, c.Foreign.Table), "_")
	if condensed == "" {
		return clean
	}
	return condensed
}

// IsReserved reports whether name collides with a Go keyword
func IsReserved(name string) bool {
	return token.IsKeyword(name)
}
