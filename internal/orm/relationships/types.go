// Package relationships classifies how the tables of a catalog relate to each other and names
// the members a code generator should emit for those relationships.
package relationships

import (
	"fmt"

	"github.com/conduit-lang/reflector/internal/orm/schema"
)

// Kind is the category of a relationship as seen from the subject table
type Kind int

const (
	// HasOne means the subject holds a foreign key into the target
	HasOne Kind = iota
	// Extension means the target shares its whole primary key with the subject
	Extension
	// HasManyDirect means the target holds a foreign key into the subject
	HasManyDirect
	// HasManyIndirect means the target is reached through a link table
	HasManyIndirect
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case HasOne:
		return "has_one"
	case Extension:
		return "extension"
	case HasManyDirect:
		return "has_many"
	case HasManyIndirect:
		return "has_many_through"
	default:
		return "unknown"
	}
}

// RefTable is a table related to a subject table. It is built fresh by every classification
// and is not modified afterwards.
type RefTable struct {
	// Table is the table being referred to
	Table *schema.Table
	// Column is the originating column, set for direct relationships
	Column *schema.Column
	// LinkerTable is the association table, set for indirect has-many
	LinkerTable *schema.Table

	IsExt     bool
	IsHasOne  bool
	IsHasMany bool
	IsDirect  bool
}

// Kind derives the relationship category from the flags
func (r *RefTable) Kind() (Kind, error) {
	switch {
	case r.IsHasOne:
		return HasOne, nil
	case r.IsExt:
		return Extension, nil
	case r.IsHasMany && r.IsDirect:
		return HasManyDirect, nil
	case r.IsHasMany && !r.IsDirect:
		return HasManyIndirect, nil
	default:
		return 0, ErrInvalidRelationType
	}
}

// String describes the reference for diagnostics
func (r *RefTable) String() string {
	kind, err := r.Kind()
	if err != nil {
		return fmt.Sprintf("invalid(%s)", r.Table.CompleteName())
	}
	switch {
	case r.LinkerTable != nil:
		return fmt.Sprintf("%s %s via %s", kind, r.Table.CompleteName(), r.LinkerTable.CompleteName())
	case r.Column != nil:
		return fmt.Sprintf("%s %s (%s)", kind, r.Table.CompleteName(), r.Column.Name)
	default:
		return fmt.Sprintf("%s %s", kind, r.Table.CompleteName())
	}
}

// baseMemberName is the preferred member name before collision handling
func (r *RefTable) baseMemberName(subject *schema.Table) (string, error) {
	kind, err := r.Kind()
	if err != nil {
		return "", err
	}
	switch kind {
	case HasOne:
		if r.Column == nil {
			return "", fmt.Errorf("%w: has-one reference to %s without a column",
				ErrInvalidRelationType, r.Table.CompleteName())
		}
		return r.Column.CondenseName(), nil
	case Extension:
		return r.Table.CondensedMemberName(subject), nil
	default:
		return r.Table.Name, nil
	}
}

// collisionSuffix is appended to the base name when it is already taken. Direct and indirect
// has-many use different suffixes so they never alias each other.
func (r *RefTable) collisionSuffix() string {
	kind, _ := r.Kind()
	switch kind {
	case HasManyDirect:
		return "_1m"
	case HasManyIndirect:
		return "_mm"
	default:
		return "_1"
	}
}
