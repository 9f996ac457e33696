package schema

import (
	"strings"

	"github.com/go-openapi/inflect"
)

// StructName joins the underscore separated segments in PascalCase,
// e.g. product_availability -> ProductAvailability
func (t *Table) StructName() string {
	return joinSegments(strings.Split(t.Name, "_"), "", true)
}

// DisplayName returns product_availability -> "Product Availability"
func (t *Table) DisplayName() string {
	return joinSegments(strings.Split(t.Name, "_"), " ", true)
}

// CondensedDisplayName returns a shorter display name when used in the context of another
// table, e.g. product_availability seen from product -> "Availability"
func (t *Table) CondensedDisplayName(other *Table) string {
	segments, ok := t.condensedSegments(other)
	if !ok {
		return t.DisplayName()
	}
	return joinSegments(segments, " ", true)
}

// CondensedMemberName returns a shorter member name when used in the context of another
// table, e.g. user_info seen from users -> info
func (t *Table) CondensedMemberName(other *Table) string {
	segments, ok := t.condensedSegments(other)
	if !ok {
		return t.Name
	}
	return joinSegments(segments, "_", false)
}

// SingularName returns the table name with plural inflection removed, users -> user
func (t *Table) SingularName() string {
	return Singular(t.Name)
}

// condensedSegments drops the segments of this name that repeat the other table's name. It
// reports false when this name is not longer than the other or when nothing would remain.
func (t *Table) condensedSegments(other *Table) ([]string, bool) {
	if len(t.Name) <= len(other.Name) {
		return nil, false
	}
	plural := other.Name
	singular := Singular(other.Name)

	kept := make([]string, 0)
	for _, segment := range strings.Split(t.Name, "_") {
		if segment == plural || segment == singular {
			continue
		}
		kept = append(kept, segment)
	}
	if len(kept) == 0 {
		return nil, false
	}
	return kept, true
}

// Singular removes plural inflection from a name
func Singular(name string) string {
	if name == "" {
		return name
	}
	return inflect.Singularize(name)
}

func joinSegments(segments []string, sep string, capitalize bool) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s == "" {
			continue
		}
		if capitalize {
			s = inflect.Capitalize(s)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, sep)
}
