package relationships

import (
	"fmt"

	"github.com/conduit-lang/reflector/internal/orm/schema"
)

// Namespace tracks the member names already taken in one generated structure. It starts with
// the subject's own column names so relationship members never shadow a column.
//
// A Namespace is not safe for concurrent use; each subject gets its own.
type Namespace struct {
	used map[string]bool
}

// NewNamespace creates a namespace seeded with the columns of the subject table
func NewNamespace(subject *schema.Table) *Namespace {
	ns := &Namespace{used: make(map[string]bool)}
	if subject != nil {
		for i := range subject.Columns {
			ns.used[subject.Columns[i].CorrectedName()] = true
		}
	}
	return ns
}

// Taken reports whether the name is already used or cannot be used as an identifier
func (n *Namespace) Taken(name string) bool {
	return n.used[name] || schema.IsReserved(name)
}

// Reserve marks a name as used. It returns false if the name was already taken.
func (n *Namespace) Reserve(name string) bool {
	if n.Taken(name) {
		return false
	}
	n.used[name] = true
	return true
}

// assign reserves base if free, otherwise base+suffix, then base+suffix_2, base+suffix_3...
func (n *Namespace) assign(base, suffix string) string {
	if n.Reserve(base) {
		return base
	}
	candidate := base + suffix
	for i := 2; !n.Reserve(candidate); i++ {
		candidate = fmt.Sprintf("%s%s_%d", base, suffix, i)
	}
	return candidate
}

// MemberName returns the name of the member representing this reference inside the
// generated structure of subject, and reserves it in ns:
//   - has-one: the condensed name of the originating column
//   - extension: the condensed member name of the extension table
//   - has-many: the name of the other table
//
// On collision the kind specific suffix is appended. A nil ns is treated as a fresh
// namespace for subject.
func (r *RefTable) MemberName(subject *schema.Table, ns *Namespace) (string, error) {
	if ns == nil {
		ns = NewNamespace(subject)
	}
	base, err := r.baseMemberName(subject)
	if err != nil {
		return "", err
	}
	return ns.assign(base, r.collisionSuffix()), nil
}

// Member is a named relationship of a subject table
type Member struct {
	Name string
	Ref  *RefTable
}

// MemberNames names every reference of subject in order, tracking collisions between them
func MemberNames(subject *schema.Table, refs []*RefTable) ([]Member, error) {
	ns := NewNamespace(subject)
	members := make([]Member, 0, len(refs))
	for _, ref := range refs {
		name, err := ref.MemberName(subject, ns)
		if err != nil {
			return nil, err
		}
		members = append(members, Member{Name: name, Ref: ref})
	}
	return members, nil
}
