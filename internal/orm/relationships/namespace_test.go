package relationships

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/reflector/internal/orm/schema"
)

func memberNames(t *testing.T, c *schema.Catalog, table string) []string {
	t.Helper()
	subject := lookup(t, c, table)
	refs, err := AllReferencedTables(subject, c)
	require.NoError(t, err)
	members, err := MemberNames(subject, refs)
	require.NoError(t, err)

	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.Name)
	}
	return out
}

func TestMemberNames(t *testing.T) {
	c := bazaarCatalog(t)

	tests := []struct {
		table string
		want  []string
	}{
		{"product", []string{"owner", "availability", "review", "photo", "category"}},
		{"photo", []string{"large", "product"}},
		{"photo_large", []string{"photo"}},
		{"review", []string{"product", "user"}},
		{"users", []string{"product", "review"}},
		{"category", []string{"product"}},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			assert.Equal(t, tt.want, memberNames(t, c, tt.table))
		})
	}
}

func TestMemberNamesCollisions(t *testing.T) {
	t.Run("has-one colliding with a column", func(t *testing.T) {
		c := schema.MustCatalog(
			schema.Table{Schema: "bazaar", Name: "employee", Columns: []schema.Column{
				{Name: "employee_id", IsPrimary: true},
				{Name: "account"},
			}},
			schema.Table{Schema: "bazaar", Name: "account", Columns: []schema.Column{
				{Name: "account_id", IsPrimary: true},
				{Name: "manager_id", Foreign: fk("employee", "employee_id")},
				{Name: "manager"},
			}},
		)

		assert.Equal(t, []string{"manager_1"}, memberNames(t, c, "account"))
		assert.Equal(t, []string{"account_1m"}, memberNames(t, c, "employee"))
	})

	t.Run("indirect has-many colliding with a column", func(t *testing.T) {
		c := schema.MustCatalog(
			schema.Table{Schema: "bazaar", Name: "product", Columns: []schema.Column{
				{Name: "product_id", IsPrimary: true},
				{Name: "tag"},
			}},
			schema.Table{Schema: "bazaar", Name: "tag", Columns: []schema.Column{
				{Name: "tag_id", IsPrimary: true},
			}},
			schema.Table{Schema: "bazaar", Name: "product_tag", Columns: []schema.Column{
				{Name: "product_id", IsPrimary: true, Foreign: fk("product", "product_id")},
				{Name: "tag_id", IsPrimary: true, Foreign: fk("tag", "tag_id")},
			}},
		)

		assert.Equal(t, []string{"tag_mm"}, memberNames(t, c, "product"))
	})

	t.Run("extension colliding with a column", func(t *testing.T) {
		c := schema.MustCatalog(
			schema.Table{Schema: "bazaar", Name: "product", Columns: []schema.Column{
				{Name: "product_id", IsPrimary: true},
				{Name: "availability"},
			}},
			schema.Table{Schema: "bazaar", Name: "product_availability", Columns: []schema.Column{
				{Name: "product_id", IsPrimary: true, Foreign: fk("product", "product_id")},
			}},
		)

		assert.Equal(t, []string{"availability_1"}, memberNames(t, c, "product"))
	})

	t.Run("two has-one on the same table", func(t *testing.T) {
		c := schema.MustCatalog(
			schema.Table{Schema: "bazaar", Name: "person", Columns: []schema.Column{
				{Name: "person_id", IsPrimary: true},
			}},
			schema.Table{Schema: "bazaar", Name: "message", Columns: []schema.Column{
				{Name: "message_id", IsPrimary: true},
				{Name: "person_id", Foreign: fk("person", "person_id")},
				{Name: "recipient_person_id", Foreign: fk("person", "person_id")},
			}},
		)

		assert.Equal(t, []string{"person", "recipient"}, memberNames(t, c, "message"))
	})

	t.Run("keyword names are never used as is", func(t *testing.T) {
		c := schema.MustCatalog(
			schema.Table{Schema: "bazaar", Name: "type", Columns: []schema.Column{
				{Name: "type_id", IsPrimary: true},
			}},
			schema.Table{Schema: "bazaar", Name: "item", Columns: []schema.Column{
				{Name: "item_id", IsPrimary: true},
				{Name: "type_id", Foreign: fk("type", "type_id")},
			}},
		)

		assert.Equal(t, []string{"type_1"}, memberNames(t, c, "item"))
	})

	t.Run("self reference", func(t *testing.T) {
		c := schema.MustCatalog(schema.Table{Schema: "bazaar", Name: "employee", Columns: []schema.Column{
			{Name: "employee_id", IsPrimary: true},
			{Name: "boss_id", Foreign: fk("employee", "employee_id")},
		}})

		assert.Equal(t, []string{"boss", "employee"}, memberNames(t, c, "employee"))
	})
}

func TestNamespace(t *testing.T) {
	subject := &schema.Table{Schema: "bazaar", Name: "product", Columns: []schema.Column{
		{Name: "product_id", IsPrimary: true},
		{Name: "range"},
	}}
	ns := NewNamespace(subject)

	t.Run("seeded with corrected column names", func(t *testing.T) {
		assert.True(t, ns.Taken("product_id"))
		assert.True(t, ns.Taken("range_"))
		assert.True(t, ns.Taken("range"), "keywords are always taken")
		assert.False(t, ns.Taken("name"))
	})

	t.Run("reserve", func(t *testing.T) {
		assert.True(t, ns.Reserve("name"))
		assert.False(t, ns.Reserve("name"))
	})

	t.Run("repeated collisions get a counter", func(t *testing.T) {
		assert.Equal(t, "x", ns.assign("x", "_1"))
		assert.Equal(t, "x_1", ns.assign("x", "_1"))
		assert.Equal(t, "x_1_2", ns.assign("x", "_1"))
		assert.Equal(t, "x_1_3", ns.assign("x", "_1"))
		assert.Equal(t, "x_1m", ns.assign("x", "_1m"))
	})

	t.Run("nil namespace", func(t *testing.T) {
		ref := &RefTable{Table: &schema.Table{Schema: "bazaar", Name: "product_id"}, IsHasMany: true, IsDirect: true}
		name, err := ref.MemberName(subject, nil)
		require.NoError(t, err)
		assert.Equal(t, "product_id_1m", name)
	})

	t.Run("has-one without a column", func(t *testing.T) {
		ref := &RefTable{Table: &schema.Table{Schema: "bazaar", Name: "users"}, IsHasOne: true}
		_, err := ref.MemberName(subject, nil)
		assert.ErrorIs(t, err, ErrInvalidRelationType)
	})
}
