package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name      string
		table     Table
		complete  string
		structure string
		display   string
	}{
		{"single segment", Table{Schema: "public", Name: "users"}, "public.users", "Users", "Users"},
		{"two segments", Table{Schema: "bazaar", Name: "product_availability"}, "bazaar.product_availability", "ProductAvailability", "Product Availability"},
		{"doubled underscore", Table{Schema: "s", Name: "a__b"}, "s.a__b", "AB", "A B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.complete, tt.table.CompleteName())
			assert.Equal(t, tt.structure, tt.table.StructName())
			assert.Equal(t, tt.display, tt.table.DisplayName())
		})
	}
}

func TestCondensedNames(t *testing.T) {
	product := &Table{Schema: "bazaar", Name: "product"}
	users := &Table{Schema: "public", Name: "users"}

	t.Run("strips the shared segment", func(t *testing.T) {
		availability := &Table{Schema: "bazaar", Name: "product_availability"}
		assert.Equal(t, "Availability", availability.CondensedDisplayName(product))
		assert.Equal(t, "availability", availability.CondensedMemberName(product))
	})

	t.Run("normalizes plural names", func(t *testing.T) {
		info := &Table{Schema: "public", Name: "user_info"}
		assert.Equal(t, "info", info.CondensedMemberName(users))
		assert.Equal(t, "Info", info.CondensedDisplayName(users))
	})

	t.Run("shorter names are kept", func(t *testing.T) {
		tag := &Table{Schema: "bazaar", Name: "tag"}
		assert.Equal(t, "tag", tag.CondensedMemberName(product))
		assert.Equal(t, "Tag", tag.CondensedDisplayName(product))
	})

	t.Run("falls back when nothing remains", func(t *testing.T) {
		doubled := &Table{Schema: "bazaar", Name: "product_product"}
		assert.Equal(t, "product_product", doubled.CondensedMemberName(product))
		assert.Equal(t, "Product Product", doubled.CondensedDisplayName(product))
	})
}

func TestColumnNames(t *testing.T) {
	tests := []struct {
		name      string
		column    Column
		clean     string
		condensed string
		display   string
		corrected string
	}{
		{
			name:      "plain column",
			column:    Column{Name: "description"},
			clean:     "description",
			condensed: "description",
			display:   "description",
			corrected: "description",
		},
		{
			name:      "foreign column named after its table",
			column:    Column{Name: "product_id", Foreign: &Foreign{Schema: "bazaar", Table: "product", Column: "product_id"}},
			clean:     "product",
			condensed: "product",
			display:   "product",
			corrected: "product_id",
		},
		{
			name:      "qualified foreign column",
			column:    Column{Name: "parent_organization_id", Foreign: &Foreign{Schema: "system", Table: "organization", Column: "organization_id"}},
			clean:     "parent_organization",
			condensed: "parent",
			display:   "parent organization",
			corrected: "parent_organization_id",
		},
		{
			name:      "foreign column not ending with the table name",
			column:    Column{Name: "owner_id", Foreign: &Foreign{Schema: "public", Table: "users", Column: "id"}},
			clean:     "owner",
			condensed: "owner",
			display:   "owner",
			corrected: "owner_id",
		},
		{
			name:      "go keyword",
			column:    Column{Name: "type"},
			clean:     "type",
			condensed: "type",
			display:   "type",
			corrected: "type_",
		},
		{
			name:      "bare suffix",
			column:    Column{Name: "_id"},
			clean:     "_id",
			condensed: "_id",
			display:   " id",
			corrected: "_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.clean, tt.column.CleanName())
			assert.Equal(t, tt.condensed, tt.column.CondenseName())
			assert.Equal(t, tt.display, tt.column.DisplayName())
			assert.Equal(t, tt.corrected, tt.column.CorrectedName())
		})
	}
}

func TestCorrectedNameKeepsCatalogName(t *testing.T) {
	c := Column{Name: "range"}
	assert.Equal(t, "range_", c.CorrectedName())
	assert.Equal(t, "range", c.Name)
	assert.True(t, c.Equal(&Column{Name: "range"}))
}
