package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionGrant_Validate(t *testing.T) {
	valid := &PermissionGrant{
		Databases: []string{"main", Wildcard},
		Tables:    []string{"orders"},
		Columns:   []string{"region", "orders.total_amount", "orders.*"},
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name  string
		grant *PermissionGrant
	}{
		{"empty entry", &PermissionGrant{Tables: []string{""}}},
		{"whitespace entry", &PermissionGrant{Tables: []string{"bad table"}}},
		{"dotted database", &PermissionGrant{Databases: []string{"a.b"}}},
		{"dotted table", &PermissionGrant{Tables: []string{"a.b"}}},
		{"double-dotted column", &PermissionGrant{Columns: []string{"a.b.c"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.grant.Validate()
			require.Error(t, err)
			var vErr *ValidationError
			assert.ErrorAs(t, err, &vErr)
		})
	}
}

func TestPermissionGrant_MergeIsAdditive(t *testing.T) {
	a := &PermissionGrant{Databases: []string{"main"}, Tables: []string{"orders"}}
	b := &PermissionGrant{Tables: []string{"orders", "customers"}, Columns: []string{"region"}}

	merged := a.Merge(b)
	assert.Equal(t, []string{"main"}, merged.Databases)
	assert.Equal(t, []string{"orders", "customers"}, merged.Tables)
	assert.Equal(t, []string{"region"}, merged.Columns)

	// Merging never removes what either side allowed.
	assert.True(t, merged.AllowsTable("orders"))
	assert.True(t, merged.AllowsTable("customers"))

	assert.Same(t, a, a.Merge(nil))
}

func TestPermissionGrant_Allows(t *testing.T) {
	g := &PermissionGrant{
		Databases: []string{"main"},
		Tables:    []string{"orders"},
		Columns:   []string{"region", "orders.total_amount"},
	}

	assert.True(t, g.AllowsDatabase("main"))
	assert.False(t, g.AllowsDatabase("other"))

	assert.True(t, g.AllowsTable("orders"))
	assert.False(t, g.AllowsTable("customers"))

	// Bare column entries match in any table; qualified entries only theirs.
	assert.True(t, g.AllowsColumn("orders", "region"))
	assert.True(t, g.AllowsColumn("customers", "region"))
	assert.True(t, g.AllowsColumn("orders", "total_amount"))
	assert.False(t, g.AllowsColumn("customers", "total_amount"))
}

func TestPermissionGrant_Wildcard(t *testing.T) {
	g := &PermissionGrant{
		Databases: []string{Wildcard},
		Tables:    []string{Wildcard},
		Columns:   []string{Wildcard},
	}
	assert.True(t, g.AllowsDatabase("anything"))
	assert.True(t, g.AllowsTable("anything"))
	assert.True(t, g.AllowsColumn("any", "thing"))

	// A "table.*" column entry covers the star resource of that table only.
	scoped := &PermissionGrant{Columns: []string{"orders.*"}}
	assert.True(t, scoped.AllowsColumn("orders", "*"))
	assert.False(t, scoped.AllowsColumn("customers", "*"))
}

func TestResourceSet_SortedAndEqual(t *testing.T) {
	r := NewResourceSet()
	r.Tables["orders"] = true
	r.Tables["customers"] = true
	r.AddColumn("orders", "region")
	r.AddColumn("customers", "email")

	assert.Equal(t, []string{"customers", "orders"}, r.SortedTables())
	assert.Equal(t, []string{"customers.email", "orders.region"}, r.SortedColumns())

	other := NewResourceSet()
	other.Tables["customers"] = true
	other.Tables["orders"] = true
	other.AddColumn("customers", "email")
	other.AddColumn("orders", "region")
	assert.True(t, r.Equal(other))

	other.AddColumn("orders", "id")
	assert.False(t, r.Equal(other))
	assert.False(t, r.Equal(nil))
}

func TestQueryIntent_EntityText(t *testing.T) {
	q := &QueryIntent{
		Category: IntentFilter,
		Entities: IntentEntities{
			Tables:     []string{"orders"},
			Columns:    []string{"region"},
			Conditions: []string{"last month"},
		},
	}
	assert.Equal(t, "orders region last month", q.EntityText())
	assert.Equal(t, "", (&QueryIntent{}).EntityText())
}
