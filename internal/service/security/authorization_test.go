package security

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"genbi/internal/domain"
)

func resourcesFor(tables []string, columns [][2]string, databases ...string) *domain.ResourceSet {
	rs := domain.NewResourceSet()
	for _, db := range databases {
		rs.Databases[db] = true
	}
	for _, t := range tables {
		rs.Tables[t] = true
	}
	for _, c := range columns {
		rs.AddColumn(c[0], c[1])
	}
	return rs
}

func TestAuthorize_AllowsCoveredQuery(t *testing.T) {
	rs := resourcesFor([]string{"orders"}, [][2]string{{"orders", "region"}, {"orders", "total_amount"}})
	grant := &domain.PermissionGrant{
		Databases: []string{"sales_db"},
		Tables:    []string{"orders"},
		Columns:   []string{"region", "orders.total_amount"},
	}

	d := Authorize(rs, grant, "sales_db")
	assert.True(t, d.Allowed)
	assert.Empty(t, d.DeniedResource)
	assert.Empty(t, d.ReasonCode)
}

func TestAuthorize_DeniesActiveDatabaseFirst(t *testing.T) {
	rs := resourcesFor([]string{"orders"}, [][2]string{{"orders", "region"}})
	grant := &domain.PermissionGrant{
		Tables:  []string{"orders"},
		Columns: []string{domain.Wildcard},
	}

	d := Authorize(rs, grant, "sales_db")
	assert.False(t, d.Allowed)
	assert.Equal(t, domain.ReasonDatabaseDenied, d.ReasonCode)
	assert.Equal(t, "sales_db", d.DeniedResource)
}

func TestAuthorize_DeniesQualifiedDatabase(t *testing.T) {
	rs := resourcesFor([]string{"orders"}, nil, "other_db")
	grant := &domain.PermissionGrant{
		Databases: []string{"sales_db"},
		Tables:    []string{domain.Wildcard},
	}

	d := Authorize(rs, grant, "sales_db")
	assert.False(t, d.Allowed)
	assert.Equal(t, domain.ReasonDatabaseDenied, d.ReasonCode)
	assert.Equal(t, "other_db", d.DeniedResource)
}

func TestAuthorize_DatabasePrecedesTable(t *testing.T) {
	// Neither the database nor the table is granted; the database must be
	// the one named.
	rs := resourcesFor([]string{"orders"}, [][2]string{{"orders", "region"}})

	d := Authorize(rs, &domain.PermissionGrant{}, "sales_db")
	assert.Equal(t, domain.ReasonDatabaseDenied, d.ReasonCode)
	assert.Equal(t, "sales_db", d.DeniedResource)
}

func TestAuthorize_TablePrecedesColumn(t *testing.T) {
	rs := resourcesFor([]string{"orders", "salaries"}, [][2]string{{"salaries", "amount"}})
	grant := &domain.PermissionGrant{
		Databases: []string{domain.Wildcard},
		Tables:    []string{"orders"},
	}

	d := Authorize(rs, grant, "sales_db")
	assert.Equal(t, domain.ReasonTableDenied, d.ReasonCode)
	assert.Equal(t, "salaries", d.DeniedResource)
}

func TestAuthorize_DeniesColumn(t *testing.T) {
	rs := resourcesFor([]string{"orders"}, [][2]string{{"orders", "region"}, {"orders", "total_amount"}})
	grant := &domain.PermissionGrant{
		Databases: []string{domain.Wildcard},
		Tables:    []string{"orders"},
		Columns:   []string{"region"},
	}

	d := Authorize(rs, grant, "sales_db")
	assert.Equal(t, domain.ReasonColumnDenied, d.ReasonCode)
	assert.Equal(t, "orders.total_amount", d.DeniedResource)
	assert.NotContains(t, d.Message, "region", "message names only the denied resource")
}

func TestAuthorize_WildcardSelectNeedsColumnWildcard(t *testing.T) {
	rs := resourcesFor([]string{"orders"}, [][2]string{{"orders", domain.Wildcard}})

	narrow := &domain.PermissionGrant{
		Databases: []string{domain.Wildcard},
		Tables:    []string{"orders"},
		Columns:   []string{"region", "total_amount"},
	}
	d := Authorize(rs, narrow, "sales_db")
	assert.Equal(t, domain.ReasonColumnDenied, d.ReasonCode)

	tableWide := &domain.PermissionGrant{
		Databases: []string{domain.Wildcard},
		Tables:    []string{"orders"},
		Columns:   []string{"orders.*"},
	}
	assert.True(t, Authorize(rs, tableWide, "sales_db").Allowed)

	global := &domain.PermissionGrant{
		Databases: []string{domain.Wildcard},
		Tables:    []string{"orders"},
		Columns:   []string{domain.Wildcard},
	}
	assert.True(t, Authorize(rs, global, "sales_db").Allowed)
}

func TestAuthorize_AmbiguousColumnNeedsEveryAttribution(t *testing.T) {
	// amt was attributed to both tables; authorization requires both.
	rs := resourcesFor([]string{"a", "b"}, [][2]string{{"a", "amt"}, {"b", "amt"}})
	grant := &domain.PermissionGrant{
		Databases: []string{domain.Wildcard},
		Tables:    []string{"a", "b"},
		Columns:   []string{"a.amt"},
	}

	d := Authorize(rs, grant, "sales_db")
	assert.False(t, d.Allowed)
	assert.Equal(t, "b.amt", d.DeniedResource)

	grant.Columns = append(grant.Columns, "b.amt")
	assert.True(t, Authorize(rs, grant, "sales_db").Allowed)
}

func TestAuthorize_DeterministicDenial(t *testing.T) {
	rs := resourcesFor([]string{"orders"}, [][2]string{{"orders", "a"}, {"orders", "b"}, {"orders", "c"}})
	grant := &domain.PermissionGrant{
		Databases: []string{domain.Wildcard},
		Tables:    []string{"orders"},
	}

	for i := 0; i < 10; i++ {
		d := Authorize(rs, grant, "sales_db")
		assert.Equal(t, "orders.a", d.DeniedResource, "denial must pick the same resource every time")
	}
}

func TestAuthorize_EmptyResources(t *testing.T) {
	assert.True(t, Authorize(domain.NewResourceSet(), &domain.PermissionGrant{}, "sales_db").Allowed)
	assert.True(t, Authorize(nil, nil, "sales_db").Allowed)
}

func TestAuthorize_NilGrantDeniesEverything(t *testing.T) {
	rs := resourcesFor([]string{"orders"}, nil)

	d := Authorize(rs, nil, "sales_db")
	assert.False(t, d.Allowed)
}

func TestAuthorizeFor_AdminBypass(t *testing.T) {
	rs := resourcesFor([]string{"salaries"}, [][2]string{{"salaries", "amount"}})

	admin := &domain.Principal{IsAdmin: true}
	assert.True(t, AuthorizeFor(admin, rs, nil, "sales_db").Allowed)

	user := &domain.Principal{}
	assert.False(t, AuthorizeFor(user, rs, nil, "sales_db").Allowed)
}
