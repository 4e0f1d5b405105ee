package domain

import "strings"

// Wildcard is the sentinel grant entry meaning "all" within a dimension.
const Wildcard = "*"

// PermissionGrant lists the databases, tables, and columns a principal may
// access. Column entries are either bare column names or "table.column"
// qualified. Grants are purely additive: a principal holding several grants
// is authorized for their union, and no entry ever removes access granted
// elsewhere.
type PermissionGrant struct {
	Databases []string
	Tables    []string
	Columns   []string
}

// Validate rejects malformed grants at the load boundary so the
// authorization engine never has to reason about bad entries.
func (g *PermissionGrant) Validate() error {
	check := func(dim string, entries []string, allowDot bool) error {
		for _, e := range entries {
			if e == "" {
				return ErrValidation("%s grant contains an empty entry", dim)
			}
			if strings.TrimSpace(e) != e || strings.ContainsAny(e, " \t\n") {
				return ErrValidation("%s grant entry %q contains whitespace", dim, e)
			}
			if dots := strings.Count(e, "."); dots > 0 {
				if !allowDot || dots > 1 {
					return ErrValidation("%s grant entry %q is not a valid identifier", dim, e)
				}
			}
		}
		return nil
	}
	if err := check("database", g.Databases, false); err != nil {
		return err
	}
	if err := check("table", g.Tables, false); err != nil {
		return err
	}
	return check("column", g.Columns, true)
}

// Merge returns the additive union of g and other. Entry order is
// preserved (g first, then other) with duplicates dropped.
func (g *PermissionGrant) Merge(other *PermissionGrant) *PermissionGrant {
	if other == nil {
		return g
	}
	return &PermissionGrant{
		Databases: unionStrings(g.Databases, other.Databases),
		Tables:    unionStrings(g.Tables, other.Tables),
		Columns:   unionStrings(g.Columns, other.Columns),
	}
}

// AllowsDatabase reports whether the grant covers the named database.
func (g *PermissionGrant) AllowsDatabase(name string) bool {
	return containsOrWildcard(g.Databases, name)
}

// AllowsTable reports whether the grant covers the named table.
func (g *PermissionGrant) AllowsTable(name string) bool {
	return containsOrWildcard(g.Tables, name)
}

// AllowsColumn reports whether the grant covers table.column. Access is
// granted when the bare column name, the qualified name, or the wildcard
// appears in the column dimension.
func (g *PermissionGrant) AllowsColumn(table, column string) bool {
	qualified := table + "." + column
	for _, e := range g.Columns {
		if e == Wildcard || e == column || e == qualified {
			return true
		}
	}
	return false
}

func containsOrWildcard(entries []string, name string) bool {
	for _, e := range entries {
		if e == Wildcard || e == name {
			return true
		}
	}
	return false
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
