package domain

import "sort"

// CandidateSQL is a synthesized statement together with the synthesizer's
// own confidence judgement. The validator annotates errors, the resource
// extractor annotates referenced objects; nothing mutates it after the
// authorization engine has consumed it.
type CandidateSQL struct {
	Text             string
	Confidence       float64 // heuristic self-assessment in [0,1]
	Referenced       *ResourceSet
	ValidationErrors []string
}

// ResourceSet is the set of databases, tables, and table-qualified columns a
// statement touches. Column keys are "table.column"; the wildcard column is
// recorded as "table.*".
type ResourceSet struct {
	Databases map[string]bool
	Tables    map[string]bool
	Columns   map[string]bool
}

// NewResourceSet returns an empty resource set.
func NewResourceSet() *ResourceSet {
	return &ResourceSet{
		Databases: map[string]bool{},
		Tables:    map[string]bool{},
		Columns:   map[string]bool{},
	}
}

// AddColumn records a table-qualified column reference.
func (r *ResourceSet) AddColumn(table, column string) {
	r.Columns[table+"."+column] = true
}

// SortedDatabases returns database names in lexical order.
func (r *ResourceSet) SortedDatabases() []string { return sortedKeys(r.Databases) }

// SortedTables returns table names in lexical order.
func (r *ResourceSet) SortedTables() []string { return sortedKeys(r.Tables) }

// SortedColumns returns "table.column" keys in lexical order.
func (r *ResourceSet) SortedColumns() []string { return sortedKeys(r.Columns) }

// Equal reports whether two resource sets contain the same members.
func (r *ResourceSet) Equal(other *ResourceSet) bool {
	if other == nil {
		return false
	}
	return setsEqual(r.Databases, other.Databases) &&
		setsEqual(r.Tables, other.Tables) &&
		setsEqual(r.Columns, other.Columns)
}

func setsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
