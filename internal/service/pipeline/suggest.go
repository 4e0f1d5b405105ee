package pipeline

import (
	"fmt"
	"strings"

	"genbi/internal/domain"
)

// maxSuggestions caps the suggestion list returned to one principal.
const maxSuggestions = 8

// Suggester proposes example questions a principal is actually allowed to
// ask, derived from the tables their grant covers.
type Suggester struct {
	searcher domain.SchemaSearcher
	database string
}

func NewSuggester(searcher domain.SchemaSearcher, database string) *Suggester {
	return &Suggester{searcher: searcher, database: database}
}

// Suggest returns questions over granted tables only. Admins see
// suggestions for every table. Deterministic: snapshot order drives the
// output.
func (s *Suggester) Suggest(principal *domain.Principal, grant *domain.PermissionGrant) []string {
	snap := s.searcher.Snapshot()
	if snap == nil {
		return nil
	}

	allowed := func(table string) bool {
		if principal != nil && principal.IsAdmin {
			return true
		}
		if grant == nil {
			return false
		}
		return grant.AllowsDatabase(s.database) && grant.AllowsTable(table)
	}

	var out []string
	for i := range snap.Elements {
		e := &snap.Elements[i]
		if e.Kind != domain.ElementTable || !allowed(e.QualifiedName) {
			continue
		}
		out = append(out, suggestionsForTable(e)...)
		if len(out) >= maxSuggestions {
			return out[:maxSuggestions]
		}
	}
	return out
}

func suggestionsForTable(e *domain.SchemaElement) []string {
	noun := strings.ReplaceAll(e.QualifiedName, "_", " ")
	out := []string{fmt.Sprintf("How many %s are there?", noun)}

	var measure, dimension, temporal string
	for _, c := range e.Columns {
		lower := strings.ToLower(c.Name)
		t := strings.ToUpper(c.DataType)
		switch {
		case temporal == "" && (strings.Contains(t, "DATE") || strings.Contains(t, "TIME")):
			temporal = c.Name
		case measure == "" && !c.PrimaryKey && !strings.HasSuffix(lower, "_id") &&
			(strings.Contains(t, "INT") || strings.Contains(t, "REAL") || strings.Contains(t, "NUM") || strings.Contains(t, "DEC") || strings.Contains(t, "FLOAT") || strings.Contains(t, "DOUBLE")):
			measure = c.Name
		case dimension == "" && !c.PrimaryKey && strings.Contains(t, "TEXT"):
			dimension = c.Name
		}
	}

	if measure != "" && dimension != "" {
		out = append(out, fmt.Sprintf("What is the total %s by %s in %s?",
			strings.ReplaceAll(measure, "_", " "), strings.ReplaceAll(dimension, "_", " "), noun))
	}
	if measure != "" && temporal != "" {
		out = append(out, fmt.Sprintf("Show the %s trend over time in %s",
			strings.ReplaceAll(measure, "_", " "), noun))
	}
	return out
}
