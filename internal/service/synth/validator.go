package synth

import (
	"fmt"
	"log/slog"
	"strings"

	"genbi/internal/domain"
	"genbi/internal/sqlscan"
)

// DefaultMaxRows is the row cap injected into candidates without a LIMIT.
const DefaultMaxRows = 1000

// Validator checks a candidate statement before it may reach authorization:
// lexical shape, statement class, object existence against the expanded
// surface, and a row cap. It never executes anything.
type Validator struct {
	maxRows int
	logger  *slog.Logger
}

func NewValidator(maxRows int, logger *slog.Logger) *Validator {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Validator{maxRows: maxRows, logger: logger.With("component", "validator")}
}

// Validate returns the (possibly LIMIT-amended) statement, or a
// SQLValidationError naming what failed. LIMIT injection happens last and
// never changes which resources the statement touches.
func (v *Validator) Validate(sql string, elements []domain.SchemaElement) (string, error) {
	if err := sqlscan.Wellformed(sql); err != nil {
		return "", err
	}

	switch sqlscan.ClassifyStatement(sql) {
	case sqlscan.StmtSelect:
	case sqlscan.StmtWrite:
		return "", domain.ErrSQLValidation(domain.ValidationDisallowedStatement, "write statements are not allowed")
	case sqlscan.StmtDDL:
		return "", domain.ErrSQLValidation(domain.ValidationDisallowedStatement, "DDL statements are not allowed")
	case sqlscan.StmtMulti:
		return "", domain.ErrSQLValidation(domain.ValidationDisallowedStatement, "multi-statement batches are not allowed")
	default:
		return "", domain.ErrSQLValidation(domain.ValidationSyntax, "unrecognized statement")
	}

	resources, err := sqlscan.Extract(sql)
	if err != nil {
		return "", err
	}
	if err := v.checkObjects(resources, elements); err != nil {
		return "", err
	}

	return v.injectLimit(sql), nil
}

// checkObjects verifies every referenced table exists in the expanded
// surface and every referenced column exists in at least one in-scope
// table. A column attributed to several tables by ambiguity only needs one
// real home; authorization still sees every attribution.
func (v *Validator) checkObjects(resources *domain.ResourceSet, elements []domain.SchemaElement) error {
	columnsByTable := map[string]map[string]bool{}
	for _, e := range elements {
		if e.Kind != domain.ElementTable {
			continue
		}
		cols := map[string]bool{}
		for _, c := range e.Columns {
			cols[strings.ToLower(c.Name)] = true
		}
		columnsByTable[strings.ToLower(e.QualifiedName)] = cols
	}

	for _, table := range resources.SortedTables() {
		if _, ok := columnsByTable[strings.ToLower(table)]; !ok {
			return domain.ErrSQLValidation(domain.ValidationUnknownObject, "unknown table %q", table)
		}
	}

	for _, qualified := range resources.SortedColumns() {
		table, column, ok := strings.Cut(qualified, ".")
		if !ok || column == domain.Wildcard {
			continue
		}
		lower := strings.ToLower(column)
		if columnsByTable[strings.ToLower(table)][lower] {
			continue
		}
		foundElsewhere := false
		for _, cols := range columnsByTable {
			if cols[lower] {
				foundElsewhere = true
				break
			}
		}
		if !foundElsewhere {
			return domain.ErrSQLValidation(domain.ValidationUnknownObject, "unknown column %q", column)
		}
	}

	return nil
}

// injectLimit appends a LIMIT when the statement has none at the top level.
func (v *Validator) injectLimit(sql string) string {
	toks := sqlscan.Tokens(sql)
	depth := 0
	for _, tok := range toks {
		switch tok.Type {
		case sqlscan.TOKEN_LPAREN:
			depth++
		case sqlscan.TOKEN_RPAREN:
			depth--
		case sqlscan.TOKEN_KEYWORD:
			if depth == 0 && (tok.Literal == "LIMIT" || tok.Literal == "FETCH") {
				return sql
			}
		}
	}
	trimmed := strings.TrimSuffix(strings.TrimSpace(sql), ";")
	return fmt.Sprintf("%s LIMIT %d", trimmed, v.maxRows)
}
