package sqlscan

import (
	"strings"

	"genbi/internal/domain"
)

// clause identifies which part of the statement the scanner is inside.
// Column references are only collected from clauses that can name columns.
type clause int

const (
	clauseNone clause = iota
	clauseSelect
	clauseFrom
	clauseOn
	clauseWhere
	clauseGroupBy
	clauseOrderBy
	clauseHaving
	clauseLimit
)

func (c clause) collectsColumns() bool {
	switch c {
	case clauseSelect, clauseOn, clauseWhere, clauseGroupBy, clauseOrderBy, clauseHaving:
		return true
	}
	return false
}

// Wellformed performs the cheap lexical checks the validator relies on:
// the input is non-empty, contains no illegal characters, and has balanced
// parentheses. It is a shape check, not a grammar check.
func Wellformed(sql string) error {
	toks := Tokens(sql)
	if len(toks) == 1 {
		return domain.ErrSQLValidation(domain.ValidationSyntax, "empty statement")
	}
	depth := 0
	for _, tok := range toks {
		switch tok.Type {
		case TOKEN_ILLEGAL:
			return domain.ErrSQLValidation(domain.ValidationSyntax, "illegal character %q", tok.Literal)
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			depth--
			if depth < 0 {
				return domain.ErrSQLValidation(domain.ValidationSyntax, "unbalanced parentheses")
			}
		}
	}
	if depth != 0 {
		return domain.ErrSQLValidation(domain.ValidationSyntax, "unbalanced parentheses")
	}
	return nil
}

// tableRef is one FROM/JOIN target before alias resolution.
type tableRef struct {
	database string // non-empty for db-qualified targets
	name     string // canonical (last) name part
}

// Extract scans a validated statement and returns the set of databases,
// tables, and table-qualified columns it accesses.
//
// Attribution is conservative by design: a column reference without a
// resolvable table qualifier is attributed to every table in scope, and a
// wildcard select attributes "table.*" for every table in scope. Ambiguity
// over-attributes; it never under-attributes.
func Extract(sql string) (*domain.ResourceSet, error) {
	if err := Wellformed(sql); err != nil {
		return nil, err
	}
	toks := Tokens(sql)

	ctes := collectCTENames(toks)
	tables, aliases := collectTables(toks, ctes)
	selectAliases := collectSelectAliases(toks)

	rs := domain.NewResourceSet()
	tableNames := make([]string, 0, len(tables))
	for _, t := range tables {
		rs.Tables[t.name] = true
		tableNames = append(tableNames, t.name)
		if t.database != "" {
			rs.Databases[t.database] = true
		}
	}

	// resolve maps a qualifier (alias or table name) to a canonical table.
	resolve := func(qualifier string) string {
		if canonical, ok := aliases[strings.ToLower(qualifier)]; ok {
			return canonical
		}
		return qualifier
	}

	attributeAll := func(column string) {
		for _, t := range tableNames {
			rs.AddColumn(t, column)
		}
	}

	cur := clauseNone
	for i := 0; i < len(toks); i++ {
		tok := toks[i]

		if tok.Type == TOKEN_KEYWORD {
			cur = nextClause(cur, tok.Literal)
			// AS introduces an alias, never a column; skip the alias token.
			if tok.Literal == "AS" && toks[i+1].Type == TOKEN_IDENT {
				i++
			}
			continue
		}

		if !cur.collectsColumns() {
			continue
		}

		switch tok.Type {
		case TOKEN_STAR:
			// Bare * in a select list: all columns of every table in scope.
			if cur == clauseSelect {
				attributeAll(domain.Wildcard)
			}
		case TOKEN_IDENT:
			chain, starred, next := readChain(toks, i)
			i = next - 1

			// A name directly followed by ( is a function call, not a column.
			if !starred && toks[next].Type == TOKEN_LPAREN {
				continue
			}

			switch {
			case len(chain) == 1 && starred:
				// t.* — all columns of one table.
				if t := resolve(chain[0]); ctes[strings.ToLower(t)] {
					attributeAll(domain.Wildcard)
				} else {
					rs.AddColumn(t, domain.Wildcard)
				}
			case len(chain) == 1:
				name := chain[0]
				lower := strings.ToLower(name)
				if selectAliases[lower] || aliasedTable(aliases, lower) || ctes[lower] {
					continue
				}
				attributeAll(name)
			default:
				// Qualified reference: qualifier.column (optionally db.table.column).
				column := chain[len(chain)-1]
				if starred {
					column = domain.Wildcard
				}
				table := resolve(chain[len(chain)-2])
				if ctes[strings.ToLower(table)] {
					// A CTE is derived from tables already in the set; its
					// columns could come from any of them, unless the name
					// is an output alias the CTE itself defined.
					if !selectAliases[strings.ToLower(column)] {
						attributeAll(column)
					}
					continue
				}
				rs.AddColumn(table, column)
				rs.Tables[table] = true
				if len(chain) >= 3 {
					rs.Databases[chain[0]] = true
				}
			}
		}
	}

	return rs, nil
}

// nextClause advances the clause state machine on a keyword.
func nextClause(cur clause, kw string) clause {
	switch kw {
	case "SELECT":
		return clauseSelect
	case "FROM", "JOIN":
		return clauseFrom
	case "ON", "USING":
		return clauseOn
	case "WHERE":
		return clauseWhere
	case "GROUP":
		return clauseGroupBy
	case "ORDER":
		return clauseOrderBy
	case "HAVING":
		return clauseHaving
	case "LIMIT", "OFFSET", "FETCH":
		return clauseLimit
	case "UNION", "EXCEPT", "INTERSECT", "WITH":
		return clauseNone
	}
	return cur
}

// collectCTENames finds the names defined by a WITH clause: `WITH name AS (`
// and `, name AS (` at parenthesis depth zero.
func collectCTENames(toks []Token) map[string]bool {
	out := map[string]bool{}
	if len(toks) == 0 || toks[0].Type != TOKEN_KEYWORD || toks[0].Literal != "WITH" {
		return out
	}
	depth := 0
	for i := 1; i+2 < len(toks); i++ {
		switch toks[i].Type {
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			depth--
		case TOKEN_IDENT:
			if depth == 0 &&
				toks[i+1].Type == TOKEN_KEYWORD && toks[i+1].Literal == "AS" &&
				toks[i+2].Type == TOKEN_LPAREN {
				out[strings.ToLower(toks[i].Literal)] = true
			}
		case TOKEN_KEYWORD:
			// The statement verb ends the WITH prefix.
			if depth == 0 && toks[i].Literal != "AS" {
				return out
			}
		}
	}
	return out
}

// collectTables finds every FROM/JOIN target and its alias. CTE names are
// excluded: they are derived relations, not stored tables.
func collectTables(toks []Token, ctes map[string]bool) ([]tableRef, map[string]string) {
	var tables []tableRef
	aliases := map[string]string{}

	for i := 0; i < len(toks); i++ {
		if toks[i].Type != TOKEN_KEYWORD {
			continue
		}
		kw := toks[i].Literal
		if kw != "FROM" && kw != "JOIN" {
			continue
		}

		j := i + 1
		for {
			if toks[j].Type != TOKEN_IDENT {
				break // subquery or expression target; the scan continues inside
			}
			chain, _, next := readChain(toks, j)
			j = next

			if len(chain) == 1 && ctes[strings.ToLower(chain[0])] {
				// A CTE reference is not a stored table, but its aliases
				// still need to resolve for column attribution.
				aliases[strings.ToLower(chain[0])] = chain[0]
				if toks[j].Type == TOKEN_KEYWORD && toks[j].Literal == "AS" {
					j++
				}
				if toks[j].Type == TOKEN_IDENT {
					aliases[strings.ToLower(toks[j].Literal)] = chain[0]
					j++
				}
				if kw != "FROM" || toks[j].Type != TOKEN_COMMA {
					break
				}
				j++
				continue
			}

			ref := tableRef{name: chain[len(chain)-1]}
			if len(chain) >= 2 {
				ref.database = chain[0]
			}
			tables = append(tables, ref)
			aliases[strings.ToLower(ref.name)] = ref.name

			// Optional alias: [AS] ident.
			if toks[j].Type == TOKEN_KEYWORD && toks[j].Literal == "AS" {
				j++
			}
			if toks[j].Type == TOKEN_IDENT {
				aliases[strings.ToLower(toks[j].Literal)] = ref.name
				j++
			}

			// Comma-separated FROM lists continue; JOIN takes one target.
			if kw != "FROM" || toks[j].Type != TOKEN_COMMA {
				break
			}
			j++
		}
		i = j - 1
	}

	return dedupeTables(tables), aliases
}

// collectSelectAliases finds output-column aliases so that references to
// them in GROUP BY / ORDER BY / HAVING are not mistaken for real columns.
func collectSelectAliases(toks []Token) map[string]bool {
	out := map[string]bool{}
	cur := clauseNone
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		if tok.Type == TOKEN_KEYWORD {
			prev := cur
			cur = nextClause(cur, tok.Literal)
			if prev == clauseSelect && tok.Literal == "AS" && toks[i+1].Type == TOKEN_IDENT {
				out[strings.ToLower(toks[i+1].Literal)] = true
				cur = prev
				i++
			}
			continue
		}
		// Implicit alias: `expr) alias ,` or `expr) alias FROM`.
		if cur == clauseSelect && tok.Type == TOKEN_RPAREN && toks[i+1].Type == TOKEN_IDENT {
			after := toks[i+2]
			if after.Type == TOKEN_COMMA || (after.Type == TOKEN_KEYWORD && after.Literal == "FROM") {
				out[strings.ToLower(toks[i+1].Literal)] = true
				i++
			}
		}
	}
	return out
}

// readChain reads ident(.ident)* starting at i, optionally terminated by
// .*; it returns the name parts, whether the chain ended in a star, and
// the index of the first token past the chain.
func readChain(toks []Token, i int) (parts []string, starred bool, next int) {
	parts = append(parts, toks[i].Literal)
	i++
	for toks[i].Type == TOKEN_DOT {
		switch toks[i+1].Type {
		case TOKEN_IDENT:
			parts = append(parts, toks[i+1].Literal)
			i += 2
		case TOKEN_STAR:
			return parts, true, i + 2
		default:
			return parts, false, i + 1
		}
	}
	return parts, false, i
}

// aliasedTable reports whether name is a registered alias or table name.
func aliasedTable(aliases map[string]string, lower string) bool {
	_, ok := aliases[lower]
	return ok
}

func dedupeTables(in []tableRef) []tableRef {
	seen := map[string]bool{}
	out := make([]tableRef, 0, len(in))
	for _, t := range in {
		key := t.database + "." + t.name
		if !seen[key] {
			seen[key] = true
			out = append(out, t)
		}
	}
	return out
}
