package sqlscan

// StatementClass is the coarse shape of a SQL statement.
type StatementClass int

const (
	StmtSelect StatementClass = iota
	StmtWrite                 // INSERT / UPDATE / DELETE / MERGE
	StmtDDL                   // CREATE / DROP / ALTER / TRUNCATE / GRANT / REVOKE
	StmtMulti                 // more than one statement in the input
	StmtUnknown
)

// ClassifyStatement reports the shape of the statement. Anything other than
// a single SELECT-shaped query (including WITH ... SELECT) is rejected by
// the validator before authorization is even considered.
func ClassifyStatement(sql string) StatementClass {
	toks := Tokens(sql)

	// A semicolon followed by anything but EOF means a multi-statement batch.
	for i, tok := range toks {
		if tok.Type == TOKEN_SEMICOLON && toks[i+1].Type != TOKEN_EOF {
			return StmtMulti
		}
	}

	for _, tok := range toks {
		if tok.Type != TOKEN_KEYWORD {
			return StmtUnknown
		}
		switch tok.Literal {
		case "SELECT":
			return StmtSelect
		case "WITH":
			// CTE prefix; keep scanning for the statement verb.
			return classifyAfterCTE(toks)
		case "INSERT", "UPDATE", "DELETE", "MERGE":
			return StmtWrite
		case "CREATE", "DROP", "ALTER", "TRUNCATE", "GRANT", "REVOKE":
			return StmtDDL
		default:
			return StmtUnknown
		}
	}
	return StmtUnknown
}

// classifyAfterCTE finds the statement verb that follows a WITH clause by
// scanning for the first top-level keyword outside parentheses.
func classifyAfterCTE(toks []Token) StatementClass {
	depth := 0
	for _, tok := range toks[1:] {
		switch tok.Type {
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			depth--
		case TOKEN_KEYWORD:
			if depth != 0 {
				continue
			}
			switch tok.Literal {
			case "SELECT":
				return StmtSelect
			case "INSERT", "UPDATE", "DELETE", "MERGE":
				return StmtWrite
			}
		case TOKEN_EOF:
			return StmtUnknown
		}
	}
	return StmtUnknown
}
