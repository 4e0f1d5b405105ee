// Package sqlscan provides a lightweight SQL scanning pass: statement
// classification and extraction of the databases, tables, and columns a
// statement references. It is deliberately not a full parser; ambiguous
// references are attributed conservatively so that authorization can never
// under-count what a query touches.
package sqlscan

import "strings"

// TokenType identifies the lexical class of a token.
type TokenType int

const (
	TOKEN_EOF TokenType = iota
	TOKEN_IDENT
	TOKEN_KEYWORD
	TOKEN_NUMBER
	TOKEN_STRING
	TOKEN_STAR
	TOKEN_DOT
	TOKEN_COMMA
	TOKEN_SEMICOLON
	TOKEN_LPAREN
	TOKEN_RPAREN
	TOKEN_OP
	TOKEN_ILLEGAL
)

// Token is one lexical unit of a SQL statement. Keyword literals are
// upper-cased; quoted identifiers keep their original case with the quotes
// stripped.
type Token struct {
	Type    TokenType
	Literal string
}

// keywords covers the SQL vocabulary the scanner must recognize to find
// clause boundaries and to avoid mistaking keywords for column names.
var keywords = map[string]bool{
	"SELECT": true, "FROM": true, "JOIN": true, "INNER": true, "LEFT": true,
	"RIGHT": true, "FULL": true, "OUTER": true, "CROSS": true, "ON": true,
	"WHERE": true, "GROUP": true, "ORDER": true, "BY": true, "HAVING": true,
	"LIMIT": true, "OFFSET": true, "AS": true, "AND": true, "OR": true,
	"NOT": true, "IN": true, "IS": true, "NULL": true, "LIKE": true,
	"BETWEEN": true, "CASE": true, "WHEN": true, "THEN": true, "ELSE": true,
	"END": true, "ASC": true, "DESC": true, "DISTINCT": true, "ALL": true,
	"UNION": true, "EXCEPT": true, "INTERSECT": true, "EXISTS": true,
	"INTERVAL": true, "TOP": true, "WITH": true, "USING": true, "FETCH": true,
	"INSERT": true, "UPDATE": true, "DELETE": true, "MERGE": true,
	"CREATE": true, "DROP": true, "ALTER": true, "TRUNCATE": true,
	"GRANT": true, "REVOKE": true, "INTO": true, "VALUES": true, "SET": true,
	"CURRENT_DATE": true, "CURRENT_TIMESTAMP": true, "TRUE": true, "FALSE": true,
}

// Lexer tokenizes a SQL statement.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// Tokens lexes the whole input into a slice ending with TOKEN_EOF.
func Tokens(input string) []Token {
	l := NewLexer(input)
	var out []Token
	for {
		tok := l.NextToken()
		out = append(out, tok)
		if tok.Type == TOKEN_EOF {
			return out
		}
	}
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	var tok Token
	switch l.ch {
	case 0:
		return Token{Type: TOKEN_EOF}
	case '*':
		tok = Token{Type: TOKEN_STAR, Literal: "*"}
	case '.':
		tok = Token{Type: TOKEN_DOT, Literal: "."}
	case ',':
		tok = Token{Type: TOKEN_COMMA, Literal: ","}
	case ';':
		tok = Token{Type: TOKEN_SEMICOLON, Literal: ";"}
	case '(':
		tok = Token{Type: TOKEN_LPAREN, Literal: "("}
	case ')':
		tok = Token{Type: TOKEN_RPAREN, Literal: ")"}
	case '\'':
		return Token{Type: TOKEN_STRING, Literal: l.readString('\'')}
	case '"':
		return Token{Type: TOKEN_IDENT, Literal: l.readString('"')}
	case '`':
		return Token{Type: TOKEN_IDENT, Literal: l.readString('`')}
	case '=', '<', '>', '!', '+', '-', '/', '%', '|', '&':
		return Token{Type: TOKEN_OP, Literal: l.readOperator()}
	default:
		switch {
		case isIdentStart(l.ch):
			lit := l.readIdentifier()
			upper := strings.ToUpper(lit)
			if keywords[upper] {
				return Token{Type: TOKEN_KEYWORD, Literal: upper}
			}
			return Token{Type: TOKEN_IDENT, Literal: lit}
		case isDigit(l.ch):
			return Token{Type: TOKEN_NUMBER, Literal: l.readNumber()}
		default:
			tok = Token{Type: TOKEN_ILLEGAL, Literal: string(l.ch)}
		}
	}

	l.readChar()
	return tok
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '-' && l.peekChar() == '-':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			l.readChar()
			l.readChar()
			for l.ch != 0 && !(l.ch == '*' && l.peekChar() == '/') {
				l.readChar()
			}
			if l.ch != 0 {
				l.readChar()
				l.readChar()
			}
		default:
			return
		}
	}
}

// readString consumes a quoted literal or identifier, handling doubled
// quote escapes, and returns the unquoted content.
func (l *Lexer) readString(quote byte) string {
	l.readChar() // consume opening quote
	var sb strings.Builder
	for l.ch != 0 {
		if l.ch == quote {
			if l.peekChar() == quote {
				sb.WriteByte(quote)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // consume closing quote
			break
		}
		sb.WriteByte(l.ch)
		l.readChar()
	}
	return sb.String()
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isIdentStart(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) || l.ch == '.' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readOperator() string {
	start := l.pos
	for isOperatorChar(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isOperatorChar(ch byte) bool {
	switch ch {
	case '=', '<', '>', '!', '+', '-', '/', '%', '|', '&':
		return true
	}
	return false
}
