package domain

import "fmt"

// Denial reason codes, in evaluation precedence order.
const (
	ReasonDatabaseDenied = "database_denied"
	ReasonTableDenied    = "table_denied"
	ReasonColumnDenied   = "column_denied"
)

// AuthorizationDecision is the terminal artifact of an authorization check.
// A denial names exactly one failing resource; messages identify the denied
// resource but never its contents.
type AuthorizationDecision struct {
	Allowed        bool
	DeniedResource string // empty when allowed
	ReasonCode     string // empty when allowed
	Message        string
}

// Allow returns the affirmative decision.
func Allow() AuthorizationDecision {
	return AuthorizationDecision{Allowed: true, Message: "query authorized"}
}

// DenyDatabase returns a decision denying access to a database.
func DenyDatabase(name string) AuthorizationDecision {
	return AuthorizationDecision{
		ReasonCode:     ReasonDatabaseDenied,
		DeniedResource: name,
		Message:        fmt.Sprintf("access denied to database %q", name),
	}
}

// DenyTable returns a decision denying access to a table.
func DenyTable(name string) AuthorizationDecision {
	return AuthorizationDecision{
		ReasonCode:     ReasonTableDenied,
		DeniedResource: name,
		Message:        fmt.Sprintf("access denied to table %q", name),
	}
}

// DenyColumn returns a decision denying access to a table-qualified column.
func DenyColumn(table, column string) AuthorizationDecision {
	return AuthorizationDecision{
		ReasonCode:     ReasonColumnDenied,
		DeniedResource: table + "." + column,
		Message:        fmt.Sprintf("access denied to column %q of table %q", column, table),
	}
}
