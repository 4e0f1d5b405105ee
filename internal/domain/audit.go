package domain

import "time"

// Audit statuses for terminal pipeline states.
const (
	AuditExecuted = "EXECUTED"
	AuditDenied   = "DENIED"
	AuditFailed   = "FAILED"
)

// AuditEntry records one terminal pipeline outcome. The audit log is
// append-only and safe under concurrent writers.
type AuditEntry struct {
	ID            string
	PrincipalName string
	Question      string
	CandidateSQL  *string
	Status        string // EXECUTED, DENIED, or FAILED
	ReasonCode    *string
	ErrorMessage  *string
	Confidence    *float64
	DurationMs    *int64
	CreatedAt     time.Time
}

// AuditFilter narrows audit listings.
type AuditFilter struct {
	PrincipalName *string
	Status        *string
	Limit         int
	Offset        int
}
