package repository

import (
	"context"
	"database/sql"
	"strings"

	"genbi/internal/domain"
)

const defaultAuditLimit = 50

// AuditRepo is the append-only audit sink. Entries are never updated or
// deleted through this type.
type AuditRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

var _ domain.AuditRepository = (*AuditRepo)(nil)

func NewAuditRepo(writeDB, readDB *sql.DB) *AuditRepo {
	return &AuditRepo{writeDB: writeDB, readDB: readDB}
}

func (r *AuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	_, err := r.writeDB.ExecContext(ctx, `
		INSERT INTO audit_log
			(id, principal_name, question, candidate_sql, status,
			 reason_code, error_message, confidence, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PrincipalName, e.Question, e.CandidateSQL, e.Status,
		e.ReasonCode, e.ErrorMessage, e.Confidence, e.DurationMs, formatTime(e.CreatedAt))
	return mapDBError(err)
}

// List returns entries newest first, with the total count matching the
// filter before pagination.
func (r *AuditRepo) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int64, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.PrincipalName != nil {
		conds = append(conds, "principal_name = ?")
		args = append(args, *filter.PrincipalName)
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *filter.Status)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.readDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_log"+where, args...).Scan(&total); err != nil {
		return nil, 0, mapDBError(err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, principal_name, question, candidate_sql, status,
		       reason_code, error_message, confidence, duration_ms, created_at
		FROM audit_log` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`
	rows, err := r.readDB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, mapDBError(err)
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var (
			e         domain.AuditEntry
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.PrincipalName, &e.Question, &e.CandidateSQL, &e.Status,
			&e.ReasonCode, &e.ErrorMessage, &e.Confidence, &e.DurationMs, &createdAt); err != nil {
			return nil, 0, err
		}
		e.CreatedAt = parseTime(createdAt)
		out = append(out, e)
	}
	return out, total, rows.Err()
}
