package repository

import (
	"context"
	"database/sql"
	"time"

	"genbi/internal/domain"
)

// Grant entry dimensions as stored.
const (
	dimDatabase = "database"
	dimTable    = "table"
	dimColumn   = "column"
)

// GrantRepo persists permission grants, one row per entry. LoadGrant
// returns the additive union of every row a principal holds.
type GrantRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

var _ domain.GrantRepository = (*GrantRepo)(nil)

func NewGrantRepo(writeDB, readDB *sql.DB) *GrantRepo {
	return &GrantRepo{writeDB: writeDB, readDB: readDB}
}

func (r *GrantRepo) Add(ctx context.Context, principalID string, grant *domain.PermissionGrant) error {
	tx, err := r.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return mapDBError(err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now().UTC())
	insert := func(dimension string, entries []string) error {
		for _, entry := range entries {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO grants (id, principal_id, dimension, entry, created_at)
				VALUES (?, ?, ?, ?, ?)`,
				domain.NewID(), principalID, dimension, entry, now); err != nil {
				return err
			}
		}
		return nil
	}

	if err := insert(dimDatabase, grant.Databases); err != nil {
		return mapDBError(err)
	}
	if err := insert(dimTable, grant.Tables); err != nil {
		return mapDBError(err)
	}
	if err := insert(dimColumn, grant.Columns); err != nil {
		return mapDBError(err)
	}

	return mapDBError(tx.Commit())
}

// LoadGrant returns the union of all grant rows for the principal, in
// insertion order. A principal with no rows gets an empty grant, which
// authorizes nothing.
func (r *GrantRepo) LoadGrant(ctx context.Context, principalID string) (*domain.PermissionGrant, error) {
	rows, err := r.readDB.QueryContext(ctx, `
		SELECT dimension, entry FROM grants
		WHERE principal_id = ?
		ORDER BY created_at, id`, principalID)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	grant := &domain.PermissionGrant{}
	seen := map[string]bool{}
	for rows.Next() {
		var dimension, entry string
		if err := rows.Scan(&dimension, &entry); err != nil {
			return nil, err
		}
		key := dimension + "\x00" + entry
		if seen[key] {
			continue
		}
		seen[key] = true
		switch dimension {
		case dimDatabase:
			grant.Databases = append(grant.Databases, entry)
		case dimTable:
			grant.Tables = append(grant.Tables, entry)
		case dimColumn:
			grant.Columns = append(grant.Columns, entry)
		}
	}
	return grant, rows.Err()
}
