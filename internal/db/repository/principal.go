package repository

import (
	"context"
	"database/sql"
	"time"

	"genbi/internal/db/crypto"
	"genbi/internal/domain"
)

// PrincipalRepo persists principals and answers credential checks. Writes
// go to the write pool, reads to the read pool.
type PrincipalRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

var (
	_ domain.PrincipalRepository = (*PrincipalRepo)(nil)
)

func NewPrincipalRepo(writeDB, readDB *sql.DB) *PrincipalRepo {
	return &PrincipalRepo{writeDB: writeDB, readDB: readDB}
}

func (r *PrincipalRepo) Create(ctx context.Context, req *domain.CreatePrincipalRequest) (*domain.Principal, error) {
	p := &domain.Principal{
		ID:        domain.NewID(),
		Name:      req.Name,
		Type:      req.Type,
		IsAdmin:   req.IsAdmin,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.writeDB.ExecContext(ctx, `
		INSERT INTO principals (id, name, type, secret_hash, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Type, crypto.HashSecret(req.Secret), boolToInt(p.IsAdmin), formatTime(p.CreatedAt))
	if err != nil {
		return nil, mapDBError(err)
	}
	return p, nil
}

func (r *PrincipalRepo) GetByName(ctx context.Context, name string) (*domain.Principal, error) {
	p, _, err := r.getByName(ctx, name)
	return p, err
}

func (r *PrincipalRepo) getByName(ctx context.Context, name string) (*domain.Principal, string, error) {
	row := r.readDB.QueryRowContext(ctx, `
		SELECT id, name, type, secret_hash, is_admin, created_at
		FROM principals WHERE name = ?`, name)

	var (
		p          domain.Principal
		secretHash string
		isAdmin    int64
		createdAt  string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Type, &secretHash, &isAdmin, &createdAt); err != nil {
		return nil, "", mapDBError(err)
	}
	p.IsAdmin = isAdmin != 0
	p.CreatedAt = parseTime(createdAt)
	return &p, secretHash, nil
}

func (r *PrincipalRepo) List(ctx context.Context) ([]domain.Principal, error) {
	rows, err := r.readDB.QueryContext(ctx, `
		SELECT id, name, type, is_admin, created_at
		FROM principals ORDER BY name`)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	var out []domain.Principal
	for rows.Next() {
		var (
			p         domain.Principal
			isAdmin   int64
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Type, &isAdmin, &createdAt); err != nil {
			return nil, err
		}
		p.IsAdmin = isAdmin != 0
		p.CreatedAt = parseTime(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PrincipalRepo) Delete(ctx context.Context, id string) error {
	res, err := r.writeDB.ExecContext(ctx, `DELETE FROM principals WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound("principal %q not found", id)
	}
	return nil
}

// credentialStore pairs principal authentication with grant loading.
type credentialStore struct {
	*PrincipalRepo
	*GrantRepo
}

var _ domain.CredentialStore = (*credentialStore)(nil)

// NewCredentialStore combines the two repositories into the credential
// capability the API consumes.
func NewCredentialStore(principals *PrincipalRepo, grants *GrantRepo) domain.CredentialStore {
	return &credentialStore{PrincipalRepo: principals, GrantRepo: grants}
}

// Authenticate verifies a name/secret pair and returns the principal.
// Failures are uniform: a missing principal and a wrong secret produce the
// same error.
func (r *PrincipalRepo) Authenticate(ctx context.Context, name, secret string) (*domain.Principal, error) {
	p, secretHash, err := r.getByName(ctx, name)
	if err != nil {
		return nil, domain.ErrAccessDenied("invalid credentials")
	}
	if !crypto.VerifySecret(secretHash, secret) {
		return nil, domain.ErrAccessDenied("invalid credentials")
	}
	return p, nil
}
