package security

import (
	"context"
	"log/slog"

	"genbi/internal/domain"
)

// GrantService manages permission grants. Grants are validated once here;
// everything downstream trusts stored entries.
type GrantService struct {
	grants     domain.GrantRepository
	principals domain.PrincipalRepository
	logger     *slog.Logger
}

func NewGrantService(grants domain.GrantRepository, principals domain.PrincipalRepository, logger *slog.Logger) *GrantService {
	return &GrantService{
		grants:     grants,
		principals: principals,
		logger:     logger.With("component", "grant_service"),
	}
}

// Grant adds a permission grant to the named principal. Grants accumulate;
// there is no way to narrow access by granting.
func (s *GrantService) Grant(ctx context.Context, principalName string, grant *domain.PermissionGrant) error {
	if err := grant.Validate(); err != nil {
		return err
	}
	p, err := s.principals.GetByName(ctx, principalName)
	if err != nil {
		return err
	}
	if err := s.grants.Add(ctx, p.ID, grant); err != nil {
		return err
	}
	s.logger.Info("grant added",
		"principal", principalName,
		"databases", len(grant.Databases),
		"tables", len(grant.Tables),
		"columns", len(grant.Columns),
	)
	return nil
}

// Load returns the union of every grant held by the principal.
func (s *GrantService) Load(ctx context.Context, principalID string) (*domain.PermissionGrant, error) {
	return s.grants.LoadGrant(ctx, principalID)
}
