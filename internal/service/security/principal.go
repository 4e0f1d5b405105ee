package security

import (
	"context"
	"log/slog"

	"genbi/internal/domain"
)

// PrincipalService manages principal lifecycle. Validation happens here,
// at the boundary; repositories assume well-formed input.
type PrincipalService struct {
	repo   domain.PrincipalRepository
	logger *slog.Logger
}

func NewPrincipalService(repo domain.PrincipalRepository, logger *slog.Logger) *PrincipalService {
	return &PrincipalService{repo: repo, logger: logger.With("component", "principal_service")}
}

func (s *PrincipalService) Create(ctx context.Context, req *domain.CreatePrincipalRequest) (*domain.Principal, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("principal created", "name", p.Name, "type", p.Type, "admin", p.IsAdmin)
	return p, nil
}

func (s *PrincipalService) GetByName(ctx context.Context, name string) (*domain.Principal, error) {
	if name == "" {
		return nil, domain.ErrValidation("principal name is required")
	}
	return s.repo.GetByName(ctx, name)
}

func (s *PrincipalService) List(ctx context.Context) ([]domain.Principal, error) {
	return s.repo.List(ctx)
}

func (s *PrincipalService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrValidation("principal id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("principal deleted", "id", id)
	return nil
}
