package patient

import (
	"context"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// SearchByCIN looks up patients by exact national id match.
func (s *Service) SearchByCIN(ctx context.Context, cin string) ([]*Patient, error) {
	return s.repo.SearchByCIN(ctx, cin)
}

// SearchByPhone looks up patients by exact phone match.
func (s *Service) SearchByPhone(ctx context.Context, phone string) ([]*Patient, error) {
	return s.repo.SearchByPhone(ctx, phone)
}
