package appointment

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/auth"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// visibleTo restricts a filter for the viewer. Doctors only see appointments
// assigned to them; admins and assistants see the whole schedule.
func visibleTo(viewer *auth.Session, f Filter) Filter {
	if viewer != nil && viewer.Role == auth.RoleDoctor {
		id := viewer.PrincipalID
		f.DoctorID = &id
	}
	return f
}

func (s *Service) Create(ctx context.Context, a *Appointment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	return s.repo.Create(ctx, a)
}

// Get returns the appointment, reporting not-found when the viewer is a
// doctor other than the assigned one. The caller cannot distinguish a
// hidden appointment from a missing one.
func (s *Service) Get(ctx context.Context, viewer *auth.Session, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewer != nil && viewer.Role == auth.RoleDoctor && a.DoctorID != viewer.PrincipalID {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *Service) Update(ctx context.Context, viewer *auth.Session, a *Appointment) error {
	if _, err := s.Get(ctx, viewer, a.ID); err != nil {
		return err
	}
	if err := a.Validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, a)
}

func (s *Service) Delete(ctx context.Context, viewer *auth.Session, id uuid.UUID) error {
	if _, err := s.Get(ctx, viewer, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, viewer *auth.Session, f Filter, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.List(ctx, visibleTo(viewer, f), limit, offset)
}
