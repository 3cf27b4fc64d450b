package treatment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrFindingNotFound is returned when no tooth finding matches the lookup.
	ErrFindingNotFound = errors.New("tooth finding not found")
	// ErrStepNotFound is returned when no treatment step matches the lookup.
	ErrStepNotFound = errors.New("treatment step not found")
)

type FindingRepository interface {
	Create(ctx context.Context, f *ToothFinding) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*ToothFinding, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type StepRepository interface {
	Create(ctx context.Context, s *TreatmentStep) error
	GetByID(ctx context.Context, id uuid.UUID) (*TreatmentStep, error)
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*TreatmentStep, error)
	Update(ctx context.Context, s *TreatmentStep) error
	Delete(ctx context.Context, id uuid.UUID) error
}
