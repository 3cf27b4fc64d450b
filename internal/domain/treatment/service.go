package treatment

import (
	"context"

	"github.com/google/uuid"
)

type Service struct {
	findings FindingRepository
	steps    StepRepository
}

func NewService(findings FindingRepository, steps StepRepository) *Service {
	return &Service{findings: findings, steps: steps}
}

// -- Tooth Findings --

func (s *Service) AddFinding(ctx context.Context, f *ToothFinding) error {
	if err := f.Validate(); err != nil {
		return err
	}
	return s.findings.Create(ctx, f)
}

func (s *Service) PatientFindings(ctx context.Context, patientID uuid.UUID) ([]*ToothFinding, error) {
	return s.findings.ListByPatient(ctx, patientID)
}

func (s *Service) RemoveFinding(ctx context.Context, id uuid.UUID) error {
	return s.findings.Delete(ctx, id)
}

// -- Treatment Steps --

func (s *Service) AddStep(ctx context.Context, step *TreatmentStep) error {
	if err := step.Validate(); err != nil {
		return err
	}
	return s.steps.Create(ctx, step)
}

func (s *Service) GetStep(ctx context.Context, id uuid.UUID) (*TreatmentStep, error) {
	return s.steps.GetByID(ctx, id)
}

func (s *Service) AppointmentSteps(ctx context.Context, appointmentID uuid.UUID) ([]*TreatmentStep, error) {
	return s.steps.ListByAppointment(ctx, appointmentID)
}

func (s *Service) UpdateStep(ctx context.Context, step *TreatmentStep) error {
	if err := step.Validate(); err != nil {
		return err
	}
	return s.steps.Update(ctx, step)
}

func (s *Service) RemoveStep(ctx context.Context, id uuid.UUID) error {
	return s.steps.Delete(ctx, id)
}
