package treatment

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
)

// -- Mock Repositories --

type mockFindingRepo struct {
	findings map[uuid.UUID]*ToothFinding
}

func newMockFindingRepo() *mockFindingRepo {
	return &mockFindingRepo{findings: make(map[uuid.UUID]*ToothFinding)}
}

func (m *mockFindingRepo) Create(_ context.Context, f *ToothFinding) error {
	f.ID = uuid.New()
	f.CreatedAt = time.Now()
	cp := *f
	m.findings[f.ID] = &cp
	return nil
}

func (m *mockFindingRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*ToothFinding, error) {
	var result []*ToothFinding
	for _, f := range m.findings {
		if f.PatientID == patientID {
			cp := *f
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ToothNumber < result[j].ToothNumber })
	return result, nil
}

func (m *mockFindingRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.findings[id]; !ok {
		return ErrFindingNotFound
	}
	delete(m.findings, id)
	return nil
}

type mockStepRepo struct {
	steps map[uuid.UUID]*TreatmentStep
}

func newMockStepRepo() *mockStepRepo {
	return &mockStepRepo{steps: make(map[uuid.UUID]*TreatmentStep)}
}

func (m *mockStepRepo) Create(_ context.Context, s *TreatmentStep) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	m.steps[s.ID] = &cp
	return nil
}

func (m *mockStepRepo) GetByID(_ context.Context, id uuid.UUID) (*TreatmentStep, error) {
	s, ok := m.steps[id]
	if !ok {
		return nil, ErrStepNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockStepRepo) ListByAppointment(_ context.Context, appointmentID uuid.UUID) ([]*TreatmentStep, error) {
	var result []*TreatmentStep
	for _, s := range m.steps {
		if s.AppointmentID == appointmentID {
			cp := *s
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *mockStepRepo) Update(_ context.Context, s *TreatmentStep) error {
	if _, ok := m.steps[s.ID]; !ok {
		return ErrStepNotFound
	}
	s.UpdatedAt = time.Now()
	cp := *s
	m.steps[s.ID] = &cp
	return nil
}

func (m *mockStepRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.steps[id]; !ok {
		return ErrStepNotFound
	}
	delete(m.steps, id)
	return nil
}

func newTestService() *Service {
	return NewService(newMockFindingRepo(), newMockStepRepo())
}

// -- Tests --

func TestValidToothNumber(t *testing.T) {
	valid := []int{11, 18, 21, 28, 31, 38, 41, 48, 51, 55, 61, 65, 71, 75, 81, 85}
	for _, n := range valid {
		if !ValidToothNumber(n) {
			t.Errorf("expected %d to be valid", n)
		}
	}
	invalid := []int{0, 10, 19, 29, 49, 56, 86, 90, 100, -11}
	for _, n := range invalid {
		if ValidToothNumber(n) {
			t.Errorf("expected %d to be invalid", n)
		}
	}
}

func TestService_AddFinding(t *testing.T) {
	svc := newTestService()
	f := &ToothFinding{PatientID: uuid.New(), ToothNumber: 36, Condition: "caries", Surface: "O"}

	if err := svc.AddFinding(context.Background(), f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.ID == uuid.Nil {
		t.Error("expected generated id")
	}
}

func TestService_AddFinding_Rejects(t *testing.T) {
	svc := newTestService()

	cases := []struct {
		name string
		f    ToothFinding
	}{
		{"missing patient", ToothFinding{ToothNumber: 36, Condition: "caries"}},
		{"bad tooth", ToothFinding{PatientID: uuid.New(), ToothNumber: 99, Condition: "caries"}},
		{"missing condition", ToothFinding{PatientID: uuid.New(), ToothNumber: 36}},
	}
	for _, tc := range cases {
		if err := svc.AddFinding(context.Background(), &tc.f); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestService_PatientFindings_Scoped(t *testing.T) {
	svc := newTestService()
	patientA := uuid.New()
	patientB := uuid.New()

	svc.AddFinding(context.Background(), &ToothFinding{PatientID: patientA, ToothNumber: 36, Condition: "caries"})
	svc.AddFinding(context.Background(), &ToothFinding{PatientID: patientA, ToothNumber: 11, Condition: "fracture"})
	svc.AddFinding(context.Background(), &ToothFinding{PatientID: patientB, ToothNumber: 21, Condition: "caries"})

	got, err := svc.PatientFindings(context.Background(), patientA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(got))
	}
	if got[0].ToothNumber != 11 || got[1].ToothNumber != 36 {
		t.Errorf("expected findings ordered by tooth number, got %d, %d", got[0].ToothNumber, got[1].ToothNumber)
	}
}

func TestService_AddStep_Defaults(t *testing.T) {
	svc := newTestService()
	s := &TreatmentStep{AppointmentID: uuid.New(), ToothNumber: 46, StepType: StepFilling}

	if err := svc.AddStep(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Status != StepPending {
		t.Errorf("expected status to default to pending, got %s", s.Status)
	}
}

func TestService_AddStep_RejectsBadType(t *testing.T) {
	svc := newTestService()
	s := &TreatmentStep{AppointmentID: uuid.New(), ToothNumber: 46, StepType: "bleaching"}

	if err := svc.AddStep(context.Background(), s); err == nil {
		t.Error("expected error for unknown step type")
	}
}

func TestService_StepLifecycle(t *testing.T) {
	svc := newTestService()
	apptID := uuid.New()

	s := &TreatmentStep{AppointmentID: apptID, ToothNumber: 46, StepType: StepRootCanal}
	if err := svc.AddStep(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.Status = StepCompleted
	if err := svc.UpdateStep(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	steps, err := svc.AppointmentSteps(context.Background(), apptID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 1 || steps[0].Status != StepCompleted {
		t.Fatalf("expected one completed step, got %+v", steps)
	}

	if err := svc.RemoveStep(context.Background(), s.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetStep(context.Background(), s.ID); err != ErrStepNotFound {
		t.Errorf("expected ErrStepNotFound, got %v", err)
	}
}
