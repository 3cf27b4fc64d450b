package treatment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StepType enumerates treatment actions performed on a tooth.
type StepType string

const (
	StepDiagnosis  StepType = "diagnosis"
	StepCleaning   StepType = "cleaning"
	StepFilling    StepType = "filling"
	StepRootCanal  StepType = "root_canal"
	StepExtraction StepType = "extraction"
	StepCrown      StepType = "crown"
	StepFollowup   StepType = "followup"
	StepOther      StepType = "other"
)

func ParseStepType(v string) (StepType, error) {
	switch StepType(v) {
	case StepDiagnosis, StepCleaning, StepFilling, StepRootCanal,
		StepExtraction, StepCrown, StepFollowup, StepOther:
		return StepType(v), nil
	}
	return "", fmt.Errorf("invalid step type %q", v)
}

// StepStatus enumerates the state of a treatment step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCompleted StepStatus = "completed"
	StepCancelled StepStatus = "cancelled"
)

func ParseStepStatus(v string) (StepStatus, error) {
	switch StepStatus(v) {
	case StepPending, StepCompleted, StepCancelled:
		return StepStatus(v), nil
	case "":
		return StepPending, nil
	}
	return "", fmt.Errorf("invalid step status %q", v)
}

// ValidToothNumber reports whether n is a permanent or deciduous tooth in
// FDI notation: quadrants 1-4 positions 1-8, quadrants 5-8 positions 1-5.
func ValidToothNumber(n int) bool {
	q, p := n/10, n%10
	switch {
	case q >= 1 && q <= 4:
		return p >= 1 && p <= 8
	case q >= 5 && q <= 8:
		return p >= 1 && p <= 5
	}
	return false
}

// ToothFinding records an observed condition on a patient's tooth.
type ToothFinding struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patient_id"`
	ToothNumber int       `json:"tooth_number"`
	Condition   string    `json:"condition"`
	Surface     string    `json:"surface,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (f *ToothFinding) Validate() error {
	if f.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if !ValidToothNumber(f.ToothNumber) {
		return fmt.Errorf("tooth_number %d is not valid FDI notation", f.ToothNumber)
	}
	if f.Condition == "" {
		return fmt.Errorf("condition is required")
	}
	return nil
}

// TreatmentStep tracks one sequential treatment action on a tooth within an
// appointment.
type TreatmentStep struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID uuid.UUID  `json:"appointment_id"`
	ToothNumber   int        `json:"tooth_number"`
	StepType      StepType   `json:"step_type"`
	Description   string     `json:"description,omitempty"`
	Status        StepStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (s *TreatmentStep) Validate() error {
	if s.AppointmentID == uuid.Nil {
		return fmt.Errorf("appointment_id is required")
	}
	if !ValidToothNumber(s.ToothNumber) {
		return fmt.Errorf("tooth_number %d is not valid FDI notation", s.ToothNumber)
	}
	if _, err := ParseStepType(string(s.StepType)); err != nil {
		return err
	}
	if _, err := ParseStepStatus(string(s.Status)); err != nil {
		return err
	}
	if s.Status == "" {
		s.Status = StepPending
	}
	return nil
}
