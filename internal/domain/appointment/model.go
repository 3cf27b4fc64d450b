package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status enumerates appointment lifecycle states.
type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
	StatusNoShow    Status = "NoShow"
)

// ParseStatus validates a status value. Empty defaults to Scheduled.
func ParseStatus(v string) (Status, error) {
	switch Status(v) {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return Status(v), nil
	case "":
		return StatusScheduled, nil
	}
	return "", fmt.Errorf("invalid appointment status %q", v)
}

const defaultCategoryColor = "#0077BE"

// Appointment is a scheduled visit. DoctorID references the public-schema
// user table; everything else lives in the clinic schema.
type Appointment struct {
	ID            uuid.UUID `json:"id"`
	PatientID     uuid.UUID `json:"patient_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	Subject       string    `json:"subject"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Description   string    `json:"description,omitempty"`
	Status        Status    `json:"status"`
	CategoryColor string    `json:"category_color"`
	ToothNumber   *int      `json:"tooth_number,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Validate checks the writable fields of an appointment.
func (a *Appointment) Validate() error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if a.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	if a.StartTime.IsZero() || a.EndTime.IsZero() {
		return fmt.Errorf("start_time and end_time are required")
	}
	if !a.EndTime.After(a.StartTime) {
		return fmt.Errorf("end_time must be after start_time")
	}
	if _, err := ParseStatus(string(a.Status)); err != nil {
		return err
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if a.CategoryColor == "" {
		a.CategoryColor = defaultCategoryColor
	}
	if a.ToothNumber != nil && (*a.ToothNumber < 11 || *a.ToothNumber > 85) {
		return fmt.Errorf("tooth_number %d is not valid FDI notation", *a.ToothNumber)
	}
	return nil
}
