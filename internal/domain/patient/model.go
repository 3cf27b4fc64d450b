package patient

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InsuranceType enumerates the coverage schemes patients register under.
type InsuranceType string

const (
	InsuranceAMO         InsuranceType = "AMO"
	InsuranceMutuelle    InsuranceType = "MUTUELLE"
	InsuranceMutuelleFAR InsuranceType = "MUTUELLE_FAR"
	InsuranceNone        InsuranceType = "NONE"
)

// ParseInsuranceType validates an insurance type value.
func ParseInsuranceType(v string) (InsuranceType, error) {
	switch InsuranceType(v) {
	case InsuranceAMO, InsuranceMutuelle, InsuranceMutuelleFAR, InsuranceNone:
		return InsuranceType(v), nil
	case "":
		return InsuranceNone, nil
	}
	return "", fmt.Errorf("invalid insurance type %q", v)
}

// Patient is a clinic patient record. CIN (national identity number), phone
// and insurance id never reach the database in plaintext: the repository
// stores a ciphertext plus a deterministic search token for each, and this
// struct carries the decrypted values only in memory.
type Patient struct {
	ID            uuid.UUID     `json:"id"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	CIN           string        `json:"cin,omitempty"`
	Phone         string        `json:"phone,omitempty"`
	InsuranceType InsuranceType `json:"insurance_type"`
	InsuranceID   string        `json:"insurance_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// FullName returns the patient's display name.
func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Validate checks the writable fields of a patient record.
func (p *Patient) Validate() error {
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if _, err := ParseInsuranceType(string(p.InsuranceType)); err != nil {
		return err
	}
	if p.InsuranceType == "" {
		p.InsuranceType = InsuranceNone
	}
	return nil
}
