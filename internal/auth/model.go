package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of principal roles. Role checks switch exhaustively
// on these values; there is no ad hoc string comparison elsewhere.
type Role string

const (
	RoleDoctor    Role = "DOCTOR"
	RoleAssistant Role = "ASSISTANT"
	RoleAdmin     Role = "ADMIN"
	// RoleSuperuser is platform staff with no clinic affiliation.
	RoleSuperuser Role = "SUPERUSER"
)

// ParseRole validates a stored or submitted role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleDoctor, RoleAssistant, RoleAdmin, RoleSuperuser:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Valid reports whether r is one of the closed role set.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Principal is an authenticated user. TenantID is the clinic the account
// belongs to; it is nil only for superusers and is set at creation, never by
// the account itself.
type Principal struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	Role         Role       `db:"role" json:"role"`
	TenantID     *uuid.UUID `db:"tenant_id" json:"tenant_id,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// IsSuperuser reports whether the principal is platform staff.
func (p *Principal) IsSuperuser() bool {
	return p.Role == RoleSuperuser
}

// FullName joins first and last name for display.
func (p *Principal) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// Validate checks the principal invariants before persistence.
func (p *Principal) Validate() error {
	if p.Username == "" {
		return fmt.Errorf("username is required")
	}
	if !p.Role.Valid() {
		return fmt.Errorf("unknown role %q", p.Role)
	}
	if p.Role != RoleSuperuser && p.TenantID == nil {
		return fmt.Errorf("non-superuser principal requires a tenant affiliation")
	}
	if p.Role == RoleSuperuser && p.TenantID != nil {
		return fmt.Errorf("superuser principal must not carry a tenant affiliation")
	}
	return nil
}
