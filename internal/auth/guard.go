package auth

import (
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/tenant"
)

// ErrCrossTenantAccess indicates a principal tried to authenticate against a
// clinic it does not belong to. It is surfaced to clients as a generic
// access-denied response; the detail stays in the server log.
var ErrCrossTenantAccess = errors.New("auth: cross-tenant access violation")

// Decision is the accepted outcome of an authorization attempt. It is the
// only state handed to token issuance and downstream request handling; after
// acceptance nothing re-reads the resolver's context.
type Decision struct {
	PrincipalID uuid.UUID
	Username    string
	Role        Role
	Tenant      *tenant.Tenant
	// Affiliation is the clinic the principal belongs to, nil for superusers.
	// Tokens carry the affiliation, not the tenant the login arrived on, so a
	// public-host login cannot mint an unaffiliated session.
	Affiliation *uuid.UUID
	// PublicLogin flags an authentication against the shared root schema.
	PublicLogin bool
}

// Guard enforces the tenant boundary at authentication time. Credential
// verification happens before the guard runs; the guard only compares the
// principal's affiliation to the request's resolved tenant.
type Guard struct {
	logger zerolog.Logger
}

func NewGuard(logger zerolog.Logger) *Guard {
	return &Guard{logger: logger}
}

// Authorize accepts or rejects a verified principal for the resolved tenant.
// Superusers are accepted anywhere. Logins against the public tenant are
// accepted with a warning, since platform administration is the only normal
// reason to authenticate there. Everyone else must belong to the resolved
// tenant exactly.
func (g *Guard) Authorize(p *Principal, resolved *tenant.Tenant) (*Decision, error) {
	d := &Decision{
		PrincipalID: p.ID,
		Username:    p.Username,
		Role:        p.Role,
		Tenant:      resolved,
		Affiliation: p.TenantID,
	}

	if p.IsSuperuser() {
		return d, nil
	}

	if resolved.IsPublic() {
		d.PublicLogin = true
		g.logger.Warn().
			Str("username", p.Username).
			Msg("login against the public schema")
		return d, nil
	}

	if p.TenantID == nil || *p.TenantID != resolved.ID {
		g.logger.Warn().
			Str("username", p.Username).
			Str("resolved_tenant", resolved.Slug).
			Msg("cross-tenant login blocked")
		return nil, ErrCrossTenantAccess
	}

	return d, nil
}
