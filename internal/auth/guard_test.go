package auth

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/tenant"
)

func clinicTenant(slug string) *tenant.Tenant {
	return &tenant.Tenant{
		ID:         uuid.New(),
		Slug:       slug,
		SchemaName: "clinic_" + slug,
		Status:     tenant.StatusActive,
	}
}

func affiliated(username string, t *tenant.Tenant, role Role) *Principal {
	tid := t.ID
	return &Principal{
		ID:       uuid.New(),
		Username: username,
		Role:     role,
		TenantID: &tid,
	}
}

func TestAuthorize_MatchingTenantAccepted(t *testing.T) {
	atlas := clinicTenant("atlas")
	p := affiliated("dr.amina", atlas, RoleDoctor)

	d, err := NewGuard(zerolog.Nop()).Authorize(p, atlas)
	if err != nil {
		t.Fatalf("expected accept, got %v", err)
	}
	if d.PrincipalID != p.ID || d.Role != RoleDoctor || d.Tenant.ID != atlas.ID {
		t.Errorf("decision carries wrong identity: %+v", d)
	}
	if d.PublicLogin {
		t.Error("clinic login must not be flagged as public")
	}
}

func TestAuthorize_CrossTenantRejected(t *testing.T) {
	// Request resolved to atlas; the account belongs to mansour.
	atlas := clinicTenant("atlas")
	mansour := clinicTenant("mansour")
	p := affiliated("dr.youssef", mansour, RoleDoctor)

	d, err := NewGuard(zerolog.Nop()).Authorize(p, atlas)
	if !errors.Is(err, ErrCrossTenantAccess) {
		t.Fatalf("expected ErrCrossTenantAccess, got %v", err)
	}
	if d != nil {
		t.Error("rejected attempt must not produce a decision")
	}
}

func TestAuthorize_SuperuserAcceptedAnywhere(t *testing.T) {
	su := &Principal{ID: uuid.New(), Username: "platform.ops", Role: RoleSuperuser}

	for _, resolved := range []*tenant.Tenant{clinicTenant("atlas"), clinicTenant("mansour"), tenant.Public()} {
		d, err := NewGuard(zerolog.Nop()).Authorize(su, resolved)
		if err != nil {
			t.Errorf("superuser rejected for %s: %v", resolved.Slug, err)
			continue
		}
		if d.Role != RoleSuperuser {
			t.Errorf("decision lost the superuser role: %+v", d)
		}
	}
}

func TestAuthorize_PublicTenantAcceptedWithWarning(t *testing.T) {
	atlas := clinicTenant("atlas")
	p := affiliated("dr.amina", atlas, RoleAdmin)

	d, err := NewGuard(zerolog.Nop()).Authorize(p, tenant.Public())
	if err != nil {
		t.Fatalf("public login should be accepted: %v", err)
	}
	if !d.PublicLogin {
		t.Error("public login must be flagged for observability")
	}
	if d.Affiliation == nil || *d.Affiliation != atlas.ID {
		t.Errorf("decision dropped the account's affiliation: %v", d.Affiliation)
	}
}

func TestAuthorize_NilAffiliationRejectedForClinic(t *testing.T) {
	// A non-superuser with no affiliation must never enter a clinic.
	p := &Principal{ID: uuid.New(), Username: "orphan", Role: RoleAssistant}

	_, err := NewGuard(zerolog.Nop()).Authorize(p, clinicTenant("atlas"))
	if !errors.Is(err, ErrCrossTenantAccess) {
		t.Errorf("expected ErrCrossTenantAccess, got %v", err)
	}
}
