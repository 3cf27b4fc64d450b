package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/tenant"
)

var testSigningKey = []byte("test-signing-key-0123456789abcdef")

func newTestIssuer(ttl time.Duration) *TokenIssuer {
	return NewTokenIssuer(testSigningKey, "clinicore-test", ttl)
}

func TestTokenRoundTrip_CarriesRoleAndTenant(t *testing.T) {
	atlas := clinicTenant("atlas")
	d := &Decision{
		PrincipalID: uuid.New(),
		Username:    "dr.amina",
		Role:        RoleDoctor,
		Tenant:      atlas,
		Affiliation: &atlas.ID,
	}

	issuer := newTestIssuer(time.Hour)
	token, err := issuer.Issue(d)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != d.PrincipalID.String() {
		t.Errorf("subject = %s, want %s", claims.Subject, d.PrincipalID)
	}
	if claims.Role != string(RoleDoctor) {
		t.Errorf("role = %s, want DOCTOR", claims.Role)
	}
	if claims.TenantID != atlas.ID.String() || claims.TenantSlug != "atlas" {
		t.Errorf("tenant claims wrong: id=%s slug=%s", claims.TenantID, claims.TenantSlug)
	}
}

func TestTokenIssue_PublicTenantOmitsTenantClaims(t *testing.T) {
	d := &Decision{
		PrincipalID: uuid.New(),
		Username:    "platform.ops",
		Role:        RoleSuperuser,
		Tenant:      tenant.Public(),
		PublicLogin: true,
	}

	issuer := newTestIssuer(time.Hour)
	token, err := issuer.Issue(d)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.TenantID != "" || claims.TenantSlug != "" {
		t.Errorf("public session must not carry tenant claims, got id=%q slug=%q", claims.TenantID, claims.TenantSlug)
	}
}

func TestTokenIssue_PublicLoginKeepsAffiliation(t *testing.T) {
	// An affiliated account logging in on the public host must not receive an
	// unaffiliated token; the affiliation claim follows the account, not the
	// host the login arrived on.
	atlas := clinicTenant("atlas")
	d := &Decision{
		PrincipalID: uuid.New(),
		Username:    "dr.amina",
		Role:        RoleDoctor,
		Tenant:      tenant.Public(),
		Affiliation: &atlas.ID,
		PublicLogin: true,
	}

	issuer := newTestIssuer(time.Hour)
	token, err := issuer.Issue(d)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.TenantID != atlas.ID.String() {
		t.Errorf("tenant claim = %q, want the account's affiliation %s", claims.TenantID, atlas.ID)
	}
	if claims.TenantSlug != "" {
		t.Errorf("public login must not carry a clinic slug, got %q", claims.TenantSlug)
	}
}

func TestTokenParse_RejectsExpired(t *testing.T) {
	d := &Decision{PrincipalID: uuid.New(), Username: "dr.amina", Role: RoleDoctor, Tenant: clinicTenant("atlas")}

	issuer := newTestIssuer(-time.Minute)
	token, err := issuer.Issue(d)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := issuer.Parse(token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestTokenParse_RejectsWrongKey(t *testing.T) {
	d := &Decision{PrincipalID: uuid.New(), Username: "dr.amina", Role: RoleDoctor, Tenant: clinicTenant("atlas")}

	token, err := newTestIssuer(time.Hour).Issue(d)
	if err != nil {
		t.Fatal(err)
	}

	other := NewTokenIssuer([]byte("another-signing-key-xxxxxxxxxxxx"), "clinicore-test", time.Hour)
	if _, err := other.Parse(token); err == nil {
		t.Error("expected token signed with a different key to be rejected")
	}
}

func TestTokenParse_RejectsWrongIssuer(t *testing.T) {
	d := &Decision{PrincipalID: uuid.New(), Username: "dr.amina", Role: RoleDoctor, Tenant: clinicTenant("atlas")}

	token, err := NewTokenIssuer(testSigningKey, "someone-else", time.Hour).Issue(d)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := newTestIssuer(time.Hour).Parse(token); err == nil {
		t.Error("expected token from a different issuer to be rejected")
	}
}
