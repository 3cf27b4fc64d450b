package auth

import (
	"testing"

	"github.com/google/uuid"
)

func TestParseRole(t *testing.T) {
	for _, s := range []string{"DOCTOR", "ASSISTANT", "ADMIN", "SUPERUSER"} {
		if _, err := ParseRole(s); err != nil {
			t.Errorf("ParseRole(%q): %v", s, err)
		}
	}
	for _, s := range []string{"", "doctor", "ROOT", "NURSE"} {
		if _, err := ParseRole(s); err == nil {
			t.Errorf("ParseRole(%q) should fail", s)
		}
	}
}

func TestPrincipalValidate(t *testing.T) {
	tid := uuid.New()

	ok := []Principal{
		{Username: "dr.amina", Role: RoleDoctor, TenantID: &tid},
		{Username: "platform.ops", Role: RoleSuperuser},
	}
	for _, p := range ok {
		if err := p.Validate(); err != nil {
			t.Errorf("%s: unexpected error %v", p.Username, err)
		}
	}

	bad := []Principal{
		{Username: "", Role: RoleDoctor, TenantID: &tid},
		{Username: "x", Role: "NURSE", TenantID: &tid},
		{Username: "unaffiliated", Role: RoleDoctor},
		{Username: "affiliated.super", Role: RoleSuperuser, TenantID: &tid},
	}
	for _, p := range bad {
		if err := p.Validate(); err == nil {
			t.Errorf("%q/%s: expected validation error", p.Username, p.Role)
		}
	}
}

func TestFullName(t *testing.T) {
	p := Principal{FirstName: "Amina", LastName: "Berrada"}
	if p.FullName() != "Amina Berrada" {
		t.Errorf("got %q", p.FullName())
	}
	if (&Principal{FirstName: "Amina"}).FullName() != "Amina" {
		t.Error("single first name should stand alone")
	}
	if (&Principal{LastName: "Berrada"}).FullName() != "Berrada" {
		t.Error("single last name should stand alone")
	}
}
