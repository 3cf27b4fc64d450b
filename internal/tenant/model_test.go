package tenant

import "testing"

func TestNormalizeHostname(t *testing.T) {
	cases := map[string]string{
		"atlas.example":          "atlas.example",
		"Atlas.Example":          "atlas.example",
		"atlas.example:8000":     "atlas.example",
		" atlas.example ":        "atlas.example",
		"ATLAS.EXAMPLE:443":      "atlas.example",
		"[::1]":                  "::1",
		"localhost":              "localhost",
		"localhost:3000":         "localhost",
	}
	for in, want := range cases {
		if got := NormalizeHostname(in); got != want {
			t.Errorf("NormalizeHostname(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSchemaForSlug(t *testing.T) {
	schema, err := SchemaForSlug("atlas")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if schema != "clinic_atlas" {
		t.Errorf("got %q, want clinic_atlas", schema)
	}

	for _, bad := range []string{"", "Atlas", "at-las", "at las", "at.las", `x";DROP`} {
		if _, err := SchemaForSlug(bad); err == nil {
			t.Errorf("expected error for slug %q", bad)
		}
	}
}

func TestTenantLive(t *testing.T) {
	active := &Tenant{SchemaName: "clinic_atlas", Status: StatusActive}
	if !active.Live() {
		t.Error("active tenant should be live")
	}

	retired := &Tenant{SchemaName: "clinic_atlas", Status: StatusRetired}
	if retired.Live() {
		t.Error("retired tenant should not be live")
	}

	provisioning := &Tenant{SchemaName: "clinic_atlas", Status: StatusProvisioning}
	if provisioning.Live() {
		t.Error("provisioning tenant should not be live yet")
	}

	if !Public().Live() {
		t.Error("public tenant is always live")
	}
	if !Public().IsPublic() {
		t.Error("Public() should report IsPublic")
	}
}
