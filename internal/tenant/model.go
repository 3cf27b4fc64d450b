package tenant

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the tenant lifecycle state.
type Status string

const (
	StatusProvisioning Status = "provisioning"
	StatusActive       Status = "active"
	StatusRetired      Status = "retired"
)

// PublicSchemaName is the shared root schema. It is provisioned out-of-band,
// never through tenant creation.
const PublicSchemaName = "public"

var slugPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Tenant is one isolated clinic account. SchemaName is the clinic's private
// Postgres schema; it is fixed at provisioning and never changes afterwards.
type Tenant struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Slug        string    `db:"slug" json:"slug"`
	SchemaName  string    `db:"schema_name" json:"schema_name"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Status      Status    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// IsPublic reports whether this is the shared root tenant.
func (t *Tenant) IsPublic() bool {
	return t.SchemaName == PublicSchemaName
}

// Live reports whether data operations may run against this tenant's schema.
// The public tenant is always live; clinic tenants must be active.
func (t *Tenant) Live() bool {
	return t.IsPublic() || t.Status == StatusActive
}

// Public returns the distinguished tenant representing the shared root
// schema. Requests whose hostname matches no binding operate here.
func Public() *Tenant {
	return &Tenant{
		Slug:        "public",
		SchemaName:  PublicSchemaName,
		DisplayName: "Platform",
		Status:      StatusActive,
	}
}

// SchemaForSlug derives a clinic's schema name from its slug, validating that
// the result is a safe Postgres identifier.
func SchemaForSlug(slug string) (string, error) {
	if slug == "" || !slugPattern.MatchString(slug) {
		return "", fmt.Errorf("invalid tenant slug %q: must match %s", slug, slugPattern.String())
	}
	return "clinic_" + slug, nil
}

// DomainBinding maps one hostname to one tenant. Hostnames are globally
// unique: two clinics can never claim the same domain.
type DomainBinding struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Hostname  string    `db:"hostname" json:"hostname"`
	TenantID  uuid.UUID `db:"tenant_id" json:"tenant_id"`
	IsPrimary bool      `db:"is_primary" json:"is_primary"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NormalizeHostname lowercases the host and strips any port suffix, matching
// how inbound Host headers are compared against bindings.
func NormalizeHostname(host string) string {
	host = strings.TrimSpace(strings.ToLower(host))
	// Strip :port, but leave IPv6 literals like [::1] intact.
	if i := strings.LastIndex(host, ":"); i != -1 && !strings.Contains(host[i:], "]") {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}
