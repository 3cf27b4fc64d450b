package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrUnknownTenant indicates a hostname has no binding or a tenant id
	// does not exist. Resolution treats it as a fallback signal, not a
	// failure.
	ErrUnknownTenant = errors.New("tenant: unknown tenant")

	// ErrHostnameTaken indicates another tenant already claims the hostname.
	ErrHostnameTaken = errors.New("tenant: hostname already bound")

	// ErrSlugTaken indicates the slug (and so the schema name) is in use.
	ErrSlugTaken = errors.New("tenant: slug already in use")
)

// Store is the persistence boundary for tenants and their domain bindings.
// All rows live in the public schema; implementations must qualify their
// queries explicitly instead of relying on the session search_path.
type Store interface {
	CreateTenant(ctx context.Context, t *Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error)
	ListTenants(ctx context.Context) ([]*Tenant, error)
	UpdateTenantStatus(ctx context.Context, id uuid.UUID, status Status) error
	DeleteTenant(ctx context.Context, id uuid.UUID) error

	BindDomain(ctx context.Context, b *DomainBinding) error
	UnbindDomain(ctx context.Context, hostname string) error
	GetBindingByHostname(ctx context.Context, hostname string) (*DomainBinding, error)
	ListBindings(ctx context.Context, tenantID uuid.UUID) ([]*DomainBinding, error)
}
