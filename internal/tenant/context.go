package tenant

import "context"

type contextKey string

const tenantKey contextKey = "resolved_tenant"

// WithTenant binds the resolved tenant to the request context. Each request
// carries its own value; there is no shared "current tenant" slot anywhere.
func WithTenant(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, tenantKey, t)
}

// FromContext returns the request's resolved tenant, or nil when resolution
// has not run.
func FromContext(ctx context.Context) *Tenant {
	t, _ := ctx.Value(tenantKey).(*Tenant)
	return t
}
