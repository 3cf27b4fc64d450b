package tenant

import (
	"context"
	"fmt"
	"sync"
)

// Directory resolves inbound hostnames to tenants. Lookups are point reads
// against the DomainBinding set, cached per hostname; provisioning operations
// must call Invalidate so a deleted clinic's hostname stops resolving within
// the same process immediately, not when a TTL expires.
type Directory struct {
	store Store

	mu    sync.RWMutex
	cache map[string]*Tenant
}

func NewDirectory(store Store) *Directory {
	return &Directory{
		store: store,
		cache: make(map[string]*Tenant),
	}
}

// Resolve maps a hostname to its tenant. The hostname is normalized before
// lookup. Returns ErrUnknownTenant when no binding exists; callers decide the
// fallback (the HTTP resolver falls back to the public tenant). Negative
// results are not cached, so a clinic bound moments later resolves at once.
func (d *Directory) Resolve(ctx context.Context, hostname string) (*Tenant, error) {
	host := NormalizeHostname(hostname)
	if host == "" {
		return nil, ErrUnknownTenant
	}

	d.mu.RLock()
	t, ok := d.cache[host]
	d.mu.RUnlock()
	if ok {
		cp := *t
		return &cp, nil
	}

	b, err := d.store.GetBindingByHostname(ctx, host)
	if err != nil {
		return nil, err
	}
	t, err = d.store.GetTenant(ctx, b.TenantID)
	if err != nil {
		return nil, fmt.Errorf("binding %s references missing tenant: %w", host, err)
	}

	d.mu.Lock()
	d.cache[host] = t
	d.mu.Unlock()

	cp := *t
	return &cp, nil
}

// Invalidate drops cached entries for the given hostnames.
func (d *Directory) Invalidate(hostnames ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, h := range hostnames {
		delete(d.cache, NormalizeHostname(h))
	}
}

// InvalidateTenant drops every cached entry pointing at the given tenant.
// Used on status changes (retire, destroy) where the set of bound hostnames
// may not be at hand.
func (d *Directory) InvalidateTenant(t *Tenant) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for host, cached := range d.cache {
		if cached.ID == t.ID {
			delete(d.cache, host)
		}
	}
}

// InvalidateAll empties the cache.
func (d *Directory) InvalidateAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache = make(map[string]*Tenant)
}
