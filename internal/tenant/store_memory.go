package tenant

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// storeMemory is an in-memory Store used by tests and local development.
type storeMemory struct {
	mu       sync.RWMutex
	tenants  map[uuid.UUID]*Tenant
	bindings map[string]*DomainBinding
}

func NewStoreMemory() Store {
	return &storeMemory{
		tenants:  make(map[uuid.UUID]*Tenant),
		bindings: make(map[string]*DomainBinding),
	}
}

func (s *storeMemory) CreateTenant(_ context.Context, t *Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tenants {
		if existing.Slug == t.Slug {
			return ErrSlugTaken
		}
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	cp := *t
	s.tenants[t.ID] = &cp
	return nil
}

func (s *storeMemory) GetTenant(_ context.Context, id uuid.UUID) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, ErrUnknownTenant
	}
	cp := *t
	return &cp, nil
}

func (s *storeMemory) GetTenantBySlug(_ context.Context, slug string) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tenants {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrUnknownTenant
}

func (s *storeMemory) ListTenants(_ context.Context) ([]*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Tenant
	for _, t := range s.tenants {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (s *storeMemory) UpdateTenantStatus(_ context.Context, id uuid.UUID, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return ErrUnknownTenant
	}
	t.Status = status
	return nil
}

func (s *storeMemory) DeleteTenant(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[id]; !ok {
		return ErrUnknownTenant
	}
	delete(s.tenants, id)
	for host, b := range s.bindings {
		if b.TenantID == id {
			delete(s.bindings, host)
		}
	}
	return nil
}

func (s *storeMemory) BindDomain(_ context.Context, b *DomainBinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	host := NormalizeHostname(b.Hostname)
	if _, ok := s.bindings[host]; ok {
		return ErrHostnameTaken
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	b.Hostname = host
	cp := *b
	s.bindings[host] = &cp
	return nil
}

func (s *storeMemory) UnbindDomain(_ context.Context, hostname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	host := NormalizeHostname(hostname)
	if _, ok := s.bindings[host]; !ok {
		return ErrUnknownTenant
	}
	delete(s.bindings, host)
	return nil
}

func (s *storeMemory) GetBindingByHostname(_ context.Context, hostname string) (*DomainBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bindings[NormalizeHostname(hostname)]
	if !ok {
		return nil, ErrUnknownTenant
	}
	cp := *b
	return &cp, nil
}

func (s *storeMemory) ListBindings(_ context.Context, tenantID uuid.UUID) ([]*DomainBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*DomainBinding
	for _, b := range s.bindings {
		if b.TenantID == tenantID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}
