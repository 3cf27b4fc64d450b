package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// userStoreMemory is an in-memory UserStore for tests and local development.
type userStoreMemory struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*Principal
}

func NewUserStoreMemory() UserStore {
	return &userStoreMemory{users: make(map[uuid.UUID]*Principal)}
}

func (s *userStoreMemory) Create(_ context.Context, p *Principal) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == p.Username {
			return fmt.Errorf("username %q already exists", p.Username)
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	cp := *p
	s.users[p.ID] = &cp
	return nil
}

func (s *userStoreMemory) GetByUsername(_ context.Context, username string) (*Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.users {
		if p.Username == username {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *userStoreMemory) GetByID(_ context.Context, id uuid.UUID) (*Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *userStoreMemory) ListByTenant(_ context.Context, tenantID uuid.UUID, role Role) ([]*Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Principal
	for _, p := range s.users {
		if p.TenantID == nil || *p.TenantID != tenantID {
			continue
		}
		if role != "" && p.Role != role {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (s *userStoreMemory) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}
