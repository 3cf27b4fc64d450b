package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUserNotFound indicates no principal matches the lookup.
var ErrUserNotFound = errors.New("auth: user not found")

// UserStore is the persistence boundary for principals. Accounts live in the
// public schema so credentials can be checked before any tenant schema is
// entered; implementations qualify their queries explicitly.
type UserStore interface {
	Create(ctx context.Context, p *Principal) error
	GetByUsername(ctx context.Context, username string) (*Principal, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Principal, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, role Role) ([]*Principal, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
