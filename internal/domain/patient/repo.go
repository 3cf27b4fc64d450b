package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no patient matches the lookup.
var ErrNotFound = errors.New("patient not found")

// Repository is the patient persistence interface. Implementations operate
// against the clinic schema bound to the request context.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	SearchByCIN(ctx context.Context, cin string) ([]*Patient, error)
	SearchByPhone(ctx context.Context, phone string) ([]*Patient, error)
}
