package tenant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/platform/db"
)

// provisionLockID keys the pg advisory lock serializing provisioning
// operations. Concurrent tenant creations must not race on hostname or
// schema claims; ordinary resolutions are unaffected.
const provisionLockID = 0x636c696e

// Service owns tenant provisioning and deprovisioning. It is the only writer
// of the tenant directory's underlying data; every mutation invalidates the
// directory cache so stale bindings never serve another request.
type Service struct {
	store         Store
	dir           *Directory
	pool          *pgxpool.Pool
	migrationsDir string
	logger        zerolog.Logger
}

func NewService(store Store, dir *Directory, pool *pgxpool.Pool, migrationsDir string, logger zerolog.Logger) *Service {
	return &Service{
		store:         store,
		dir:           dir,
		pool:          pool,
		migrationsDir: migrationsDir,
		logger:        logger,
	}
}

// withProvisionLock runs fn while holding the cluster-wide provisioning
// advisory lock on a dedicated session.
func (s *Service) withProvisionLock(ctx context.Context, fn func(ctx context.Context) error) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire provisioning connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", provisionLockID); err != nil {
		return fmt.Errorf("acquire provisioning lock: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", provisionLockID)
	}()

	return fn(ctx)
}

// CreateClinic provisions a new tenant: directory row, domain binding,
// private schema, and tenant migrations. The tenant stays in provisioning
// status until its schema is ready, so the resolver never routes requests to
// a half-built clinic.
func (s *Service) CreateClinic(ctx context.Context, slug, displayName, hostname string) (*Tenant, error) {
	schema, err := SchemaForSlug(slug)
	if err != nil {
		return nil, err
	}
	if hostname != "" && NormalizeHostname(hostname) == "" {
		return nil, fmt.Errorf("invalid hostname %q", hostname)
	}

	t := &Tenant{
		ID:          uuid.New(),
		Slug:        slug,
		SchemaName:  schema,
		DisplayName: displayName,
		Status:      StatusProvisioning,
	}

	err = s.withProvisionLock(ctx, func(ctx context.Context) error {
		if err := s.store.CreateTenant(ctx, t); err != nil {
			return err
		}

		if hostname != "" {
			b := &DomainBinding{Hostname: hostname, TenantID: t.ID, IsPrimary: true}
			if err := s.store.BindDomain(ctx, b); err != nil {
				_ = s.store.DeleteTenant(ctx, t.ID)
				return err
			}
		}

		if _, err := s.pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)); err != nil {
			return fmt.Errorf("create schema %s: %w", schema, err)
		}

		if s.migrationsDir != "" {
			migrator := db.NewMigrator(s.pool, s.migrationsDir)
			if _, err := migrator.Up(ctx, schema); err != nil {
				return fmt.Errorf("run migrations for %s: %w", schema, err)
			}
		}

		return s.store.UpdateTenantStatus(ctx, t.ID, StatusActive)
	})
	if err != nil {
		return nil, err
	}

	t.Status = StatusActive
	s.dir.Invalidate(hostname)
	s.logger.Info().Str("slug", slug).Str("schema", schema).Str("hostname", hostname).Msg("clinic provisioned")
	return t, nil
}

// BindDomain attaches an additional hostname to an existing tenant.
func (s *Service) BindDomain(ctx context.Context, tenantID uuid.UUID, hostname string, primary bool) error {
	return s.withProvisionLock(ctx, func(ctx context.Context) error {
		if _, err := s.store.GetTenant(ctx, tenantID); err != nil {
			return err
		}
		b := &DomainBinding{Hostname: hostname, TenantID: tenantID, IsPrimary: primary}
		if err := s.store.BindDomain(ctx, b); err != nil {
			return err
		}
		s.dir.Invalidate(hostname)
		return nil
	})
}

// UnbindDomain removes a hostname binding and drops it from the directory
// cache immediately.
func (s *Service) UnbindDomain(ctx context.Context, hostname string) error {
	if err := s.store.UnbindDomain(ctx, hostname); err != nil {
		return err
	}
	s.dir.Invalidate(hostname)
	return nil
}

// Retire marks a tenant retired. Its schema stays in place but scope
// acquisition refuses it from the next request onward.
func (s *Service) Retire(ctx context.Context, id uuid.UUID) error {
	t, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.UpdateTenantStatus(ctx, id, StatusRetired); err != nil {
		return err
	}
	s.dir.InvalidateTenant(t)
	s.logger.Info().Str("slug", t.Slug).Msg("clinic retired")
	return nil
}

// Destroy removes a tenant entirely: directory rows, bindings, and the
// private schema with everything in it.
func (s *Service) Destroy(ctx context.Context, id uuid.UUID) error {
	t, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return err
	}
	if t.IsPublic() {
		return fmt.Errorf("refusing to destroy the public tenant")
	}

	return s.withProvisionLock(ctx, func(ctx context.Context) error {
		if err := s.store.DeleteTenant(ctx, id); err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", t.SchemaName)); err != nil {
			return fmt.Errorf("drop schema %s: %w", t.SchemaName, err)
		}
		s.dir.InvalidateTenant(t)
		s.logger.Info().Str("slug", t.Slug).Str("schema", t.SchemaName).Msg("clinic destroyed")
		return nil
	})
}
