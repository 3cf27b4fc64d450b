package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// storePG persists tenants and domain bindings in the public schema. Every
// query names public.<table> explicitly so lookups stay correct no matter
// what search_path the pooled session last carried.
type storePG struct {
	pool *pgxpool.Pool
}

func NewStorePG(pool *pgxpool.Pool) Store {
	return &storePG{pool: pool}
}

const tenantCols = `id, slug, schema_name, display_name, status, created_at`

func scanTenant(row pgx.Row) (*Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Slug, &t.SchemaName, &t.DisplayName, &t.Status, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUnknownTenant
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *storePG) CreateTenant(ctx context.Context, t *Tenant) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO public.tenants (id, slug, schema_name, display_name, status)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.Slug, t.SchemaName, t.DisplayName, t.Status)
	if isUniqueViolation(err) {
		return ErrSlugTaken
	}
	return err
}

func (s *storePG) GetTenant(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	return scanTenant(s.pool.QueryRow(ctx,
		`SELECT `+tenantCols+` FROM public.tenants WHERE id = $1`, id))
}

func (s *storePG) GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error) {
	return scanTenant(s.pool.QueryRow(ctx,
		`SELECT `+tenantCols+` FROM public.tenants WHERE slug = $1`, slug))
}

func (s *storePG) ListTenants(ctx context.Context) ([]*Tenant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tenantCols+` FROM public.tenants ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []*Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (s *storePG) UpdateTenantStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE public.tenants SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUnknownTenant
	}
	return nil
}

func (s *storePG) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	// Bindings cascade via FK.
	tag, err := s.pool.Exec(ctx, `DELETE FROM public.tenants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUnknownTenant
	}
	return nil
}

func (s *storePG) BindDomain(ctx context.Context, b *DomainBinding) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.Hostname = NormalizeHostname(b.Hostname)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO public.domain_bindings (id, hostname, tenant_id, is_primary)
		VALUES ($1, $2, $3, $4)`,
		b.ID, b.Hostname, b.TenantID, b.IsPrimary)
	if isUniqueViolation(err) {
		return ErrHostnameTaken
	}
	return err
}

func (s *storePG) UnbindDomain(ctx context.Context, hostname string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM public.domain_bindings WHERE hostname = $1`,
		NormalizeHostname(hostname))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUnknownTenant
	}
	return nil
}

func (s *storePG) GetBindingByHostname(ctx context.Context, hostname string) (*DomainBinding, error) {
	var b DomainBinding
	err := s.pool.QueryRow(ctx, `
		SELECT id, hostname, tenant_id, is_primary, created_at
		FROM public.domain_bindings WHERE hostname = $1`,
		NormalizeHostname(hostname),
	).Scan(&b.ID, &b.Hostname, &b.TenantID, &b.IsPrimary, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUnknownTenant
	}
	if err != nil {
		return nil, fmt.Errorf("lookup binding %s: %w", hostname, err)
	}
	return &b, nil
}

func (s *storePG) ListBindings(ctx context.Context, tenantID uuid.UUID) ([]*DomainBinding, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, hostname, tenant_id, is_primary, created_at
		FROM public.domain_bindings WHERE tenant_id = $1 ORDER BY is_primary DESC, hostname`,
		tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bindings []*DomainBinding
	for rows.Next() {
		var b DomainBinding
		if err := rows.Scan(&b.ID, &b.Hostname, &b.TenantID, &b.IsPrimary, &b.CreatedAt); err != nil {
			return nil, err
		}
		bindings = append(bindings, &b)
	}
	return bindings, rows.Err()
}

// isUniqueViolation reports whether err is a Postgres unique_violation
// (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
