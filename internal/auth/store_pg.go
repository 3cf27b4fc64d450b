package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type userStorePG struct {
	pool *pgxpool.Pool
}

func NewUserStorePG(pool *pgxpool.Pool) UserStore {
	return &userStorePG{pool: pool}
}

const userCols = `id, username, password_hash, first_name, last_name, role, tenant_id, created_at`

func scanPrincipal(row pgx.Row) (*Principal, error) {
	var p Principal
	err := row.Scan(&p.ID, &p.Username, &p.PasswordHash, &p.FirstName, &p.LastName, &p.Role, &p.TenantID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *userStorePG) Create(ctx context.Context, p *Principal) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO public.users (id, username, password_hash, first_name, last_name, role, tenant_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Username, p.PasswordHash, p.FirstName, p.LastName, p.Role, p.TenantID)
	return err
}

func (s *userStorePG) GetByUsername(ctx context.Context, username string) (*Principal, error) {
	return scanPrincipal(s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM public.users WHERE username = $1`, username))
}

func (s *userStorePG) GetByID(ctx context.Context, id uuid.UUID) (*Principal, error) {
	return scanPrincipal(s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM public.users WHERE id = $1`, id))
}

func (s *userStorePG) ListByTenant(ctx context.Context, tenantID uuid.UUID, role Role) ([]*Principal, error) {
	query := `SELECT ` + userCols + ` FROM public.users WHERE tenant_id = $1`
	args := []interface{}{tenantID}
	if role != "" {
		query += ` AND role = $2`
		args = append(args, role)
	}
	query += ` ORDER BY username`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, p)
	}
	return users, rows.Err()
}

func (s *userStorePG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM public.users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
