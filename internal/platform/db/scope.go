package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSchemaUnavailable indicates the tenant's schema does not exist or the
// tenant is no longer live. Operations must abort on it; there is no fallback
// to another schema.
var ErrSchemaUnavailable = errors.New("db: tenant schema unavailable")

var schemaNamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// ValidSchemaName reports whether s is safe to interpolate as a Postgres
// schema identifier. Schema names come from tenant provisioning, never from
// request input, but the check still runs on every acquisition.
func ValidSchemaName(s string) bool {
	return s != "" && schemaNamePattern.MatchString(s)
}

// Querier is the subset of pgx operations repositories need. *pgxpool.Pool,
// *pgxpool.Conn, pgx.Tx and *ScopedConn all satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// Scope is a connection pinned to one tenant's schema for the lifetime of a
// request. *ScopedConn is the production implementation; tests substitute
// their own.
type Scope interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
	Schema() string
	Release()
}

// ScopedConn is a pooled connection pinned to one tenant's schema for the
// lifetime of a request. The search_path is set once at acquisition on this
// private connection, so concurrent requests for different tenants can never
// observe each other's schema. Release must run on every exit path.
type ScopedConn struct {
	conn   *pgxpool.Conn
	schema string
}

func (s *ScopedConn) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return s.conn.Query(ctx, sql, args...)
}

func (s *ScopedConn) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return s.conn.QueryRow(ctx, sql, args...)
}

func (s *ScopedConn) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return s.conn.Exec(ctx, sql, args...)
}

func (s *ScopedConn) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.conn.Begin(ctx)
}

// Schema returns the schema this connection is pinned to.
func (s *ScopedConn) Schema() string { return s.schema }

// Release resets the search_path and returns the connection to the pool.
// The reset uses a background context so a cancelled request still cannot
// leak a tenant-scoped connection back into the pool.
func (s *ScopedConn) Release() {
	if s.conn == nil {
		return
	}
	_, _ = s.conn.Exec(context.Background(), "SET search_path TO public")
	s.conn.Release()
	s.conn = nil
}

// ScopeManager hands out schema-scoped connections. It holds no per-request
// state; every acquisition validates the schema and pins a fresh connection.
type ScopeManager struct {
	pool *pgxpool.Pool
}

func NewScopeManager(pool *pgxpool.Pool) *ScopeManager {
	return &ScopeManager{pool: pool}
}

// Acquire pins a pooled connection to the given schema. It fails with
// ErrSchemaUnavailable when the schema does not exist, so a request for a
// deprovisioned tenant aborts instead of silently reading another schema.
func (m *ScopeManager) Acquire(ctx context.Context, schema string) (Scope, error) {
	if !ValidSchemaName(schema) {
		return nil, fmt.Errorf("%w: invalid schema name %q", ErrSchemaUnavailable, schema)
	}

	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	var exists bool
	err = conn.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)",
		schema,
	).Scan(&exists)
	if err != nil {
		conn.Release()
		return nil, fmt.Errorf("check schema %s: %w", schema, err)
	}
	if !exists {
		conn.Release()
		return nil, fmt.Errorf("%w: schema %s does not exist", ErrSchemaUnavailable, schema)
	}

	if _, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s, public", schema)); err != nil {
		conn.Release()
		return nil, fmt.Errorf("set search_path to %s: %w", schema, err)
	}

	return &ScopedConn{conn: conn, schema: schema}, nil
}

type contextKey string

const scopedConnKey contextKey = "scoped_conn"

// WithScope stores the scoped connection in the context for repositories.
func WithScope(ctx context.Context, sc Scope) context.Context {
	return context.WithValue(ctx, scopedConnKey, sc)
}

// ScopeFromContext retrieves the request's scoped connection, or nil.
func ScopeFromContext(ctx context.Context) Scope {
	sc, _ := ctx.Value(scopedConnKey).(Scope)
	return sc
}
