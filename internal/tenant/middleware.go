package tenant

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/platform/db"
)

// ResolveMiddleware turns the inbound Host header into a resolved tenant and
// binds it to the request context. Unmatched hostnames fall back to the
// public tenant; only a directory read failure is surfaced as an error.
func ResolveMiddleware(dir *Directory, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			host := NormalizeHostname(c.Request().Host)

			t, err := dir.Resolve(c.Request().Context(), host)
			switch {
			case errors.Is(err, ErrUnknownTenant):
				t = Public()
			case err != nil:
				logger.Error().Err(err).Str("host", host).Msg("tenant resolution failed")
				return echo.NewHTTPError(http.StatusServiceUnavailable, "tenant resolution unavailable")
			}

			ctx := WithTenant(c.Request().Context(), t)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// SchemaAcquirer hands out schema-pinned connections. *db.ScopeManager is
// the production implementation.
type SchemaAcquirer interface {
	Acquire(ctx context.Context, schema string) (db.Scope, error)
}

// ScopeMiddleware acquires a connection pinned to the resolved tenant's
// schema for the duration of the request and guarantees its release on every
// exit path. A missing or retired schema aborts the request; there is no
// fallback to another clinic's data.
func ScopeMiddleware(mgr SchemaAcquirer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			t := FromContext(c.Request().Context())
			if t == nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "tenant not resolved")
			}
			if !t.Live() {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "clinic unavailable")
			}

			sc, err := mgr.Acquire(c.Request().Context(), t.SchemaName)
			if errors.Is(err, db.ErrSchemaUnavailable) {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "clinic unavailable")
			}
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
			defer sc.Release()

			ctx := db.WithScope(c.Request().Context(), sc)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
