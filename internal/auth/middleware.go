package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/tenant"
)

type contextKey string

const sessionKey contextKey = "session"

// Session is the authenticated identity carried through request handling,
// decoded from the bearer token.
type Session struct {
	PrincipalID uuid.UUID
	Username    string
	Role        Role
	TenantID    *uuid.UUID
}

// IsSuperuser reports whether the session belongs to platform staff.
func (s *Session) IsSuperuser() bool {
	return s.Role == RoleSuperuser
}

// WithSession binds the session to the context.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the request's session, or nil when the request
// is unauthenticated.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}

// Middleware validates the bearer token, binds the decoded session to the
// request context, and pins the session to the request's resolved tenant: a
// clinic-affiliated token is honored only on that clinic's own hostname, so
// a token minted at one clinic cannot be replayed against another. Superusers
// pass everywhere. Rejections are a generic denial; the response never
// reveals which clinic the account belongs to.
func Middleware(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := issuer.Parse(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			principalID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
			}
			role, err := ParseRole(claims.Role)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token role")
			}

			session := &Session{
				PrincipalID: principalID,
				Username:    claims.Username,
				Role:        role,
			}
			if claims.TenantID != "" {
				tid, err := uuid.Parse(claims.TenantID)
				if err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token tenant")
				}
				session.TenantID = &tid
			}

			if !session.IsSuperuser() {
				resolved := tenant.FromContext(c.Request().Context())
				if session.TenantID != nil {
					if resolved == nil || resolved.ID != *session.TenantID {
						return echo.NewHTTPError(http.StatusUnauthorized, "access denied")
					}
				} else if resolved != nil && !resolved.IsPublic() {
					// Unaffiliated non-superuser sessions exist only for
					// public-host logins and never reach a clinic host.
					return echo.NewHTTPError(http.StatusUnauthorized, "access denied")
				}
			}

			ctx := WithSession(c.Request().Context(), session)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RequireRoles allows only sessions whose role is in the given set.
// Superusers always pass.
func RequireRoles(roles ...Role) echo.MiddlewareFunc {
	allowed := make(map[Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := SessionFromContext(c.Request().Context())
			if s == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if s.IsSuperuser() || allowed[s.Role] {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
		}
	}
}
