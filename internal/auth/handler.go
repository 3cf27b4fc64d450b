package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicore/clinicore/internal/tenant"
)

// Handler exposes the authentication endpoints.
type Handler struct {
	users  UserStore
	guard  *Guard
	issuer *TokenIssuer
}

func NewHandler(users UserStore, guard *Guard, issuer *TokenIssuer) *Handler {
	return &Handler{users: users, guard: guard, issuer: issuer}
}

// RegisterRoutes wires the public login endpoint and the authenticated
// session endpoints.
func (h *Handler) RegisterRoutes(e *echo.Echo, api *echo.Group) {
	e.POST("/auth/login", h.Login)
	api.GET("/auth/me", h.Me)
	api.GET("/users", h.ListUsers, RequireRoles(RoleAdmin))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token      string `json:"token"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	TenantSlug string `json:"clinic,omitempty"`
}

// Login verifies credentials against the shared user table, runs the
// cross-tenant guard against the request's resolved tenant, and issues a
// session token. Every failure mode returns the same generic denial so the
// response does not reveal whether an account exists in another clinic.
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	denied := echo.NewHTTPError(http.StatusUnauthorized, "access denied")

	p, err := h.users.GetByUsername(c.Request().Context(), req.Username)
	if errors.Is(err, ErrUserNotFound) {
		// Burn comparable time so the response does not distinguish unknown
		// accounts from wrong passwords.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva"), []byte(req.Password))
		return denied
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "login unavailable")
	}

	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(req.Password)) != nil {
		return denied
	}

	resolved := tenant.FromContext(c.Request().Context())
	if resolved == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "tenant not resolved")
	}

	decision, err := h.guard.Authorize(p, resolved)
	if errors.Is(err, ErrCrossTenantAccess) {
		return denied
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "login unavailable")
	}

	token, err := h.issuer.Issue(decision)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "login unavailable")
	}

	resp := loginResponse{
		Token:    token,
		Username: decision.Username,
		Role:     string(decision.Role),
	}
	if !decision.Tenant.IsPublic() {
		resp.TenantSlug = decision.Tenant.Slug
	}
	return c.JSON(http.StatusOK, resp)
}

// Me returns the authenticated principal's profile.
func (h *Handler) Me(c echo.Context) error {
	s := SessionFromContext(c.Request().Context())
	if s == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	p, err := h.users.GetByID(c.Request().Context(), s.PrincipalID)
	if errors.Is(err, ErrUserNotFound) {
		return echo.NewHTTPError(http.StatusUnauthorized, "account no longer exists")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

// ListUsers returns the clinic's staff accounts, optionally filtered by
// role. Superusers see the tenant currently resolved for the request.
func (h *Handler) ListUsers(c echo.Context) error {
	s := SessionFromContext(c.Request().Context())
	if s == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	tenantID := s.TenantID
	if tenantID == nil {
		resolved := tenant.FromContext(c.Request().Context())
		if resolved == nil || resolved.IsPublic() {
			return echo.NewHTTPError(http.StatusBadRequest, "no clinic in scope")
		}
		tenantID = &resolved.ID
	}

	var role Role
	if q := c.QueryParam("role"); q != "" {
		parsed, err := ParseRole(q)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		role = parsed
	}

	users, err := h.users.ListByTenant(c.Request().Context(), *tenantID, role)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, users)
}

// HashPassword creates the stored bcrypt hash for a new account.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
