package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/tenant"
)

func newTestHandler(t *testing.T) (*Handler, UserStore) {
	t.Helper()
	users := NewUserStoreMemory()
	guard := NewGuard(zerolog.Nop())
	issuer := newTestIssuer(time.Hour)
	return NewHandler(users, guard, issuer), users
}

func seedUser(t *testing.T, users UserStore, username, password string, role Role, tn *tenant.Tenant) *Principal {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatal(err)
	}
	p := &Principal{Username: username, PasswordHash: hash, Role: role}
	if tn != nil {
		tid := tn.ID
		p.TenantID = &tid
	}
	if err := users.Create(context.Background(), p); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return p
}

func doLogin(t *testing.T, h *Handler, resolved *tenant.Tenant, username, password string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	body := `{"username":"` + username + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(tenant.WithTenant(req.Context(), resolved))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, h.Login(c)
}

func TestLogin_Success(t *testing.T) {
	h, users := newTestHandler(t)
	atlas := clinicTenant("atlas")
	seedUser(t, users, "dr.amina", "s3cret-pass", RoleDoctor, atlas)

	rec, err := doLogin(t, h, atlas, "dr.amina", "s3cret-pass")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a session token")
	}
	if resp.Role != "DOCTOR" || resp.TenantSlug != "atlas" {
		t.Errorf("response must carry role and clinic: %+v", resp)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	h, users := newTestHandler(t)
	atlas := clinicTenant("atlas")
	seedUser(t, users, "dr.amina", "s3cret-pass", RoleDoctor, atlas)

	_, err := doLogin(t, h, atlas, "dr.amina", "wrong")
	assertDenied(t, err)
}

func TestLogin_UnknownUser(t *testing.T) {
	h, _ := newTestHandler(t)

	_, err := doLogin(t, h, clinicTenant("atlas"), "ghost", "whatever")
	assertDenied(t, err)
}

func TestLogin_CrossTenantDeniedGenerically(t *testing.T) {
	// Scenario: request resolved to atlas, account affiliated with mansour.
	h, users := newTestHandler(t)
	atlas := clinicTenant("atlas")
	mansour := clinicTenant("mansour")
	seedUser(t, users, "dr.youssef", "s3cret-pass", RoleDoctor, mansour)

	_, err := doLogin(t, h, atlas, "dr.youssef", "s3cret-pass")
	assertDenied(t, err)
}

// assertDenied checks the generic denial: same status and message for
// unknown accounts, wrong passwords, and cross-tenant attempts, so the
// response leaks nothing about tenant membership.
func assertDenied(t *testing.T, err error) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", httpErr.Code)
	}
	if httpErr.Message != "access denied" {
		t.Errorf("message = %v, want generic denial", httpErr.Message)
	}
}

func TestLogin_SuperuserOnClinicHost(t *testing.T) {
	h, users := newTestHandler(t)
	su := seedUser(t, users, "platform.ops", "s3cret-pass", RoleSuperuser, nil)

	rec, err := doLogin(t, h, clinicTenant("atlas"), "platform.ops", "s3cret-pass")
	if err != nil {
		t.Fatalf("superuser login failed: %v", err)
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Role != "SUPERUSER" {
		t.Errorf("role = %s, want SUPERUSER", resp.Role)
	}
	_ = su
}

func TestLogin_PublicTenantAccepted(t *testing.T) {
	h, users := newTestHandler(t)
	atlas := clinicTenant("atlas")
	seedUser(t, users, "dr.amina", "s3cret-pass", RoleAdmin, atlas)

	if _, err := doLogin(t, h, tenant.Public(), "dr.amina", "s3cret-pass"); err != nil {
		t.Fatalf("public-schema login should be accepted: %v", err)
	}
}

func TestListUsers_ScopedToTenant(t *testing.T) {
	h, users := newTestHandler(t)
	atlas := clinicTenant("atlas")
	mansour := clinicTenant("mansour")
	seedUser(t, users, "dr.amina", "pw-aaaaaaaa", RoleDoctor, atlas)
	seedUser(t, users, "asst.karim", "pw-bbbbbbbb", RoleAssistant, atlas)
	seedUser(t, users, "dr.youssef", "pw-cccccccc", RoleDoctor, mansour)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	atlasID := atlas.ID
	sess := &Session{Username: "admin", Role: RoleAdmin, TenantID: &atlasID}
	req = req.WithContext(WithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	if err := h.ListUsers(e.NewContext(req, rec)); err != nil {
		t.Fatalf("list users: %v", err)
	}

	var got []*Principal
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 atlas users, got %d", len(got))
	}
	for _, p := range got {
		if p.TenantID == nil || *p.TenantID != atlas.ID {
			t.Errorf("user %s leaked from another tenant", p.Username)
		}
	}
}

func TestListUsers_RoleFilter(t *testing.T) {
	h, users := newTestHandler(t)
	atlas := clinicTenant("atlas")
	seedUser(t, users, "dr.amina", "pw-aaaaaaaa", RoleDoctor, atlas)
	seedUser(t, users, "asst.karim", "pw-bbbbbbbb", RoleAssistant, atlas)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/users?role=DOCTOR", nil)
	atlasID := atlas.ID
	req = req.WithContext(WithSession(req.Context(), &Session{Username: "admin", Role: RoleAdmin, TenantID: &atlasID}))
	rec := httptest.NewRecorder()
	if err := h.ListUsers(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}

	var got []*Principal
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Username != "dr.amina" {
		t.Errorf("role filter returned wrong set: %v", got)
	}
}
