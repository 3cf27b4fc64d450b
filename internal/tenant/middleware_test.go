package tenant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/platform/db"
)

func resolveRequest(t *testing.T, dir *Directory, host string) *Tenant {
	t.Helper()
	e := echo.New()
	var resolved *Tenant
	h := ResolveMiddleware(dir, zerolog.Nop())(func(c echo.Context) error {
		resolved = FromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = host
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	if resolved == nil {
		t.Fatal("handler ran without a resolved tenant")
	}
	return resolved
}

func TestResolveMiddleware_BindsTenant(t *testing.T) {
	store := NewStoreMemory()
	atlas := seedClinic(t, store, "atlas", "atlas.example")
	dir := NewDirectory(store)

	got := resolveRequest(t, dir, "atlas.example:8000")
	if got.ID != atlas.ID {
		t.Errorf("resolved %s, want atlas", got.Slug)
	}
}

func TestResolveMiddleware_FallsBackToPublic(t *testing.T) {
	dir := NewDirectory(NewStoreMemory())

	got := resolveRequest(t, dir, "unknown.example")
	if !got.IsPublic() {
		t.Errorf("expected public tenant fallback, got %s", got.Slug)
	}
}

func TestResolveMiddleware_ConcurrentRequestsIsolated(t *testing.T) {
	store := NewStoreMemory()
	atlas := seedClinic(t, store, "atlas", "atlas.example")
	mansour := seedClinic(t, store, "mansour", "mansour.example")
	dir := NewDirectory(store)

	e := echo.New()
	mw := ResolveMiddleware(dir, zerolog.Nop())

	// Each request must observe only its own tenant, no matter how many run
	// at once.
	run := func(host string, wantID uuid.UUID) func() {
		return func() {
			h := mw(func(c echo.Context) error {
				got := FromContext(c.Request().Context())
				if got == nil || got.ID != wantID {
					t.Errorf("request for %s observed tenant %v", host, got)
				}
				return c.NoContent(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Host = host
			if err := h(e.NewContext(req, httptest.NewRecorder())); err != nil {
				t.Errorf("request for %s failed: %v", host, err)
			}
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); run("atlas.example", atlas.ID)() }()
		go func() { defer wg.Done(); run("mansour.example", mansour.ID)() }()
	}
	wg.Wait()
}

// stubScope stands in for a schema-pinned connection; only Schema and Release
// are exercised by the middleware.
type stubScope struct {
	db.Scope
	schema   string
	released bool
}

func (s *stubScope) Schema() string { return s.schema }
func (s *stubScope) Release()       { s.released = true }

type stubAcquirer struct {
	err   error
	calls int
	last  *stubScope
}

func (a *stubAcquirer) Acquire(ctx context.Context, schema string) (db.Scope, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	a.last = &stubScope{schema: schema}
	return a.last, nil
}

func scopedRequest(tn *Tenant) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithTenant(req.Context(), tn))
	return req, httptest.NewRecorder()
}

func TestScopeMiddleware_ScopesAndReleases(t *testing.T) {
	e := echo.New()
	acq := &stubAcquirer{}
	atlas := &Tenant{ID: uuid.New(), Slug: "atlas", SchemaName: "clinic_atlas", Status: StatusActive}

	var seen db.Scope
	h := ScopeMiddleware(acq)(func(c echo.Context) error {
		seen = db.ScopeFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	req, rec := scopedRequest(atlas)
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("middleware failed: %v", err)
	}
	if seen == nil || seen.Schema() != "clinic_atlas" {
		t.Errorf("handler did not receive the pinned scope: %v", seen)
	}
	if !acq.last.released {
		t.Error("scope was not released after the handler returned")
	}
}

func TestScopeMiddleware_RetiredClinicAborts(t *testing.T) {
	e := echo.New()
	acq := &stubAcquirer{}
	retired := &Tenant{ID: uuid.New(), Slug: "atlas", SchemaName: "clinic_atlas", Status: StatusRetired}

	h := ScopeMiddleware(acq)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req, rec := scopedRequest(retired)
	err := h(e.NewContext(req, rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for a retired clinic, got %v", err)
	}
	if acq.calls != 0 {
		t.Error("no connection may be acquired for a retired clinic")
	}
}

func TestScopeMiddleware_MissingSchemaAborts(t *testing.T) {
	e := echo.New()
	acq := &stubAcquirer{err: fmt.Errorf("%w: schema clinic_atlas does not exist", db.ErrSchemaUnavailable)}
	atlas := &Tenant{ID: uuid.New(), Slug: "atlas", SchemaName: "clinic_atlas", Status: StatusActive}

	h := ScopeMiddleware(acq)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req, rec := scopedRequest(atlas)
	err := h(e.NewContext(req, rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when the schema is gone, got %v", err)
	}
}

func TestScopeMiddleware_ReleasesOnHandlerError(t *testing.T) {
	e := echo.New()
	acq := &stubAcquirer{}
	atlas := &Tenant{ID: uuid.New(), Slug: "atlas", SchemaName: "clinic_atlas", Status: StatusActive}

	boom := errors.New("handler failed")
	h := ScopeMiddleware(acq)(func(c echo.Context) error { return boom })

	req, rec := scopedRequest(atlas)
	if err := h(e.NewContext(req, rec)); !errors.Is(err, boom) {
		t.Fatalf("handler error was swallowed: %v", err)
	}
	if !acq.last.released {
		t.Error("scope must be released even when the handler fails")
	}
}

func TestScopeMiddleware_UnresolvedTenantAborts(t *testing.T) {
	e := echo.New()
	acq := &stubAcquirer{}

	h := ScopeMiddleware(acq)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	err := h(e.NewContext(req, httptest.NewRecorder()))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 without a resolved tenant, got %v", err)
	}
	if acq.calls != 0 {
		t.Error("no connection may be acquired without a resolved tenant")
	}
}
