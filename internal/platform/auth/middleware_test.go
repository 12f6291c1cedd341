package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

type testAuthenticator struct {
	identity Identity
	err      error
}

func (a *testAuthenticator) Authenticate(ctx context.Context, r *http.Request) (Identity, error) {
	if a.err != nil {
		return Identity{}, a.err
	}
	return a.identity, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler(t *testing.T, wantSubject string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("expected identity in context")
		}
		if wantSubject != "" && identity.Subject != wantSubject {
			t.Fatalf("expected subject %q, got %q", wantSubject, identity.Subject)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestMiddlewareRejectsUnauthenticated(t *testing.T) {
	mw := Middleware{
		Logger:        testLogger(),
		Authenticator: &testAuthenticator{err: ErrUnauthenticated},
	}
	rec := httptest.NewRecorder()
	mw.Wrap(okHandler(t, "")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plans", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMiddlewarePassesIdentity(t *testing.T) {
	mw := Middleware{
		Logger:        testLogger(),
		Authenticator: &testAuthenticator{identity: Identity{Subject: "u-1", Roles: []string{RoleManager}}},
		Authorize:     RequireRoles(nil),
	}
	rec := httptest.NewRecorder()
	mw.Wrap(okHandler(t, "u-1")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plans", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestMiddlewareSkipPrefixes(t *testing.T) {
	mw := Middleware{
		Logger:        testLogger(),
		Authenticator: &testAuthenticator{err: ErrUnauthenticated},
		SkipPrefixes:  []string{"/healthz"},
	}
	rec := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected skip prefix to bypass auth, got %d", rec.Code)
	}
}

func TestRequireRolesDeniesSystemClaim(t *testing.T) {
	authz := RequireRoles(nil)
	err := authz(httptest.NewRequest(http.MethodGet, "/plans", nil), Identity{Subject: "u-1", Roles: []string{RoleSystem}})
	if err == nil {
		t.Fatalf("expected system role claim to be rejected")
	}
}

func TestRequireRolesPrefix(t *testing.T) {
	authz := RequireRoles(map[string][]string{"/scans/": {RoleAdmin}})

	req := httptest.NewRequest(http.MethodPost, "/scans/silence", nil)
	if err := authz(req, Identity{Roles: []string{RoleManager}}); err == nil {
		t.Fatalf("expected manager to be denied on scan endpoint")
	}
	if err := authz(req, Identity{Roles: []string{RoleAdmin}}); err != nil {
		t.Fatalf("expected admin to be allowed: %v", err)
	}
}

func TestInternalHeadersRoundTrip(t *testing.T) {
	secret := "test-secret"
	ts := "1700000000"
	sig, err := ComputeInternalAuthSignature(secret, ts, http.MethodPost, "/plans", "req-1", "u-1", "u@example.com", "manager")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if err := VerifyInternalAuthSignature(secret, ts, http.MethodPost, "/plans", "req-1", "u-1", "u@example.com", "manager", sig); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := VerifyInternalAuthSignature(secret, ts, http.MethodPost, "/plans", "req-1", "u-1", "u@example.com", "admin", sig); err == nil {
		t.Fatalf("expected tampered roles to fail verification")
	}
}
