package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/fundhub/internal/app/system/auth"
	"github.com/dalemusser/fundhub/internal/app/system/authz"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		authz.NewAdmins([]string{"admin@test.com"}),
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func withUser(r *http.Request, email string) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{UID: "uid-1", Name: "Test", Email: email})
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	_, err := auth.NewSessionManager("", "", "", time.Hour, false, authz.NewAdmins(nil), zap.NewNop())
	if err == nil {
		t.Error("expected error for empty session key")
	}
}

func TestRequireSignedIn(t *testing.T) {
	sm := newTestSessionManager(t)
	handler := sm.RequireSignedIn(okHandler())

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"no user", httptest.NewRequest(http.MethodGet, "/me", nil), http.StatusUnauthorized},
		{"signed in", withUser(httptest.NewRequest(http.MethodGet, "/me", nil), "someone@example.com"), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, tt.req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want != http.StatusOK && rec.Header().Get("Content-Type") != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	sm := newTestSessionManager(t)
	handler := sm.RequireAdmin(okHandler())

	tests := []struct {
		name  string
		email string
		want  int
	}{
		{"no user", "", http.StatusUnauthorized},
		{"not admin", "someone@example.com", http.StatusForbidden},
		{"admin", "admin@test.com", http.StatusOK},
		{"admin any case", " Admin@Test.com", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
			if tt.email != "" {
				req = withUser(req, tt.email)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestSignInRoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback", nil)
	if err := sm.SignIn(rec, req, auth.SessionUser{UID: "g-123", Name: "Ana", Email: "ana@example.com"}); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("SignIn did not set a cookie")
	}

	var got *auth.SessionUser
	handler := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	}))
	next := httptest.NewRequest(http.MethodGet, "/me", nil)
	for _, c := range cookies {
		next.AddCookie(c)
	}
	handler.ServeHTTP(httptest.NewRecorder(), next)

	if got == nil {
		t.Fatal("LoadSessionUser did not restore the user")
	}
	if got.UID != "g-123" || got.Name != "Ana" || got.Email != "ana@example.com" {
		t.Errorf("user = %+v", got)
	}

	out := httptest.NewRecorder()
	if err := sm.SignOut(out, next); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	cleared := out.Result().Cookies()
	if len(cleared) == 0 || cleared[0].MaxAge >= 0 {
		t.Errorf("SignOut should expire the cookie, got %+v", cleared)
	}
}

func TestLoadSessionUser_IgnoresGarbageCookie(t *testing.T) {
	sm := newTestSessionManager(t)

	var found bool
	handler := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = auth.CurrentUser(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "test-session", Value: "not-a-valid-cookie"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if found {
		t.Error("garbage cookie should not produce a user")
	}
}

func TestIsAdmin(t *testing.T) {
	sm := newTestSessionManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if sm.IsAdmin(req) {
		t.Error("anonymous request is not admin")
	}
	if !sm.IsAdmin(withUser(req, "admin@test.com")) {
		t.Error("allow-listed user should be admin")
	}
}

func TestSignIn_ReplacesCookieFromRotatedKey(t *testing.T) {
	old := newTestSessionManager(t)
	rec := httptest.NewRecorder()
	if err := old.SignIn(rec, httptest.NewRequest(http.MethodGet, "/", nil), auth.SessionUser{UID: "g-1", Email: "a@example.com"}); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	core, logs := observer.New(zap.WarnLevel)
	sm, err := auth.NewSessionManager("another-session-key-also-32-chars-long", "test-session", "", time.Hour, false,
		authz.NewAdmins(nil), zap.New(core))
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	out := httptest.NewRecorder()
	if err := sm.SignIn(out, req, auth.SessionUser{UID: "g-2", Email: "b@example.com"}); err != nil {
		t.Fatalf("SignIn over stale cookie failed: %v", err)
	}
	if len(out.Result().Cookies()) == 0 {
		t.Error("SignIn should issue a fresh cookie")
	}
	if logs.FilterMessage("session cookie invalid, using fresh session").Len() == 0 {
		t.Error("expected a warning about the undecodable cookie")
	}
}
