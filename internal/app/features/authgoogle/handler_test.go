package authgoogle_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/fundhub/internal/app/features/authgoogle"
	"github.com/dalemusser/fundhub/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/fundhub/internal/app/store/users"
	"github.com/dalemusser/fundhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T, db *mongo.Database, clientID string) *authgoogle.Handler {
	t.Helper()
	return authgoogle.NewHandler(db, testutil.NewSessionManager(t), nil, clientID, "test-client-secret", "http://localhost:8080", zap.NewNop())
}

func TestIsConfigured(t *testing.T) {
	db := testutil.SetupTestDB(t)
	if !newTestHandler(t, db, "test-client-id").IsConfigured() {
		t.Error("IsConfigured() should return true with client ID and secret")
	}
	if newTestHandler(t, db, "").IsConfigured() {
		t.Error("IsConfigured() should return false without client ID")
	}
}

func TestServeLogin_NotConfigured(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db, "")

	rec := testutil.NewRecorder()
	h.ServeLogin(rec, testutil.NewRequest(http.MethodGet, "/auth/google"))

	rec.AssertStatus(t, http.StatusServiceUnavailable)
}

func TestServeLogin_RedirectsToGoogle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db, "test-client-id")
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := testutil.NewRecorder()
	h.ServeLogin(rec, testutil.NewRequest(http.MethodGet, "/auth/google?return=/campaigns"))

	rec.AssertStatus(t, http.StatusTemporaryRedirect)
	loc := rec.Header().Get("Location")
	if !strings.Contains(loc, "accounts.google.com") || !strings.Contains(loc, "client_id=test-client-id") {
		t.Errorf("Location = %q, want Google consent URL", loc)
	}

	n, err := db.Collection("oauth_states").CountDocuments(ctx, bson.M{"return_url": "/campaigns"})
	if err != nil || n != 1 {
		t.Errorf("stored states = %d, %v; want 1", n, err)
	}
}

func TestServeCallback_Rejects(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db, "test-client-id")

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"google error", "/auth/google/callback?error=access_denied", http.StatusUnauthorized},
		{"missing state", "/auth/google/callback?code=abc", http.StatusBadRequest},
		{"unknown state", "/auth/google/callback?state=nope&code=abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.ServeCallback(rec, testutil.NewRequest(http.MethodGet, tt.target))
			rec.AssertStatus(t, tt.want)
		})
	}
}

func TestServeCallback_SignsInAndMirrorsUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db, "test-client-id")
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := oauthstate.New(db).Save(ctx, "state-1", "", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("save state: %v", err)
	}
	h.SetProfileFetcher(func(ctx context.Context, code string) (authgoogle.Profile, error) {
		if code != "code-1" {
			t.Errorf("code = %q, want code-1", code)
		}
		return authgoogle.Profile{ID: "google-123", Email: "Ana@Example.com", Name: "Ana  Pérez"}, nil
	})

	rec := testutil.NewRecorder()
	h.ServeCallback(rec, testutil.NewRequest(http.MethodGet, "/auth/google/callback?state=state-1&code=code-1"))

	rec.AssertStatus(t, http.StatusSeeOther)
	if rec.Header().Get("Set-Cookie") == "" {
		t.Error("expected a session cookie")
	}

	u, found, err := userstore.New(db).GetByID(ctx, "google-123")
	if err != nil || !found {
		t.Fatalf("user mirror: found=%v err=%v", found, err)
	}
	if u.Email != "ana@example.com" || u.DisplayName != "Ana Pérez" {
		t.Errorf("user = %q/%q, want normalized profile", u.Email, u.DisplayName)
	}

	// State is single use.
	rec = testutil.NewRecorder()
	h.ServeCallback(rec, testutil.NewRequest(http.MethodGet, "/auth/google/callback?state=state-1&code=code-1"))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestServeCallback_ExchangeFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db, "test-client-id")
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := oauthstate.New(db).Save(ctx, "state-2", "", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("save state: %v", err)
	}
	h.SetProfileFetcher(func(ctx context.Context, code string) (authgoogle.Profile, error) {
		return authgoogle.Profile{}, errors.New("invalid_grant")
	})

	rec := testutil.NewRecorder()
	h.ServeCallback(rec, testutil.NewRequest(http.MethodGet, "/auth/google/callback?state=state-2&code=x"))
	rec.AssertStatus(t, http.StatusBadGateway)

	n, _ := db.Collection("users").CountDocuments(ctx, bson.M{})
	if n != 0 {
		t.Errorf("users = %d, want 0 after failed exchange", n)
	}
}
