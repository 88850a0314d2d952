// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/fundhub/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/fundhub/internal/app/store/users"
	"github.com/dalemusser/fundhub/internal/app/system/auditlog"
	"github.com/dalemusser/fundhub/internal/app/system/auth"
	"github.com/dalemusser/fundhub/internal/app/system/httpjson"
	"github.com/dalemusser/fundhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Handler handles Google OAuth sign-in.
type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	StateStore *oauthstate.Store
	Users      *userstore.Store

	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g. "https://api.fundhub.org/auth/google/callback"

	// fetchProfile exchanges the code and loads the Google profile.
	fetchProfile func(ctx context.Context, code string) (googleUserInfo, error)
}

// NewHandler creates a new Google OAuth handler.
func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	audit *auditlog.Logger,
	clientID, clientSecret, baseURL string,
	logger *zap.Logger,
) *Handler {
	h := &Handler{
		Log:          logger,
		SessionMgr:   sessionMgr,
		AuditLog:     audit,
		StateStore:   oauthstate.New(db),
		Users:        userstore.New(db),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + "/auth/google/callback",
	}
	h.fetchProfile = h.exchangeAndFetch
	return h
}

func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                             |
| Redirects to Google's consent screen. ?return= is where the browser lands    |
| after a successful sign-in.                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		httpjson.Write(w, http.StatusServiceUnavailable, httpjson.ErrorBody{Error: "google sign-in is not configured"})
		return
	}

	state, err := generateState()
	if err != nil {
		h.Log.Error("failed to generate OAuth state", zap.Error(err))
		httpjson.Write(w, http.StatusInternalServerError, httpjson.ErrorBody{Error: "internal error"})
		return
	}
	returnURL := query.Get(r, "return")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.StateStore.Save(ctx, state, returnURL, time.Now().UTC().Add(oauthstate.TTL)); err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		httpjson.Write(w, http.StatusInternalServerError, httpjson.ErrorBody{Error: "internal error"})
		return
	}

	url := h.oauth2Config().AuthCodeURL(state)
	h.Log.Debug("initiating Google OAuth flow", zap.String("return_url", returnURL))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
| Validates state, exchanges the code, mirrors the profile into users and      |
| signs the session in.                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", r.URL.Query().Get("error_description")))
		h.fail(w, r, http.StatusUnauthorized, "google_denied")
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" {
		h.fail(w, r, http.StatusBadRequest, "invalid_state")
		return
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	returnURL, valid, err := h.StateStore.Validate(ctxTimeout, state)
	if err != nil {
		h.Log.Error("failed to validate OAuth state", zap.Error(err))
		httpjson.Write(w, http.StatusInternalServerError, httpjson.ErrorBody{Error: "internal error"})
		return
	}
	if !valid {
		h.fail(w, r, http.StatusBadRequest, "invalid_state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.fail(w, r, http.StatusBadRequest, "invalid_code")
		return
	}

	gu, err := h.fetchProfile(ctx, code)
	if err != nil {
		h.Log.Error("failed to complete Google OAuth exchange", zap.Error(err))
		h.fail(w, r, http.StatusBadGateway, "token_exchange")
		return
	}
	if gu.ID == "" || gu.Email == "" {
		h.fail(w, r, http.StatusBadGateway, "user_info")
		return
	}

	u, err := h.Users.Upsert(ctxTimeout, userstore.Profile{
		UID:         gu.ID,
		DisplayName: gu.Name,
		Email:       gu.Email,
		PhotoURL:    gu.Picture,
	})
	if err != nil {
		h.Log.Error("failed to upsert user", zap.Error(err), zap.String("uid", gu.ID))
		httpjson.Write(w, http.StatusInternalServerError, httpjson.ErrorBody{Error: "internal error"})
		return
	}

	if err := h.SessionMgr.SignIn(w, r, auth.SessionUser{UID: u.ID, Name: u.DisplayName, Email: u.Email}); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("uid", u.ID))
		httpjson.Write(w, http.StatusInternalServerError, httpjson.ErrorBody{Error: "internal error"})
		return
	}

	h.AuditLog.LoginSuccess(ctx, r, auditlog.Actor{UID: u.ID, Email: u.Email})
	h.Log.Info("user signed in via Google OAuth", zap.String("uid", u.ID), zap.String("email", u.Email))

	http.Redirect(w, r, urlutil.SafeReturn(returnURL, "", "/"), http.StatusSeeOther)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, reason string) {
	h.AuditLog.LoginFailed(r.Context(), r, reason)
	httpjson.Write(w, status, httpjson.ErrorBody{Error: reason})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Google profile                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

var errUnverifiedEmail = errors.New("google account email is not verified")

func (h *Handler) exchangeAndFetch(ctx context.Context, code string) (googleUserInfo, error) {
	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		return googleUserInfo{}, fmt.Errorf("exchange code: %w", err)
	}

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(userInfoURL)
	if err != nil {
		return googleUserInfo{}, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, fmt.Errorf("fetch user info: unexpected status code %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserInfo{}, fmt.Errorf("decode user info: %w", err)
	}
	if !info.EmailVerified {
		return googleUserInfo{}, errUnverifiedEmail
	}
	return info, nil
}

// generateState creates a cryptographically secure random state string.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
