// internal/app/features/userinfo/handler.go
package userinfo

import (
	"net/http"

	"github.com/dalemusser/fundhub/internal/app/system/auth"
	"github.com/dalemusser/fundhub/internal/app/system/httpjson"
)

// Handler serves the signed-in identity.
type Handler struct {
	SessionMgr *auth.SessionManager
}

func NewHandler(sm *auth.SessionManager) *Handler {
	return &Handler{SessionMgr: sm}
}

type meResponse struct {
	UID     string `json:"uid"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// ServeMe handles GET /me. RequireSignedIn runs first, so a user is always
// present.
//
//	{ "uid": "...", "name": "...", "email": "...", "is_admin": false }
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		httpjson.Write(w, http.StatusUnauthorized, httpjson.ErrorBody{Error: "sign in required"})
		return
	}
	httpjson.OK(w, meResponse{
		UID:     user.UID,
		Name:    user.Name,
		Email:   user.Email,
		IsAdmin: h.SessionMgr.IsAdmin(r),
	})
}
