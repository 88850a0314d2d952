// internal/app/features/systemusers/delete.go
package systemusers

import (
	"context"
	"net/http"

	"github.com/dalemusser/fundhub/internal/app/system/apperr"
	"github.com/dalemusser/fundhub/internal/app/system/auditlog"
	"github.com/dalemusser/fundhub/internal/app/system/httpjson"
	"github.com/dalemusser/fundhub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ServeDelete handles DELETE /admin/users/{uid}. Only the mirror entry is
// removed; the person can sign in again. Admins cannot remove themselves.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	actor := auditlog.ActorFrom(r)

	if uid == actor.UID {
		httpjson.Error(w, h.Log, "delete user",
			apperr.Conflict("you can't delete your own account; ask another admin to remove it", nil))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Users.Delete(ctx, uid); err != nil {
		httpjson.Error(w, h.Log, "delete user", err)
		return
	}

	h.AuditLog.UserDeleted(ctx, r, actor, uid)
	h.Log.Info("user deleted", zap.String("uid", uid), zap.String("by", actor.Email))
	w.WriteHeader(http.StatusNoContent)
}
