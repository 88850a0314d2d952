// internal/app/features/withdrawals/admin.go
package withdrawals

import (
	"context"
	"net/http"

	"github.com/dalemusser/fundhub/internal/app/system/auditlog"
	"github.com/dalemusser/fundhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/fundhub/internal/app/system/httpjson"
	"github.com/dalemusser/fundhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ServeList handles GET /admin/withdrawals.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Withdrawals.ListAll(ctx)
	if err != nil {
		httpjson.Error(w, h.Log, "list withdrawals", err)
		return
	}
	httpjson.OK(w, listResponse{Withdrawals: list})
}

type decideRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// ServeDecide handles POST /admin/withdrawals/{id}/status. Approving or
// completing a request only records the decision; payouts happen outside
// the service.
func (h *Handler) ServeDecide(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.PathID(r, "id", "withdrawal request")
	if err != nil {
		httpjson.Error(w, h.Log, "decide withdrawal", err)
		return
	}
	var req decideRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, h.Log, "decide withdrawal", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	actor := auditlog.ActorFrom(r)
	note := htmlsanitize.PlainText(req.Note)
	out, err := h.Withdrawals.Decide(ctx, id, req.Status, actor.Email, note)
	if err != nil {
		httpjson.Error(w, h.Log, "decide withdrawal", err)
		return
	}

	h.AuditLog.WithdrawalDecided(ctx, r, actor, id.Hex(), out.Status)
	h.Log.Info("withdrawal decided",
		zap.String("request_id", id.Hex()),
		zap.String("status", out.Status),
		zap.String("by", actor.Email))
	httpjson.OK(w, out)
}
