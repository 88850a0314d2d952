// internal/app/features/campaigns/admin.go
package campaigns

import (
	"context"
	"net/http"
	"strconv"

	campaignstore "github.com/dalemusser/fundhub/internal/app/store/campaigns"
	metricsstore "github.com/dalemusser/fundhub/internal/app/store/metrics"
	"github.com/dalemusser/fundhub/internal/app/system/auditlog"
	"github.com/dalemusser/fundhub/internal/app/system/httpjson"
	"github.com/dalemusser/fundhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

// ServeAdminList handles GET /admin/campaigns?q=&category=, every status.
func (h *Handler) ServeAdminList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Campaigns.List(ctx, campaignstore.Filter{
		Query:    query.Get(r, "q"),
		Category: query.Get(r, "category"),
		Admin:    true,
	})
	if err != nil {
		httpjson.Error(w, h.Log, "admin list campaigns", err)
		return
	}
	httpjson.OK(w, listResponse{Campaigns: list})
}

type statusRequest struct {
	Status string `json:"status"`
}

// ServeSetStatus handles POST /admin/campaigns/{id}/status.
func (h *Handler) ServeSetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.PathID(r, "id", "campaign")
	if err != nil {
		httpjson.Error(w, h.Log, "update campaign status", err)
		return
	}
	var req statusRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, h.Log, "update campaign status", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Campaigns.UpdateStatus(ctx, id, req.Status); err != nil {
		httpjson.Error(w, h.Log, "update campaign status", err)
		return
	}
	c, err := h.get(ctx, id)
	if err != nil {
		httpjson.Error(w, h.Log, "update campaign status", err)
		return
	}

	h.AuditLog.CampaignStatusChanged(ctx, r, auditlog.ActorFrom(r), id.Hex(), c.Status)
	httpjson.OK(w, c)
}

type deleteResponse struct {
	Deleted         bool  `json:"deleted"`
	DonationsPurged int64 `json:"donations_purged"`
}

// ServeDelete handles DELETE /admin/campaigns/{id}. The campaign goes first;
// its donations are purged afterwards on a best-effort basis, so a failure
// part way leaves orphaned ledger entries that are logged.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.PathID(r, "id", "campaign")
	if err != nil {
		httpjson.Error(w, h.Log, "delete campaign", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Campaigns.Delete(ctx, id); err != nil {
		httpjson.Error(w, h.Log, "delete campaign", err)
		return
	}

	purged, err := h.Donations.DeleteByCampaign(ctx, id)
	if err != nil {
		h.Log.Error("purge donations of deleted campaign",
			zap.String("campaign_id", id.Hex()),
			zap.Int64("purged", purged),
			zap.Error(err))
	}

	h.AuditLog.CampaignDeleted(ctx, r, auditlog.ActorFrom(r), id.Hex(), strconv.FormatInt(purged, 10))
	httpjson.OK(w, deleteResponse{Deleted: true, DonationsPurged: purged})
}

// ServeAudit handles GET /admin/campaigns/{id}/audit, comparing the stored
// aggregate with a recount of the ledger.
func (h *Handler) ServeAudit(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.PathID(r, "id", "campaign")
	if err != nil {
		httpjson.Error(w, h.Log, "audit campaign", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	drift, err := metricsstore.Audit(ctx, h.DB, id)
	if err != nil {
		httpjson.Error(w, h.Log, "audit campaign", err)
		return
	}
	if !drift.Consistent {
		h.Log.Warn("campaign aggregate drift",
			zap.String("campaign_id", id.Hex()),
			zap.String("amount_delta", drift.AmountDelta.String()),
			zap.Int64("count_delta", drift.CountDelta))
	}
	httpjson.OK(w, drift)
}

// ServeLedger handles GET /admin/campaigns/{id}/donations, the full ledger.
func (h *Handler) ServeLedger(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	c, err := h.load(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, "list campaign ledger", err)
		return
	}
	list, err := h.Donations.ListAll(ctx, c.ID)
	if err != nil {
		httpjson.Error(w, h.Log, "list campaign ledger", err)
		return
	}
	httpjson.OK(w, donationsResponse{Donations: list})
}
