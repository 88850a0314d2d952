// internal/app/features/donations/admin.go
package donations

import (
	"context"
	"net/http"

	donationstore "github.com/dalemusser/fundhub/internal/app/store/donations"
	"github.com/dalemusser/fundhub/internal/app/system/auditlog"
	"github.com/dalemusser/fundhub/internal/app/system/httpjson"
	"github.com/dalemusser/fundhub/internal/app/system/paging"
	"github.com/dalemusser/fundhub/internal/app/system/timeouts"
	"github.com/dalemusser/fundhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeGlobalLedger handles GET /admin/donations?start=&limit=, every
// donation with its campaign title, newest first.
func (h *Handler) ServeGlobalLedger(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	rows, err := h.Donations.ListGlobal(ctx)
	if err != nil {
		httpjson.Error(w, h.Log, "list donations", err)
		return
	}
	httpjson.OK(w, paging.Slice[donationstore.GlobalRow](rows, paging.Parse(r)))
}

type correctRequest struct {
	Amount models.Money `json:"amount"`
}

// ServeCorrect handles PATCH /admin/campaigns/{id}/donations/{donationID}.
func (h *Handler) ServeCorrect(w http.ResponseWriter, r *http.Request) {
	campaignID, donationID, err := ledgerIDs(r)
	if err != nil {
		httpjson.Error(w, h.Log, "correct donation", err)
		return
	}
	var req correctRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, h.Log, "correct donation", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	actor := auditlog.ActorFrom(r)
	out, err := h.Ledger.CorrectDonation(ctx, campaignID, donationID, req.Amount, actor.Email)
	if err != nil {
		httpjson.Error(w, h.Log, "correct donation", err)
		return
	}

	h.AuditLog.DonationCorrected(ctx, r, actor, campaignID.Hex(), donationID.Hex(),
		out.OldAmount.String(), out.NewAmount.String())
	httpjson.OK(w, out)
}

type deleteResponse struct {
	Deleted models.Donation `json:"deleted"`
}

// ServeDelete handles DELETE /admin/campaigns/{id}/donations/{donationID}.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	campaignID, donationID, err := ledgerIDs(r)
	if err != nil {
		httpjson.Error(w, h.Log, "delete donation", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	actor := auditlog.ActorFrom(r)
	d, err := h.Ledger.DeleteDonation(ctx, campaignID, donationID, actor.Email)
	if err != nil {
		httpjson.Error(w, h.Log, "delete donation", err)
		return
	}

	h.AuditLog.DonationDeleted(ctx, r, actor, campaignID.Hex(), donationID.Hex(), d.Amount.String())
	httpjson.OK(w, deleteResponse{Deleted: d})
}

type capturesResponse struct {
	Captures []models.PaymentCapture `json:"captures"`
}

// ServeCaptures handles GET /admin/captures: payments waiting to be
// recorded and those flagged for review.
func (h *Handler) ServeCaptures(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Captures.ListNeedingAttention(ctx)
	if err != nil {
		httpjson.Error(w, h.Log, "list captures", err)
		return
	}
	httpjson.OK(w, capturesResponse{Captures: list})
}

// ServeRetry handles POST /admin/captures/{orderID}/retry. The response is
// the capture after one recording attempt.
func (h *Handler) ServeRetry(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	pc, err := h.Payments.Retry(ctx, orderID)
	if err != nil {
		httpjson.Error(w, h.Log, "retry capture", err)
		return
	}

	h.AuditLog.CaptureRetried(ctx, r, auditlog.ActorFrom(r), orderID, pc.Status)
	httpjson.OK(w, pc)
}

func ledgerIDs(r *http.Request) (campaignID, donationID primitive.ObjectID, err error) {
	if campaignID, err = httpjson.PathID(r, "id", "campaign"); err != nil {
		return
	}
	donationID, err = httpjson.PathID(r, "donationID", "donation")
	return
}
