// internal/app/features/withdrawals/handler.go
package withdrawals

import (
	"context"
	"net/http"

	campaignstore "github.com/dalemusser/fundhub/internal/app/store/campaigns"
	withdrawalstore "github.com/dalemusser/fundhub/internal/app/store/withdrawals"
	"github.com/dalemusser/fundhub/internal/app/system/apperr"
	"github.com/dalemusser/fundhub/internal/app/system/auditlog"
	"github.com/dalemusser/fundhub/internal/app/system/auth"
	"github.com/dalemusser/fundhub/internal/app/system/httpjson"
	"github.com/dalemusser/fundhub/internal/app/system/inputval"
	"github.com/dalemusser/fundhub/internal/app/system/normalize"
	"github.com/dalemusser/fundhub/internal/app/system/timeouts"
	"github.com/dalemusser/fundhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Campaigns   *campaignstore.Store
	Withdrawals *withdrawalstore.Store
	SessionMgr  *auth.SessionManager
	AuditLog    *auditlog.Logger
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Campaigns:   campaignstore.New(db),
		Withdrawals: withdrawalstore.New(db),
		SessionMgr:  sessionMgr,
		AuditLog:    audit,
		Log:         logger,
	}
}

type submitRequest struct {
	Requester models.Requester   `json:"requester"`
	Bank      models.BankAccount `json:"bank"`
}

func (s *submitRequest) normalize() {
	s.Requester.FirstName = normalize.Name(s.Requester.FirstName)
	s.Requester.LastName = normalize.Name(s.Requester.LastName)
	s.Requester.Email = normalize.Email(s.Requester.Email)
	s.Bank.BankName = normalize.Name(s.Bank.BankName)
}

// ServeSubmit handles POST /campaigns/{id}/withdrawals. The amount is the
// campaign's current total at the moment of submission; nothing else
// changes until an administrator acts on the request.
func (h *Handler) ServeSubmit(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	id, err := httpjson.PathID(r, "id", "campaign")
	if err != nil {
		httpjson.Error(w, h.Log, "submit withdrawal", err)
		return
	}
	var req submitRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, h.Log, "submit withdrawal", err)
		return
	}
	req.normalize()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, found, err := h.Campaigns.Get(ctx, id)
	if err != nil {
		httpjson.Error(w, h.Log, "submit withdrawal", err)
		return
	}
	if !found {
		httpjson.Error(w, h.Log, "submit withdrawal", apperr.NotFound("campaign", id.Hex()))
		return
	}
	if !h.SessionMgr.Admins().CanManageCampaign(u.Email, c) {
		httpjson.Error(w, h.Log, "submit withdrawal",
			apperr.Forbidden("only the campaign organizer can request a withdrawal"))
		return
	}
	if err := inputval.Validate(req).Err(); err != nil {
		httpjson.Error(w, h.Log, "submit withdrawal", err)
		return
	}

	out, err := h.Withdrawals.Create(ctx, models.WithdrawalRequest{
		CampaignID:      c.ID,
		CampaignTitle:   c.Title,
		OrganizerEmail:  c.Organizer.Email,
		Requester:       req.Requester,
		Bank:            req.Bank,
		AmountRequested: c.CurrentAmount,
	})
	if err != nil {
		httpjson.Error(w, h.Log, "submit withdrawal", err)
		return
	}

	h.Log.Info("withdrawal requested",
		zap.String("request_id", out.ID.Hex()),
		zap.String("campaign_id", c.ID.Hex()),
		zap.String("amount", out.AmountRequested.String()),
		zap.String("by", u.Email))
	httpjson.Write(w, http.StatusCreated, out)
}

type listResponse struct {
	Withdrawals []models.WithdrawalRequest `json:"withdrawals"`
}

// ServeMine handles GET /withdrawals/mine.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Withdrawals.ListByOrganizer(ctx, u.Email)
	if err != nil {
		httpjson.Error(w, h.Log, "list withdrawals", err)
		return
	}
	httpjson.OK(w, listResponse{Withdrawals: list})
}
