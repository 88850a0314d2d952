// internal/app/features/campaigns/public.go
package campaigns

import (
	"context"
	"net/http"

	campaignstore "github.com/dalemusser/fundhub/internal/app/store/campaigns"
	"github.com/dalemusser/fundhub/internal/app/system/apperr"
	"github.com/dalemusser/fundhub/internal/app/system/httpjson"
	"github.com/dalemusser/fundhub/internal/app/system/paging"
	"github.com/dalemusser/fundhub/internal/app/system/timeouts"
	"github.com/dalemusser/fundhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type listResponse struct {
	Campaigns []models.Campaign `json:"campaigns"`
}

type donationsResponse struct {
	Donations []models.Donation `json:"donations"`
}

// ServeList handles GET /campaigns?q=&category=. Hidden and reported
// campaigns are never listed here.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Campaigns.List(ctx, campaignstore.Filter{
		Query:    query.Get(r, "q"),
		Category: query.Get(r, "category"),
	})
	if err != nil {
		httpjson.Error(w, h.Log, "list campaigns", err)
		return
	}
	httpjson.OK(w, listResponse{Campaigns: list})
}

// ServeGet handles GET /campaigns/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.load(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, "get campaign", err)
		return
	}
	httpjson.OK(w, c)
}

// ServeRecent handles GET /campaigns/{id}/donations?limit=, newest first.
func (h *Handler) ServeRecent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.load(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, "list recent donations", err)
		return
	}

	limit := paging.ParseLimit(r, h.RecentLimit)
	list, err := h.Donations.ListRecent(ctx, c.ID, int64(limit))
	if err != nil {
		httpjson.Error(w, h.Log, "list recent donations", err)
		return
	}
	httpjson.OK(w, donationsResponse{Donations: list})
}

// ServeLive handles GET /campaigns/{id}/live, a websocket that receives
// every donation recorded for a publicly listed campaign.
func (h *Handler) ServeLive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	c, err := h.load(ctx, r)
	cancel()
	if err == nil && !models.IsPubliclyListed(c.Status) {
		err = apperr.NotFound("campaign", c.ID.Hex())
	}
	if err != nil {
		httpjson.Error(w, h.Log, "open live feed", err)
		return
	}
	if h.Feed == nil {
		httpjson.Write(w, http.StatusServiceUnavailable, httpjson.ErrorBody{Error: "live feed is not running"})
		return
	}
	h.Feed.Serve(w, r, c.ID)
}

// load resolves the {id} URL parameter to a campaign.
func (h *Handler) load(ctx context.Context, r *http.Request) (models.Campaign, error) {
	id, err := httpjson.PathID(r, "id", "campaign")
	if err != nil {
		return models.Campaign{}, err
	}
	return h.get(ctx, id)
}

func (h *Handler) get(ctx context.Context, id primitive.ObjectID) (models.Campaign, error) {
	c, found, err := h.Campaigns.Get(ctx, id)
	if err != nil {
		return models.Campaign{}, err
	}
	if !found {
		return models.Campaign{}, apperr.NotFound("campaign", id.Hex())
	}
	return c, nil
}
