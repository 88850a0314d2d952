// internal/app/features/withdrawals/routes.go
package withdrawals

import "github.com/go-chi/chi/v5"

// MountCampaignRoutes registers the submit endpoint on the /campaigns router.
func MountCampaignRoutes(r chi.Router, h *Handler) {
	r.With(h.SessionMgr.RequireSignedIn).Post("/{id}/withdrawals", h.ServeSubmit)
}

// Routes returns the organizer router, mounted at /withdrawals.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(h.SessionMgr.RequireSignedIn)
	r.Get("/mine", h.ServeMine)
	return r
}

// MountAdminRoutes registers the review queue on the /admin router.
func MountAdminRoutes(r chi.Router, h *Handler) {
	r.Get("/withdrawals", h.ServeList)
	r.Post("/withdrawals/{id}/status", h.ServeDecide)
}
