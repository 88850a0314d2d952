// internal/app/features/campaigns/routes.go
package campaigns

import "github.com/go-chi/chi/v5"

// MountRoutes registers the donor and organizer routes on a router mounted
// at /campaigns.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeGet)
	r.Get("/{id}/donations", h.ServeRecent)
	r.Get("/{id}/live", h.ServeLive)

	r.Group(func(pr chi.Router) {
		pr.Use(h.SessionMgr.RequireSignedIn)
		pr.Post("/", h.ServeCreate)
		pr.Post("/images", h.ServeUpload)
	})
}

// MountAdminRoutes registers moderation routes on the /admin router, which
// already requires an administrator.
func MountAdminRoutes(r chi.Router, h *Handler) {
	r.Get("/campaigns", h.ServeAdminList)
	r.Post("/campaigns/{id}/status", h.ServeSetStatus)
	r.Delete("/campaigns/{id}", h.ServeDelete)
	r.Get("/campaigns/{id}/audit", h.ServeAudit)
	r.Get("/campaigns/{id}/donations", h.ServeLedger)
}
