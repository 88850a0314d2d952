// internal/app/features/dashboard/routes.go
package dashboard

import "github.com/go-chi/chi/v5"

// MountAdminRoutes registers the dashboard totals on the /admin router,
// which already requires an administrator.
func MountAdminRoutes(r chi.Router, h *Handler) {
	r.Get("/stats", h.ServeStats)
}
