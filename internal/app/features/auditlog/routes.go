// internal/app/features/auditlog/routes.go
package auditlog

import "github.com/go-chi/chi/v5"

// MountAdminRoutes registers the audit log viewer on the /admin router.
func MountAdminRoutes(r chi.Router, h *Handler) {
	r.Get("/audit", h.ServeList)
	r.Get("/audit/categories", h.ServeCategories)
}
