// internal/app/features/systemusers/routes.go
package systemusers

import "github.com/go-chi/chi/v5"

// MountAdminRoutes registers user management on the /admin router.
//
// Example mount from bootstrap:
//
//	r.Route("/admin", func(ar chi.Router) {
//		ar.Use(sm.RequireAdmin)
//		systemusers.MountAdminRoutes(ar, h)
//	})
func MountAdminRoutes(r chi.Router, h *Handler) {
	r.Get("/users", h.ServeList)
	r.Delete("/users/{uid}", h.ServeDelete)
}
