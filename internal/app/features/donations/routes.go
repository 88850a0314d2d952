// internal/app/features/donations/routes.go
package donations

import "github.com/go-chi/chi/v5"

// Routes returns the donor payment router, mounted at /donations.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/checkout", h.ServeCheckout)
	r.Get("/{orderID}", h.ServeStatus)
	r.Post("/{orderID}/confirm", h.ServeConfirm)
	return r
}

// MountWebhook registers the provider notification endpoint.
func MountWebhook(r chi.Router, h *Handler) {
	r.Post("/payments/notify", h.ServeNotify)
}

// MountAdminRoutes registers ledger and capture tools on the /admin router.
func MountAdminRoutes(r chi.Router, h *Handler) {
	r.Get("/donations", h.ServeGlobalLedger)
	r.Patch("/campaigns/{id}/donations/{donationID}", h.ServeCorrect)
	r.Delete("/campaigns/{id}/donations/{donationID}", h.ServeDelete)
	r.Get("/captures", h.ServeCaptures)
	r.Post("/captures/{orderID}/retry", h.ServeRetry)
}
