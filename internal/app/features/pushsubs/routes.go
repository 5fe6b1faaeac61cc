// internal/app/features/pushsubs/routes.go
package pushsubs

import "github.com/go-chi/chi/v5"

// Routes returns the router mounted at /push.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/vapid-public-key", h.ServePublicKey)
	r.Post("/subscriptions", h.ServeSubscribe)
	r.Delete("/subscriptions", h.ServeUnsubscribe)
	return r
}
