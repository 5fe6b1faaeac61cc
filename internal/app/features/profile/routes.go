// internal/app/features/profile/routes.go
package profile

import "github.com/go-chi/chi/v5"

// Routes returns the router mounted at /me.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeProfile)
	r.Patch("/preferences", h.HandleUpdatePreferences)
	r.Get("/gems", h.ServeGems)
	return r
}
