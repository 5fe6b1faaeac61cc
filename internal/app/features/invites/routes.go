// internal/app/features/invites/routes.go
package invites

import "github.com/go-chi/chi/v5"

// Routes returns the router mounted at /invites.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/join", h.ServeJoin)
	return r
}
