// internal/app/features/households/routes.go
package households

import "github.com/go-chi/chi/v5"

// Routes returns the router mounted at /households. Callers wrap it with
// RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.ServeCreate)
	r.Route("/{householdID}", func(r chi.Router) {
		r.Get("/", h.ServeGet)
		r.Patch("/settings", h.ServeSettings)
		r.Get("/members", h.ServeMembers)
		r.Delete("/members/{userID}", h.ServeRemoveMember)
		r.Post("/leave", h.ServeLeave)
		r.Post("/switch", h.ServeSwitch)
		r.Post("/invites", h.ServeInvite)
	})
	return r
}
