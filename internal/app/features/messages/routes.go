// internal/app/features/messages/routes.go
package messages

import "github.com/go-chi/chi/v5"

// Routes returns the router mounted at /messages.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.ServeSend)
	r.Get("/conversation", h.ServeConversation)
	r.Get("/unread", h.ServeUnread)
	r.Post("/{messageID}/read", h.ServeMarkRead)
	return r
}
