// internal/app/features/tasks/routes.go
package tasks

import "github.com/go-chi/chi/v5"

// Routes returns the router mounted at /tasks. Callers wrap it with
// RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.ServeCreate)
	r.Get("/", h.ServeList)
	r.Route("/{taskID}", func(r chi.Router) {
		r.Get("/", h.ServeGet)
		r.Patch("/", h.ServeEdit)
		r.Delete("/", h.ServeDelete)

		r.Post("/publish", h.taskOp("tasks.publish", h.Engine.PublishTask))
		r.Post("/unpublish", h.taskOp("tasks.unpublish", h.Engine.UnpublishTask))
		r.Post("/claim", h.taskOp("tasks.claim", h.Engine.ClaimTask))
		r.Post("/unclaim", h.taskOp("tasks.unclaim", h.Engine.UnclaimTask))
		r.Post("/decline", h.taskOp("tasks.decline", h.Engine.DeclineTask))
		r.Post("/complete", h.taskOp("tasks.complete", h.Engine.CompleteTask))
		r.Post("/verify", h.ServeVerify)
		r.Post("/spawn", h.taskOp("tasks.spawn", h.Engine.SpawnRecurrence))
		r.Post("/checklist/{index}/toggle", h.ServeToggleChecklist)
	})
	return r
}
