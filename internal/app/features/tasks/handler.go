// internal/app/features/tasks/handler.go
package tasks

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/chorehub/internal/app/engine"
	"github.com/dalemusser/chorehub/internal/app/features/shared"
	"github.com/dalemusser/chorehub/internal/app/system/apperr"
	"github.com/dalemusser/chorehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/chorehub/internal/app/system/jsonio"
	"github.com/dalemusser/chorehub/internal/app/system/limits"
	"github.com/dalemusser/chorehub/internal/app/system/normalize"
	"github.com/dalemusser/chorehub/internal/app/system/timeouts"
	"github.com/dalemusser/chorehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the task board and the task lifecycle.
type Handler struct {
	Engine *engine.Service
	Log    *zap.Logger
}

func NewHandler(svc *engine.Service, logger *zap.Logger) *Handler {
	return &Handler{Engine: svc, Log: logger}
}

type createRequest struct {
	HouseholdID string                   `json:"household_id"`
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	Status      string                   `json:"status"`
	DueDate     time.Time                `json:"due_date"`
	Gems        int                      `json:"gems"`
	Recurrence  *models.RecurrenceConfig `json:"recurrence"`
	Checklist   string                   `json:"checklist"`
}

type editRequest struct {
	Title           *string                  `json:"title"`
	Description     *string                  `json:"description"`
	Gems            *int                     `json:"gems"`
	DueDate         *time.Time               `json:"due_date"`
	Recurrence      *models.RecurrenceConfig `json:"recurrence"`
	ClearRecurrence bool                     `json:"clear_recurrence"`
	Checklist       *string                  `json:"checklist"`
}

type verifyRequest struct {
	Verified *bool `json:"verified"`
}

func sanitized(p *string, clean func(string) string) *string {
	if p == nil {
		return nil
	}
	s := clean(*p)
	return &s
}

// ServeCreate handles POST /tasks.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}
	var in createRequest
	if err := jsonio.Decode(w, r, &in, limits.MaxTaskBody); err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	hid, err := shared.ObjectIDValue("household_id", in.HouseholdID)
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}

	// Long: the gem estimate may call out to the LLM.
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "tasks.create")
	defer cancel()

	t, err := h.Engine.CreateTask(ctx, engine.CreateTaskInput{
		HouseholdID: hid,
		CreatorID:   uid,
		Title:       htmlsanitize.Line(in.Title),
		Description: htmlsanitize.PlainText(in.Description),
		Status:      models.TaskStatus(normalize.Status(in.Status)),
		DueDate:     in.DueDate.UTC(),
		Gems:        in.Gems,
		Recurrence:  in.Recurrence,
		Checklist:   htmlsanitize.PlainText(in.Checklist),
	})
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusCreated, t)
}

// ServeList handles GET /tasks?household_id=…&status=….
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}
	hid, err := shared.ObjectIDValue("household_id", query.Get(r, "household_id"))
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	status := models.TaskStatus(normalize.Status(query.Get(r, "status")))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "tasks.list")
	defer cancel()

	list, err := h.Engine.ListTasks(ctx, hid, uid, status)
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, map[string]any{"tasks": list})
}

// ServeGet handles GET /tasks/{taskID}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	h.taskOp("tasks.get", h.Engine.GetTask)(w, r)
}

// ServeEdit handles PATCH /tasks/{taskID}.
func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}
	tid, err := shared.ObjectIDParam(r, "taskID")
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	var in editRequest
	if err := jsonio.Decode(w, r, &in, limits.MaxTaskBody); err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	if in.DueDate != nil {
		d := in.DueDate.UTC()
		in.DueDate = &d
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "tasks.edit")
	defer cancel()

	t, err := h.Engine.EditTask(ctx, tid, uid, engine.EditTaskInput{
		Title:           sanitized(in.Title, htmlsanitize.Line),
		Description:     sanitized(in.Description, htmlsanitize.PlainText),
		Gems:            in.Gems,
		DueDate:         in.DueDate,
		Recurrence:      in.Recurrence,
		ClearRecurrence: in.ClearRecurrence,
		Checklist:       sanitized(in.Checklist, htmlsanitize.PlainText),
	})
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, t)
}

// ServeDelete handles DELETE /tasks/{taskID}.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}
	tid, err := shared.ObjectIDParam(r, "taskID")
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "tasks.delete")
	defer cancel()

	if err := h.Engine.DeleteTask(ctx, tid, uid); err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeVerify handles POST /tasks/{taskID}/verify with {"verified": bool}.
func (h *Handler) ServeVerify(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}
	tid, err := shared.ObjectIDParam(r, "taskID")
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	var in verifyRequest
	if err := jsonio.Decode(w, r, &in, 0); err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	if in.Verified == nil {
		jsonio.Error(w, h.Log, apperr.Validation("verified is required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "tasks.verify")
	defer cancel()

	res, err := h.Engine.VerifyTask(ctx, tid, uid, *in.Verified)
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, res)
}

// ServeToggleChecklist handles POST /tasks/{taskID}/checklist/{index}/toggle.
func (h *Handler) ServeToggleChecklist(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		jsonio.Error(w, h.Log, apperr.Validation("invalid checklist index"))
		return
	}
	h.taskOp("tasks.checklist", func(ctx context.Context, taskID, userID primitive.ObjectID) (models.Task, error) {
		return h.Engine.ToggleChecklistItem(ctx, taskID, userID, index)
	})(w, r)
}

// taskOp adapts a lifecycle operation on {taskID} to a handler that
// responds with the resulting task.
func (h *Handler) taskOp(op string, fn func(ctx context.Context, taskID, userID primitive.ObjectID) (models.Task, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := shared.UserID(w, r)
		if !ok {
			return
		}
		tid, err := shared.ObjectIDParam(r, "taskID")
		if err != nil {
			jsonio.Error(w, h.Log, err)
			return
		}

		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
		defer cancel()

		t, err := fn(ctx, tid, uid)
		if err != nil {
			jsonio.Error(w, h.Log, err)
			return
		}
		jsonio.Write(w, http.StatusOK, t)
	}
}
