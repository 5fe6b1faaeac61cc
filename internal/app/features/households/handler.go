// internal/app/features/households/handler.go
package households

import (
	"net/http"

	"github.com/dalemusser/chorehub/internal/app/engine"
	"github.com/dalemusser/chorehub/internal/app/features/shared"
	"github.com/dalemusser/chorehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/chorehub/internal/app/system/jsonio"
	"github.com/dalemusser/chorehub/internal/app/system/timeouts"
	"github.com/dalemusser/chorehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves household membership, settings and invite generation.
type Handler struct {
	Engine *engine.Service
	Log    *zap.Logger
}

func NewHandler(svc *engine.Service, logger *zap.Logger) *Handler {
	return &Handler{Engine: svc, Log: logger}
}

type createRequest struct {
	Name string `json:"name"`
}

type settingsRequest struct {
	Name             *string `json:"name"`
	GemPrompt        *string `json:"gem_prompt"`
	AllowGemOverride *bool   `json:"allow_gem_override"`
}

// redact hides invite tokens from everyone but the head.
func redact(hh models.Household, viewer primitive.ObjectID) models.Household {
	if !hh.IsHead(viewer) {
		hh.InviteLinks = nil
	}
	return hh
}

// ServeCreate handles POST /households.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}
	var in createRequest
	if err := jsonio.Decode(w, r, &in, 0); err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "households.create")
	defer cancel()

	hh, err := h.Engine.CreateHousehold(ctx, htmlsanitize.Line(in.Name), uid)
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusCreated, hh)
}

// ServeGet handles GET /households/{householdID}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}
	hid, err := shared.ObjectIDParam(r, "householdID")
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "households.get")
	defer cancel()

	hh, err := h.Engine.GetHousehold(ctx, hid, uid)
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, redact(hh, uid))
}

// ServeSettings handles PATCH /households/{householdID}/settings.
func (h *Handler) ServeSettings(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}
	hid, err := shared.ObjectIDParam(r, "householdID")
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	var in settingsRequest
	if err := jsonio.Decode(w, r, &in, 0); err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	if in.Name != nil {
		n := htmlsanitize.Line(*in.Name)
		in.Name = &n
	}
	if in.GemPrompt != nil {
		p := htmlsanitize.PlainText(*in.GemPrompt)
		in.GemPrompt = &p
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "households.settings")
	defer cancel()

	hh, err := h.Engine.UpdateHouseholdSettings(ctx, hid, uid, engine.HouseholdSettings{
		Name:             in.Name,
		GemPrompt:        in.GemPrompt,
		AllowGemOverride: in.AllowGemOverride,
	})
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, hh)
}

// ServeMembers handles GET /households/{householdID}/members.
func (h *Handler) ServeMembers(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}
	hid, err := shared.ObjectIDParam(r, "householdID")
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "households.members")
	defer cancel()

	members, err := h.Engine.ListMembers(ctx, hid, uid)
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, map[string]any{"members": members})
}

// ServeRemoveMember handles DELETE /households/{householdID}/members/{userID}.
func (h *Handler) ServeRemoveMember(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}
	hid, err := shared.ObjectIDParam(r, "householdID")
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	memberID, err := shared.ObjectIDParam(r, "userID")
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "households.remove_member")
	defer cancel()

	if err := h.Engine.RemoveMemberFromHousehold(ctx, hid, memberID, uid); err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeLeave handles POST /households/{householdID}/leave.
func (h *Handler) ServeLeave(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}
	hid, err := shared.ObjectIDParam(r, "householdID")
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "households.leave")
	defer cancel()

	if err := h.Engine.LeaveHousehold(ctx, hid, uid); err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeSwitch handles POST /households/{householdID}/switch.
func (h *Handler) ServeSwitch(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}
	hid, err := shared.ObjectIDParam(r, "householdID")
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "households.switch")
	defer cancel()

	if err := h.Engine.SwitchCurrentHousehold(ctx, uid, hid); err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeInvite handles POST /households/{householdID}/invites.
func (h *Handler) ServeInvite(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}
	hid, err := shared.ObjectIDParam(r, "householdID")
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "households.invite")
	defer cancel()

	inv, err := h.Engine.GenerateInviteLink(ctx, hid, uid)
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusCreated, inv)
}
