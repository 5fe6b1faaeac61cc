// Package profile serves the signed-in user's own record: profile,
// notification switches and gem history.
package profile

import (
	"net/http"

	"github.com/dalemusser/chorehub/internal/app/engine"
	"github.com/dalemusser/chorehub/internal/app/features/shared"
	"github.com/dalemusser/chorehub/internal/app/system/jsonio"
	"github.com/dalemusser/chorehub/internal/app/system/paging"
	"github.com/dalemusser/chorehub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type Handler struct {
	Engine *engine.Service
	Log    *zap.Logger
}

func NewHandler(svc *engine.Service, logger *zap.Logger) *Handler {
	return &Handler{Engine: svc, Log: logger}
}

// ServeProfile handles GET /me.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "profile.get")
	defer cancel()

	u, err := h.Engine.GetProfile(ctx, uid)
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, u)
}

// HandleUpdatePreferences handles PATCH /me/preferences. The body is a map
// of preference key to enabled; keys not named are left as they are.
func (h *Handler) HandleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}
	var prefs map[string]bool
	if err := jsonio.Decode(w, r, &prefs, 0); err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "profile.preferences")
	defer cancel()

	u, err := h.Engine.SetNotificationPrefs(ctx, uid, prefs)
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, u)
}

// ServeGems handles GET /me/gems?limit=….
func (h *Handler) ServeGems(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}
	limit := paging.ParseLimit(r, paging.DefaultLimit, paging.MaxLimit)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "profile.gems")
	defer cancel()

	hist, err := h.Engine.GetGemHistory(ctx, uid, int64(limit))
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, hist)
}
