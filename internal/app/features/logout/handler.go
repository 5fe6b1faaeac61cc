// Package logout ends the cookie session.
package logout

import (
	"net/http"
	"strings"

	"github.com/dalemusser/chorehub/internal/app/system/auth"
	"github.com/dalemusser/chorehub/internal/app/system/jsonio"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
)

// Signer is the part of the session manager logout needs.
type Signer interface {
	SignOut(w http.ResponseWriter, r *http.Request) error
}

type Handler struct {
	Sessions Signer
	Log      *zap.Logger
}

func NewHandler(sessions Signer, logger *zap.Logger) *Handler {
	return &Handler{Sessions: sessions, Log: logger}
}

// ServeLogout expires the session cookie. Browsers land on ?return= when it
// is a local path, else on /. API callers get 204.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	var uid string
	if u, ok := auth.CurrentUser(r); ok {
		uid = u.ID
	}

	if err := h.Sessions.SignOut(w, r); err != nil {
		h.Log.Error("logout: expire session", zap.String("user_id", uid), zap.Error(err))
		jsonio.Fail(w, http.StatusInternalServerError, "internal", "could not sign out")
		return
	}
	if uid != "" {
		h.Log.Info("signed out", zap.String("user_id", uid))
	}

	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Redirect(w, r, urlutil.SafeReturn(query.Get(r, "return"), "", "/"), http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
