// internal/app/features/invites/handler.go
package invites

import (
	"net/http"

	"github.com/dalemusser/chorehub/internal/app/engine"
	"github.com/dalemusser/chorehub/internal/app/features/shared"
	"github.com/dalemusser/chorehub/internal/app/system/jsonio"
	"github.com/dalemusser/chorehub/internal/app/system/ratelimit"
	"github.com/dalemusser/chorehub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler redeems invite links.
type Handler struct {
	Engine  *engine.Service
	Limiter *ratelimit.JoinLimiter
	Log     *zap.Logger
}

func NewHandler(svc *engine.Service, limiter *ratelimit.JoinLimiter, logger *zap.Logger) *Handler {
	if limiter == nil {
		limiter = ratelimit.NewJoinLimiter()
	}
	return &Handler{Engine: svc, Limiter: limiter, Log: logger}
}

type joinRequest struct {
	Token string `json:"token"`
}

// ServeJoin handles POST /invites/join. Unknown and expired tokens get the
// same 404 so a token's existence is not revealed.
func (h *Handler) ServeJoin(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}
	if allowed, reason := h.Limiter.Check(r, uid.Hex()); !allowed {
		h.Log.Warn("invite join rate limited",
			zap.String("user_id", uid.Hex()),
			zap.String("ip", ratelimit.ClientIP(r)))
		w.Header().Set("Retry-After", "60")
		jsonio.Fail(w, http.StatusTooManyRequests, "rate_limited", reason)
		return
	}

	var in joinRequest
	if err := jsonio.Decode(w, r, &in, 0); err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "invites.join")
	defer cancel()

	hh, err := h.Engine.JoinHouseholdByInvite(ctx, in.Token, uid)
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	h.Limiter.ResetUser(uid.Hex())
	hh.InviteLinks = nil
	jsonio.Write(w, http.StatusOK, hh)
}
