// internal/app/features/pushsubs/handler.go
package pushsubs

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/chorehub/internal/app/features/shared"
	pushstore "github.com/dalemusser/chorehub/internal/app/store/pushsubs"
	"github.com/dalemusser/chorehub/internal/app/system/apperr"
	"github.com/dalemusser/chorehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/chorehub/internal/app/system/jsonio"
	"github.com/dalemusser/chorehub/internal/app/system/timeouts"
	"github.com/dalemusser/chorehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Store is the subset of the push subscription store the handlers use.
type Store interface {
	Save(ctx context.Context, sub models.PushSubscription) (models.PushSubscription, error)
	Delete(ctx context.Context, userID primitive.ObjectID, endpoint string) (bool, error)
}

// Handler registers and removes browser push subscriptions.
type Handler struct {
	Store     Store
	PublicKey string
	Log       *zap.Logger
}

func NewHandler(store Store, vapidPublicKey string, logger *zap.Logger) *Handler {
	return &Handler{Store: store, PublicKey: vapidPublicKey, Log: logger}
}

// subscriptionRequest mirrors the browser's PushSubscription.toJSON().
type subscriptionRequest struct {
	Endpoint       string   `json:"endpoint"`
	ExpirationTime *float64 `json:"expirationTime"`
	Keys           struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
	DeviceName string `json:"device_name"`
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// ServePublicKey handles GET /push/vapid-public-key. It answers 404 when
// push is not configured so clients skip subscribing.
func (h *Handler) ServePublicKey(w http.ResponseWriter, r *http.Request) {
	if h.PublicKey == "" {
		jsonio.Fail(w, http.StatusNotFound, "push_disabled", "push notifications are not configured")
		return
	}
	jsonio.Write(w, http.StatusOK, map[string]string{"public_key": h.PublicKey})
}

// ServeSubscribe handles POST /push/subscriptions.
func (h *Handler) ServeSubscribe(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}
	var in subscriptionRequest
	if err := jsonio.Decode(w, r, &in, 0); err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	if !strings.HasPrefix(strings.TrimSpace(in.Endpoint), "https://") {
		jsonio.Error(w, h.Log, apperr.Validation("endpoint must be an https URL"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "push.subscribe")
	defer cancel()

	sub, err := h.Store.Save(ctx, models.PushSubscription{
		UserID:     uid,
		Endpoint:   in.Endpoint,
		P256dhKey:  in.Keys.P256dh,
		AuthKey:    in.Keys.Auth,
		DeviceName: htmlsanitize.Line(in.DeviceName),
	})
	if errors.Is(err, pushstore.ErrIncomplete) {
		jsonio.Error(w, h.Log, apperr.Validation(err.Error()))
		return
	}
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusCreated, sub)
}

// ServeUnsubscribe handles DELETE /push/subscriptions.
func (h *Handler) ServeUnsubscribe(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}
	var in unsubscribeRequest
	if err := jsonio.Decode(w, r, &in, 0); err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "push.unsubscribe")
	defer cancel()

	removed, err := h.Store.Delete(ctx, uid, in.Endpoint)
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	if !removed {
		jsonio.Error(w, h.Log, apperr.NotFound("subscription not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
