// internal/app/features/messages/handler.go
package messages

import (
	"net/http"

	"github.com/dalemusser/chorehub/internal/app/engine"
	"github.com/dalemusser/chorehub/internal/app/features/shared"
	"github.com/dalemusser/chorehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/chorehub/internal/app/system/jsonio"
	"github.com/dalemusser/chorehub/internal/app/system/paging"
	"github.com/dalemusser/chorehub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

// Handler serves direct messages and gem gifts.
type Handler struct {
	Engine *engine.Service
	Log    *zap.Logger
}

func NewHandler(svc *engine.Service, logger *zap.Logger) *Handler {
	return &Handler{Engine: svc, Log: logger}
}

type sendRequest struct {
	HouseholdID string `json:"household_id"`
	RecipientID string `json:"recipient_id"`
	Body        string `json:"body"`
	Gems        int    `json:"gems"`
}

// ServeSend handles POST /messages. A positive gems value gifts that many
// gems to the recipient along with the message.
func (h *Handler) ServeSend(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}
	var in sendRequest
	if err := jsonio.Decode(w, r, &in, 0); err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	hid, err := shared.ObjectIDValue("household_id", in.HouseholdID)
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	rid, err := shared.ObjectIDValue("recipient_id", in.RecipientID)
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "messages.send")
	defer cancel()

	msg, err := h.Engine.SendDirectMessage(ctx, engine.SendMessageInput{
		HouseholdID: hid,
		SenderID:    uid,
		RecipientID: rid,
		Body:        htmlsanitize.PlainText(in.Body),
		Gems:        in.Gems,
	})
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusCreated, msg)
}

// ServeConversation handles GET /messages/conversation?household_id=…&with=….
func (h *Handler) ServeConversation(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}
	hid, err := shared.ObjectIDValue("household_id", query.Get(r, "household_id"))
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	other, err := shared.ObjectIDValue("with", query.Get(r, "with"))
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	limit := paging.ParseLimit(r, paging.DefaultLimit, paging.MaxLimit)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "messages.conversation")
	defer cancel()

	list, err := h.Engine.ListConversation(ctx, hid, uid, other, int64(limit))
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, map[string]any{"messages": list})
}

// ServeMarkRead handles POST /messages/{messageID}/read.
func (h *Handler) ServeMarkRead(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}
	mid, err := shared.ObjectIDParam(r, "messageID")
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "messages.read")
	defer cancel()

	msg, err := h.Engine.MarkMessageRead(ctx, mid, uid)
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, msg)
}

// ServeUnread handles GET /messages/unread.
func (h *Handler) ServeUnread(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.UserID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "messages.unread")
	defer cancel()

	n, err := h.Engine.UnreadMessageCount(ctx, uid)
	if err != nil {
		jsonio.Error(w, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, map[string]int64{"unread": n})
}
