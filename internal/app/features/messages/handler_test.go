package messages_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/dalemusser/chorehub/internal/app/engine"
	"github.com/dalemusser/chorehub/internal/app/features/messages"
	"github.com/dalemusser/chorehub/internal/domain/models"
	"github.com/dalemusser/chorehub/internal/testutil"
	"github.com/dalemusser/chorehub/internal/testutil/memstore"
	"go.uber.org/zap"
)

type fixture struct {
	db       *memstore.DB
	notifier *memstore.Notifier
	router   http.Handler
	hh       models.Household
	ann      models.User
	bob      models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: memstore.New(), notifier: &memstore.Notifier{}}
	deps := f.db.Deps()
	deps.Log = zap.NewNop()
	deps.Notifier = f.notifier
	svc := engine.New(deps)
	f.router = messages.Routes(messages.NewHandler(svc, zap.NewNop()))

	f.ann = f.db.PutUser(models.User{DisplayName: "Ann", Gems: 10})
	f.bob = f.db.PutUser(models.User{DisplayName: "Bob"})
	ctx := context.Background()
	hh, err := svc.CreateHousehold(ctx, "Home", f.ann.ID)
	if err != nil {
		t.Fatalf("CreateHousehold: %v", err)
	}
	inv, err := svc.GenerateInviteLink(ctx, hh.ID, f.ann.ID)
	if err != nil {
		t.Fatalf("GenerateInviteLink: %v", err)
	}
	if _, err := svc.JoinHouseholdByInvite(ctx, inv.Token, f.bob.ID); err != nil {
		t.Fatalf("JoinHouseholdByInvite: %v", err)
	}
	f.hh = f.db.Household(hh.ID)
	return f
}

func (f *fixture) do(u models.User, method, target string, body any) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	f.router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(method, target, testutil.UserFrom(u), body))
	return rec
}

func (f *fixture) send(from, to models.User, body string, gems int) *testutil.ResponseRecorder {
	return f.do(from, "POST", "/", map[string]any{
		"household_id": f.hh.ID.Hex(),
		"recipient_id": to.ID.Hex(),
		"body":         body,
		"gems":         gems,
	})
}

func TestSendGift(t *testing.T) {
	f := newFixture(t)

	rec := f.send(f.ann, f.bob, "thanks for the <em>dishes</em>", 4)
	rec.AssertStatus(t, http.StatusCreated)
	var msg models.DirectMessage
	rec.DecodeJSON(t, &msg)
	if msg.Body != "thanks for the dishes" {
		t.Errorf("body: got %q, want %q", msg.Body, "thanks for the dishes")
	}
	if got := f.db.User(f.ann.ID).Gems; got != 6 {
		t.Errorf("sender gems: got %d, want 6", got)
	}
	if got := f.db.User(f.bob.ID).Gems; got != 4 {
		t.Errorf("recipient gems: got %d, want 4", got)
	}
	if n := len(f.notifier.To(f.bob.ID)); n != 1 {
		t.Errorf("notifications to recipient: got %d, want 1", n)
	}
}

func TestSendGift_NotEnoughGems(t *testing.T) {
	f := newFixture(t)

	rec := f.send(f.bob, f.ann, "here you go", 1)
	rec.AssertStatus(t, http.StatusUnprocessableEntity)
	rec.AssertContains(t, engine.MsgNotEnoughGems)
	if f.db.MessageCount() != 0 {
		t.Error("a failed gift must not store a message")
	}
	if got := f.db.User(f.ann.ID).Gems; got != 10 {
		t.Errorf("recipient gems changed to %d", got)
	}
}

func TestSend_Validation(t *testing.T) {
	f := newFixture(t)
	outsider := f.db.PutUser(models.User{DisplayName: "Eve"})

	tests := []struct {
		name   string
		from   models.User
		to     models.User
		body   string
		gems   int
		status int
	}{
		{"empty body", f.ann, f.bob, "  ", 0, http.StatusBadRequest},
		{"markup only", f.ann, f.bob, "<b></b>", 0, http.StatusBadRequest},
		{"too long", f.ann, f.bob, strings.Repeat("x", engine.MaxMessageLength+1), 0, http.StatusBadRequest},
		{"negative gems", f.ann, f.bob, "hi", -1, http.StatusBadRequest},
		{"self", f.ann, f.ann, "hi", 0, http.StatusBadRequest},
		{"recipient outside", f.ann, outsider, "hi", 0, http.StatusNotFound},
		{"sender outside", outsider, f.ann, "hi", 0, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.send(tt.from, tt.to, tt.body, tt.gems).AssertStatus(t, tt.status)
		})
	}

	rec := f.do(f.ann, "POST", "/", map[string]any{"household_id": "x", "recipient_id": f.bob.ID.Hex(), "body": "hi"})
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestConversationAndRead(t *testing.T) {
	f := newFixture(t)
	f.send(f.ann, f.bob, "one", 0).AssertStatus(t, http.StatusCreated)
	f.send(f.bob, f.ann, "two", 0).AssertStatus(t, http.StatusCreated)
	rec := f.send(f.ann, f.bob, "three", 0)
	rec.AssertStatus(t, http.StatusCreated)
	var last models.DirectMessage
	rec.DecodeJSON(t, &last)

	var conv struct {
		Messages []models.DirectMessage `json:"messages"`
	}
	rec = f.do(f.bob, "GET", "/conversation?household_id="+f.hh.ID.Hex()+"&with="+f.ann.ID.Hex(), nil)
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &conv)
	if len(conv.Messages) != 3 {
		t.Fatalf("conversation length: got %d, want 3", len(conv.Messages))
	}

	rec = f.do(f.bob, "GET", "/conversation?household_id="+f.hh.ID.Hex()+"&with="+f.ann.ID.Hex()+"&limit=1", nil)
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &conv)
	if len(conv.Messages) != 1 {
		t.Errorf("limited conversation length: got %d, want 1", len(conv.Messages))
	}

	var unread struct {
		Unread int64 `json:"unread"`
	}
	rec = f.do(f.bob, "GET", "/unread", nil)
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &unread)
	if unread.Unread != 2 {
		t.Errorf("unread: got %d, want 2", unread.Unread)
	}

	f.do(f.ann, "POST", "/"+last.ID.Hex()+"/read", nil).AssertStatus(t, http.StatusForbidden)

	rec = f.do(f.bob, "POST", "/"+last.ID.Hex()+"/read", nil)
	rec.AssertStatus(t, http.StatusOK)
	var read models.DirectMessage
	rec.DecodeJSON(t, &read)
	if read.ReadAt == nil {
		t.Error("read_at not set")
	}

	rec = f.do(f.bob, "GET", "/unread", nil)
	rec.DecodeJSON(t, &unread)
	if unread.Unread != 1 {
		t.Errorf("unread after read: got %d, want 1", unread.Unread)
	}
}
