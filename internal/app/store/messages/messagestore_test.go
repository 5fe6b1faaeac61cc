package messagestore_test

import (
	"testing"
	"time"

	messagestore "github.com/dalemusser/chorehub/internal/app/store/messages"
	"github.com/dalemusser/chorehub/internal/domain/models"
	"github.com/dalemusser/chorehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Conversation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := messagestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	hid := primitive.NewObjectID()
	a, b, c := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	base := time.Now().UTC().Add(-time.Hour)

	send := func(from, to primitive.ObjectID, body string, at time.Time) {
		t.Helper()
		if _, err := store.Create(ctx, models.DirectMessage{HouseholdID: hid, SenderID: from, RecipientID: to, Body: body, CreatedAt: at}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	send(a, b, "one", base)
	send(b, a, "two", base.Add(time.Minute))
	send(a, b, "three", base.Add(2*time.Minute))
	send(a, c, "elsewhere", base.Add(3*time.Minute))

	got, err := store.ListConversation(ctx, hid, b, a, 0)
	if err != nil {
		t.Fatalf("ListConversation failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	want := []string{"one", "two", "three"}
	for i, m := range got {
		if m.Body != want[i] {
			t.Errorf("message %d: got %q, want %q", i, m.Body, want[i])
		}
	}

	latest, _ := store.ListConversation(ctx, hid, a, b, 2)
	if len(latest) != 2 || latest[0].Body != "two" || latest[1].Body != "three" {
		t.Errorf("limit should keep the latest messages in order, got %+v", latest)
	}

	other, _ := store.ListConversation(ctx, primitive.NewObjectID(), a, b, 0)
	if len(other) != 0 {
		t.Errorf("other household: expected no messages, got %d", len(other))
	}
}

func TestStore_MarkRead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := messagestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	to := primitive.NewObjectID()
	m, err := store.Create(ctx, models.DirectMessage{HouseholdID: primitive.NewObjectID(), SenderID: primitive.NewObjectID(), RecipientID: to, Body: "hi", Gems: 2})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if n, _ := store.UnreadCount(ctx, to); n != 1 {
		t.Errorf("UnreadCount: got %d, want 1", n)
	}

	first := time.Now().UTC().Truncate(time.Millisecond)
	ok, err := store.MarkRead(ctx, m.ID, first)
	if err != nil || !ok {
		t.Fatalf("MarkRead: ok=%v err=%v", ok, err)
	}
	ok, err = store.MarkRead(ctx, m.ID, first.Add(time.Hour))
	if err != nil || ok {
		t.Errorf("second MarkRead: ok=%v err=%v", ok, err)
	}

	got, _ := store.GetByID(ctx, m.ID)
	if got.ReadAt == nil || !got.ReadAt.Equal(first) {
		t.Errorf("ReadAt: got %v, want %v", got.ReadAt, first)
	}
	if n, _ := store.UnreadCount(ctx, to); n != 0 {
		t.Errorf("UnreadCount after read: got %d, want 0", n)
	}
}
