package reminderstore_test

import (
	"testing"
	"time"

	reminderstore "github.com/dalemusser/chorehub/internal/app/store/reminders"
	"github.com/dalemusser/chorehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_ScheduleIsKeyed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := reminderstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	task, user := primitive.NewObjectID(), primitive.NewObjectID()
	due := time.Date(2025, 3, 20, 17, 0, 0, 0, time.UTC)

	for _, d := range []int{7, 4, 4, 2} {
		if err := store.Schedule(ctx, task, user, due, d); err != nil {
			t.Fatalf("Schedule(%d) failed: %v", d, err)
		}
	}

	got, err := store.ListByTask(ctx, task)
	if err != nil {
		t.Fatalf("ListByTask failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 reminders, got %d", len(got))
	}
	want := due.AddDate(0, 0, -7)
	if !got[0].SendAt.Equal(want) {
		t.Errorf("first SendAt: got %v, want %v", got[0].SendAt, want)
	}
}

func TestStore_DueAndMarkSent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := reminderstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	task, user := primitive.NewObjectID(), primitive.NewObjectID()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	due := now.AddDate(0, 0, 3)

	// 4 days before is in the past, 2 and 1 days before are still ahead.
	for _, d := range []int{4, 2, 1} {
		if err := store.Schedule(ctx, task, user, due, d); err != nil {
			t.Fatalf("Schedule failed: %v", err)
		}
	}

	ready, err := store.Due(ctx, now, 10)
	if err != nil {
		t.Fatalf("Due failed: %v", err)
	}
	if len(ready) != 1 || ready[0].DaysBefore != 4 {
		t.Fatalf("expected only the 4-day reminder, got %+v", ready)
	}

	ok, err := store.MarkSent(ctx, ready[0].ID, now)
	if err != nil || !ok {
		t.Fatalf("MarkSent: ok=%v err=%v", ok, err)
	}
	if ok, _ := store.MarkSent(ctx, ready[0].ID, now); ok {
		t.Error("second MarkSent should report false")
	}

	ready, _ = store.Due(ctx, now, 10)
	if len(ready) != 0 {
		t.Errorf("sent reminder is still due: %+v", ready)
	}
}

func TestStore_CancelKeepsSent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := reminderstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	task, user := primitive.NewObjectID(), primitive.NewObjectID()
	now := time.Now().UTC()
	due := now.AddDate(0, 0, 3)
	for _, d := range []int{4, 2} {
		if err := store.Schedule(ctx, task, user, due, d); err != nil {
			t.Fatalf("Schedule failed: %v", err)
		}
	}
	ready, _ := store.Due(ctx, now, 10)
	if len(ready) != 1 {
		t.Fatalf("expected one due reminder, got %d", len(ready))
	}
	if _, err := store.MarkSent(ctx, ready[0].ID, now); err != nil {
		t.Fatalf("MarkSent failed: %v", err)
	}

	if err := store.Cancel(ctx, task); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	left, _ := store.ListByTask(ctx, task)
	if len(left) != 1 || left[0].SentAt == nil {
		t.Errorf("expected only the sent reminder to remain, got %+v", left)
	}
}
