package reminders_test

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/chorehub/internal/app/system/reminders"
	"github.com/dalemusser/chorehub/internal/domain/models"
	"github.com/dalemusser/chorehub/internal/testutil/memstore"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var t0 = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db       *memstore.DB
	queue    *memstore.Reminders
	notifier *memstore.Notifier
	clock    *memstore.Clock
	sweeper  *reminders.Sweeper
}

func newFixture() *fixture {
	f := &fixture{
		db:       memstore.New(),
		queue:    &memstore.Reminders{},
		notifier: &memstore.Notifier{},
		clock:    memstore.NewClock(t0),
	}
	f.sweeper = reminders.NewSweeper(f.queue, (*memstore.Tasks)(f.db), f.notifier, zap.NewNop()).WithClock(f.clock.Now)
	return f
}

func (f *fixture) claimedTask(t *testing.T, claimant primitive.ObjectID, due time.Time) models.Task {
	t.Helper()
	task, err := (*memstore.Tasks)(f.db).Create(context.Background(), models.Task{
		HouseholdID: primitive.NewObjectID(),
		CreatorID:   primitive.NewObjectID(),
		Title:       "Clean the gutters",
		Status:      models.TaskClaimed,
		ClaimedBy:   &claimant,
		DueDate:     due,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func TestSweep_DeliversDueOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user := primitive.NewObjectID()
	task := f.claimedTask(t, user, t0.AddDate(0, 0, 5))

	for _, d := range []int{4, 2, 1} {
		_ = f.queue.Schedule(ctx, task.ID, user, task.DueDate, d)
	}

	n, err := f.sweeper.Sweep(ctx)
	if err != nil || n != 0 {
		t.Fatalf("early sweep: n=%d err=%v", n, err)
	}

	f.clock.Advance(24 * time.Hour)
	n, err = f.sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("sent: got %d, want 1", n)
	}
	got := f.notifier.To(user)
	if len(got) != 1 {
		t.Fatalf("notifications: got %d, want 1", len(got))
	}
	if got[0].Payload.Data["type"] != "task_reminder" {
		t.Errorf("type: got %q, want %q", got[0].Payload.Data["type"], "task_reminder")
	}
	if prefs := got[0].Opts.RequiredPreferences; len(prefs) != 1 || prefs[0] != models.PrefTaskReminders {
		t.Errorf("required prefs: got %v", prefs)
	}

	// Nothing new is due until the 2-day mark.
	if n, _ := f.sweeper.Sweep(ctx); n != 0 {
		t.Errorf("repeat sweep sent %d", n)
	}
	if left := f.queue.Pending(task.ID); len(left) != 2 {
		t.Errorf("pending: got %d, want 2", len(left))
	}
}

func TestSweep_SkipsStaleReminders(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *models.Task)
	}{
		{"completed", func(t *models.Task) { t.Status = models.TaskCompleted }},
		{"claimed by someone else", func(t *models.Task) {
			other := primitive.NewObjectID()
			t.ClaimedBy = &other
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()
			user := primitive.NewObjectID()
			task := f.claimedTask(t, user, t0.AddDate(0, 0, 1))
			tt.mutate(&task)
			_, _ = (*memstore.Tasks)(f.db).Create(ctx, task)

			_ = f.queue.Schedule(ctx, task.ID, user, task.DueDate, 1)
			n, err := f.sweeper.Sweep(ctx)
			if err != nil {
				t.Fatalf("Sweep failed: %v", err)
			}
			if n != 0 || len(f.notifier.Sent) != 0 {
				t.Errorf("stale reminder delivered: n=%d sent=%d", n, len(f.notifier.Sent))
			}
			if left := f.queue.Pending(task.ID); len(left) != 0 {
				t.Errorf("stale reminder should be marked sent, pending=%d", len(left))
			}
		})
	}
}

func TestSweep_MissingTask(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_ = f.queue.Schedule(ctx, primitive.NewObjectID(), primitive.NewObjectID(), t0, 1)

	if n, err := f.sweeper.Sweep(ctx); err != nil || n != 0 {
		t.Errorf("Sweep: n=%d err=%v", n, err)
	}
}
