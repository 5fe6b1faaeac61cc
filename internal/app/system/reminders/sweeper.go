// Package reminders delivers due task reminders.
package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/chorehub/internal/app/engine"
	"github.com/dalemusser/chorehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultBatch bounds how many reminders one sweep handles.
const DefaultBatch = 100

// Store is the reminder queue.
type Store interface {
	Due(ctx context.Context, now time.Time, limit int64) ([]models.Reminder, error)
	MarkSent(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
}

// Tasks loads the task a reminder points at.
type Tasks interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Task, error)
}

// Sweeper sends every reminder whose time has come, once.
type Sweeper struct {
	store    Store
	tasks    Tasks
	notifier engine.Notifier
	log      *zap.Logger
	now      func() time.Time
	batch    int64
}

// NewSweeper returns a Sweeper reading the wall clock.
func NewSweeper(store Store, tasks Tasks, notifier engine.Notifier, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		store:    store,
		tasks:    tasks,
		notifier: notifier,
		log:      logger,
		now:      func() time.Time { return time.Now().UTC() },
		batch:    DefaultBatch,
	}
}

// WithClock replaces the time source.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Sweep marks each due reminder sent and then notifies its user. A reminder
// whose task is no longer claimed by that user is marked sent silently.
// It returns the number of notifications attempted.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.store.Due(ctx, now, s.batch)
	if err != nil {
		return 0, fmt.Errorf("load due reminders: %w", err)
	}

	sent := 0
	for _, r := range due {
		won, err := s.store.MarkSent(ctx, r.ID, now)
		if err != nil {
			return sent, fmt.Errorf("mark reminder sent: %w", err)
		}
		if !won {
			continue
		}

		t, err := s.tasks.GetByID(ctx, r.TaskID)
		if err == mongo.ErrNoDocuments {
			continue
		}
		if err != nil {
			return sent, fmt.Errorf("load task: %w", err)
		}
		if t.Status != models.TaskClaimed || !t.IsClaimant(r.UserID) {
			continue
		}

		sent++
		err = s.notifier.Notify(ctx, r.UserID, payload(t, r), engine.NotifyOptions{
			RequiredPreferences: []string{models.PrefTaskReminders},
		})
		if err != nil {
			s.log.Warn("reminder notification failed",
				zap.String("task_id", r.TaskID.Hex()),
				zap.String("user_id", r.UserID.Hex()),
				zap.Error(err))
		}
	}
	return sent, nil
}

func payload(t models.Task, r models.Reminder) engine.Payload {
	when := fmt.Sprintf("in %d days", r.DaysBefore)
	if r.DaysBefore == 1 {
		when = "tomorrow"
	}
	return engine.Payload{
		Title: "Reminder: " + t.Title,
		Body:  fmt.Sprintf("%q is due %s.", t.Title, when),
		Data: map[string]string{
			"type":        "task_reminder",
			"taskId":      t.ID.Hex(),
			"householdId": t.HouseholdID.Hex(),
		},
	}
}
