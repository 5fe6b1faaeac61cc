package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/chorehub/internal/app/engine"
	"github.com/dalemusser/chorehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification is one recorded Notify call.
type Notification struct {
	UserID  primitive.ObjectID
	Payload engine.Payload
	Opts    engine.NotifyOptions
}

// Notifier records notifications. Err, when set, is returned from every call.
type Notifier struct {
	mu   sync.Mutex
	Sent []Notification
	Err  error
}

func (n *Notifier) Notify(_ context.Context, userID primitive.ObjectID, p engine.Payload, opts engine.NotifyOptions) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, Notification{UserID: userID, Payload: p, Opts: opts})
	return n.Err
}

// To returns the notifications sent to userID.
func (n *Notifier) To(userID primitive.ObjectID) []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Notification
	for _, s := range n.Sent {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out
}

// ScheduledReminder is one recorded reminder.
type ScheduledReminder struct {
	TaskID     primitive.ObjectID
	UserID     primitive.ObjectID
	DueAt      time.Time
	DaysBefore int
}

// Reminders keeps reminders keyed by (task, days before) like the
// task_reminders collection, and serves the sweep queries.
type Reminders struct {
	mu   sync.Mutex
	rows []models.Reminder
}

func (r *Reminders) Schedule(_ context.Context, taskID, userID primitive.ObjectID, dueAt time.Time, daysBefore int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := models.Reminder{
		TaskID:     taskID,
		UserID:     userID,
		DaysBefore: daysBefore,
		DueAt:      dueAt,
		SendAt:     dueAt.AddDate(0, 0, -daysBefore),
	}
	for i, old := range r.rows {
		if old.TaskID == taskID && old.DaysBefore == daysBefore {
			row.ID, row.CreatedAt = old.ID, old.CreatedAt
			r.rows[i] = row
			return nil
		}
	}
	row.ID = primitive.NewObjectID()
	row.CreatedAt = time.Now().UTC()
	r.rows = append(r.rows, row)
	return nil
}

// Cancel drops the task's unsent reminders.
func (r *Reminders) Cancel(_ context.Context, taskID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, row := range r.rows {
		if row.TaskID != taskID || row.SentAt != nil {
			kept = append(kept, row)
		}
	}
	r.rows = kept
	return nil
}

// Due returns unsent reminders with SendAt at or before now, oldest first.
func (r *Reminders) Due(_ context.Context, now time.Time, limit int64) ([]models.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Reminder
	for _, row := range r.rows {
		if row.SentAt == nil && !row.SendAt.After(now) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SendAt.Before(out[j].SendAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkSent stamps a reminder once.
func (r *Reminders) MarkSent(_ context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, row := range r.rows {
		if row.ID == id {
			if row.SentAt != nil {
				return false, nil
			}
			t := at
			r.rows[i].SentAt = &t
			return true, nil
		}
	}
	return false, nil
}

// Pending returns the unsent reminders for taskID in scheduling order.
func (r *Reminders) Pending(taskID primitive.ObjectID) []ScheduledReminder {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ScheduledReminder
	for _, row := range r.rows {
		if row.TaskID == taskID && row.SentAt == nil {
			out = append(out, ScheduledReminder{TaskID: row.TaskID, UserID: row.UserID, DueAt: row.DueAt, DaysBefore: row.DaysBefore})
		}
	}
	return out
}

// Estimator is a GemEstimator backed by a function.
type Estimator func(description, rubric string) (int, error)

func (f Estimator) EstimateGems(_ context.Context, description, rubric string) (int, error) {
	return f(description, rubric)
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock reading t.
func NewClock(t time.Time) *Clock { return &Clock{now: t} }

// Now returns the current reading.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
