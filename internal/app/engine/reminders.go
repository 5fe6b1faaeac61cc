package engine

import (
	"context"

	"github.com/dalemusser/chorehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ReminderOffsets are the days before the due date at which a claimant is
// reminded.
var ReminderOffsets = []int{7, 4, 2, 1}

// scheduleReminders emits one reminder per offset that is still in the
// future. Failures are logged; the claim stands regardless.
func (s *Service) scheduleReminders(ctx context.Context, t models.Task, claimant primitive.ObjectID) {
	if s.reminders == nil || t.DueDate.IsZero() {
		return
	}
	now := s.now()
	for _, d := range ReminderOffsets {
		if !t.DueDate.AddDate(0, 0, -d).After(now) {
			continue
		}
		if err := s.reminders.Schedule(ctx, t.ID, claimant, t.DueDate, d); err != nil {
			s.log.Warn("schedule reminder failed",
				zap.String("task_id", t.ID.Hex()),
				zap.Int("days_before", d),
				zap.Error(err))
		}
	}
}

// cancelReminders drops the unsent reminders of a task leaving claimed.
func (s *Service) cancelReminders(ctx context.Context, taskID primitive.ObjectID) {
	if s.reminders == nil {
		return
	}
	if err := s.reminders.Cancel(ctx, taskID); err != nil {
		s.log.Warn("cancel reminders failed", zap.String("task_id", taskID.Hex()), zap.Error(err))
	}
}
