package engine

import (
	"time"

	"github.com/dalemusser/chorehub/internal/app/system/apperr"
	"github.com/dalemusser/chorehub/internal/domain/models"
)

// maxRecurSteps bounds how far NextDueDate walks forward to reach the future.
const maxRecurSteps = 1000

func validateRecurrence(rc *models.RecurrenceConfig) error {
	if rc == nil {
		return nil
	}
	switch rc.Type {
	case models.RecurDaily, models.RecurWeekly, models.RecurMonthly, models.RecurCustom:
	default:
		return apperr.Validation("unknown recurrence type")
	}
	if rc.Interval < 1 {
		return apperr.Validation("recurrence interval must be at least 1")
	}
	for _, d := range rc.DaysOfWeek {
		if d < time.Sunday || d > time.Saturday {
			return apperr.Validation("invalid day of week")
		}
	}
	return nil
}

// nextOccurrence is one recurrence step after from.
func nextOccurrence(from time.Time, rc models.RecurrenceConfig) time.Time {
	interval := rc.Interval
	if interval < 1 {
		interval = 1
	}
	switch rc.Type {
	case models.RecurWeekly:
		if len(rc.DaysOfWeek) == 0 {
			return from.AddDate(0, 0, 7*interval)
		}
		want := make(map[time.Weekday]bool, len(rc.DaysOfWeek))
		for _, d := range rc.DaysOfWeek {
			want[d] = true
		}
		for i := 1; i <= 7; i++ {
			next := from.AddDate(0, 0, i)
			if !want[next.Weekday()] {
				continue
			}
			// Wrapping into the next week skips interval-1 weeks.
			if next.Weekday() <= from.Weekday() {
				next = next.AddDate(0, 0, 7*(interval-1))
			}
			return next
		}
		return from.AddDate(0, 0, 7*interval)
	case models.RecurMonthly:
		return from.AddDate(0, interval, 0)
	default: // daily, custom
		return from.AddDate(0, 0, interval)
	}
}

// NextDueDate steps from the previous due date until it lands after now.
// A zero previous due date steps from now.
func NextDueDate(prev, now time.Time, rc models.RecurrenceConfig) time.Time {
	if prev.IsZero() {
		prev = now
	}
	next := nextOccurrence(prev, rc)
	for i := 0; i < maxRecurSteps && !next.After(now); i++ {
		next = nextOccurrence(next, rc)
	}
	return next
}
