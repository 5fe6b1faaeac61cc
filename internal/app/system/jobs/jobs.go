// internal/app/system/jobs/jobs.go
package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job is a named piece of periodic background work.
type Job struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration // per run; zero means Interval
	Run      func(ctx context.Context) error
}

// Sweeper delivers due reminders.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Cleaner removes expired rows.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// ReminderSweepJob delivers due task reminders every interval.
func ReminderSweepJob(s Sweeper, logger *zap.Logger, interval time.Duration) Job {
	return Job{
		Name:     "reminder-sweep",
		Interval: interval,
		Run: func(ctx context.Context) error {
			n, err := s.Sweep(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("sent task reminders", zap.Int("count", n))
			}
			return nil
		},
	}
}

// OAuthStateCleanupJob removes expired OAuth state tokens.
// This is a backup for when MongoDB's TTL index cleanup is delayed.
func OAuthStateCleanupJob(c Cleaner, logger *zap.Logger) Job {
	return Job{
		Name:     "oauth-state-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			count, err := c.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("cleaned up expired OAuth states", zap.Int64("count", count))
			}
			return nil
		},
	}
}
