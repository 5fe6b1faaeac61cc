// Package timeouts holds the context deadlines used by handlers and workers.
//
//   - Ping: health checks
//   - Short: single-document reads such as a task or profile
//   - Medium: lists and single-collection writes
//   - Long: transactions spanning users, tasks and the gem ledger
package timeouts

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config is one set of deadlines.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// Defaults is what the process starts with.
var Defaults = Config{
	Ping:   2 * time.Second,
	Short:  5 * time.Second,
	Medium: 10 * time.Second,
	Long:   30 * time.Second,
}

var active atomic.Pointer[Config]

func init() { Reset() }

func Ping() time.Duration   { return active.Load().Ping }
func Short() time.Duration  { return active.Load().Short }
func Medium() time.Duration { return active.Load().Medium }
func Long() time.Duration   { return active.Load().Long }

// Current returns a copy of the active deadlines.
func Current() Config { return *active.Load() }

// merge overlays the positive fields of o on c.
func (c Config) merge(o Config) Config {
	pick := func(cur, next time.Duration) time.Duration {
		if next > 0 {
			return next
		}
		return cur
	}
	return Config{
		Ping:   pick(c.Ping, o.Ping),
		Short:  pick(c.Short, o.Short),
		Medium: pick(c.Medium, o.Medium),
		Long:   pick(c.Long, o.Long),
	}
}

// Configure swaps in cfg. Zero or negative fields keep their current value.
// Readers always see a whole set, never a half-applied one.
func Configure(cfg Config) {
	for {
		cur := active.Load()
		next := cur.merge(cfg)
		if active.CompareAndSwap(cur, &next) {
			return
		}
	}
}

// Reset restores Defaults.
func Reset() {
	d := Defaults
	active.Store(&d)
}

// WithTimeout is context.WithTimeout whose cancel func logs a warning
// naming op when the deadline, rather than the caller, ended the work.
func WithTimeout(parent context.Context, d time.Duration, log *zap.Logger, op string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	return ctx, func() {
		expired := errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil
		cancel()
		if expired && log != nil {
			log.Warn("deadline exceeded", zap.String("op", op), zap.Duration("after", d))
		}
	}
}
