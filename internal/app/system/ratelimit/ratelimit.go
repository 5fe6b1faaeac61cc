// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter admits at most limit events per key in any trailing window of
// length span. It keeps the timestamps of admitted events, so a burst at
// the end of one window cannot be followed by a second burst right after.
// It is safe for concurrent use.
type Limiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	limit  int
	span   time.Duration
	now    func() time.Time
	stop   chan struct{}
	closed bool
}

// New starts a Limiter whose idle keys are swept every 2*span.
func New(limit int, span time.Duration) *Limiter {
	l := newLimiter(limit, span, time.Now)
	go l.sweepLoop(2 * span)
	return l
}

func newLimiter(limit int, span time.Duration, now func() time.Time) *Limiter {
	return &Limiter{
		hits:  make(map[string][]time.Time),
		limit: limit,
		span:  span,
		now:   now,
		stop:  make(chan struct{}),
	}
}

// live drops timestamps older than the window and returns what is left.
// Callers hold l.mu.
func (l *Limiter) live(key string, now time.Time) []time.Time {
	ts := l.hits[key]
	cut := now.Add(-l.span)
	i := 0
	for i < len(ts) && !ts[i].After(cut) {
		i++
	}
	ts = ts[i:]
	if len(ts) == 0 {
		delete(l.hits, key)
		return nil
	}
	l.hits[key] = ts
	return ts
}

// Allow records an event for key and reports whether it was admitted.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	ts := l.live(key, now)
	if len(ts) >= l.limit {
		return false
	}
	l.hits[key] = append(ts, now)
	return true
}

// Remaining is how many more events key may have right now.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := l.limit - len(l.live(key, l.now())); n > 0 {
		return n
	}
	return 0
}

// RetryAfter is how long until key is admitted again; zero if it is now.
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	ts := l.live(key, now)
	if len(ts) < l.limit {
		return 0
	}
	return ts[len(ts)-l.limit].Add(l.span).Sub(now)
}

// Reset forgets every event for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.hits, key)
}

// Stop ends the background sweep. The Limiter stays usable.
func (l *Limiter) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.stop)
	}
}

func (l *Limiter) sweepLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
			l.mu.Lock()
			now := l.now()
			for key := range l.hits {
				l.live(key, now)
			}
			l.mu.Unlock()
		}
	}
}

// ClientIP returns the caller's address: the first X-Forwarded-For hop,
// then X-Real-IP, then RemoteAddr without its port.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// JoinLimiter throttles invite-link redemption. Tokens are long random
// strings, so the limits only need to stop a client from walking the token
// space, counted both per IP and per signed-in user.
type JoinLimiter struct {
	byIP   *Limiter
	byUser *Limiter
}

// NewJoinLimiter allows 20 attempts per IP per minute and 10 per user per
// 10 minutes.
func NewJoinLimiter() *JoinLimiter {
	return NewJoinLimiterWithConfig(20, time.Minute, 10, 10*time.Minute)
}

// NewJoinLimiterWithConfig creates a join limiter with custom limits.
func NewJoinLimiterWithConfig(ipLimit int, ipSpan time.Duration, userLimit int, userSpan time.Duration) *JoinLimiter {
	return &JoinLimiter{
		byIP:   New(ipLimit, ipSpan),
		byUser: New(userLimit, userSpan),
	}
}

// Check reports whether a join attempt by userID from r may proceed, and
// a user-facing reason when it may not.
func (jl *JoinLimiter) Check(r *http.Request, userID string) (bool, string) {
	if !jl.byIP.Allow(ClientIP(r)) {
		return false, "Too many invite attempts. Please wait a minute before trying again."
	}
	if userID != "" && !jl.byUser.Allow(userID) {
		return false, "Too many invite attempts for this account. Please wait a few minutes."
	}
	return true, ""
}

// ResetUser clears the per-user count after a successful join.
func (jl *JoinLimiter) ResetUser(userID string) {
	if userID != "" {
		jl.byUser.Reset(userID)
	}
}

// Stop ends both background sweeps.
func (jl *JoinLimiter) Stop() {
	jl.byIP.Stop()
	jl.byUser.Stop()
}
