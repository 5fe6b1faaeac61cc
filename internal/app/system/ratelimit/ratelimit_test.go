package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	l := New(3, time.Minute)
	defer l.Stop()
	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if l.Allow("k") {
		t.Error("fourth attempt should be limited")
	}
	if !l.Allow("other") {
		t.Error("a different key should be allowed")
	}
	if got := l.Remaining("k"); got != 0 {
		t.Errorf("Remaining = %d, want 0", got)
	}
	l.Reset("k")
	if got := l.Remaining("k"); got != 3 {
		t.Errorf("Remaining after reset = %d, want 3", got)
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestLimiter_SlidingWindow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}
	l := newLimiter(2, time.Minute, clock.now)

	if !l.Allow("k") {
		t.Fatal("first attempt should be allowed")
	}
	clock.advance(40 * time.Second)
	if !l.Allow("k") {
		t.Fatal("second attempt should be allowed")
	}
	if l.Allow("k") {
		t.Fatal("third attempt inside the window should be limited")
	}
	if got := l.RetryAfter("k"); got != 20*time.Second {
		t.Errorf("RetryAfter = %v, want 20s", got)
	}

	// The first event leaves the window; the second still counts.
	clock.advance(21 * time.Second)
	if got := l.Remaining("k"); got != 1 {
		t.Errorf("Remaining = %d, want 1", got)
	}
	if !l.Allow("k") {
		t.Error("attempt after the oldest event expired should be allowed")
	}
	if l.Allow("k") {
		t.Error("window is full again")
	}
}

func TestLimiter_RetryAfterZeroWhenAllowed(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	l := newLimiter(1, time.Minute, clock.now)
	if got := l.RetryAfter("k"); got != 0 {
		t.Errorf("RetryAfter on a fresh key = %v, want 0", got)
	}
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	l := New(1, time.Minute)
	l.Stop()
	l.Stop()
	if !l.Allow("k") {
		t.Error("a stopped limiter still admits events")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"forwarded first hop", "203.0.113.7, 10.0.0.1", "", "10.0.0.2:5555", "203.0.113.7"},
		{"real ip", "", " 198.51.100.4 ", "10.0.0.2:5555", "198.51.100.4"},
		{"remote with port", "", "", "192.0.2.1:1234", "192.0.2.1"},
		{"remote without port", "", "", "192.0.2.9", "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/invites/join", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJoinLimiter(t *testing.T) {
	jl := NewJoinLimiterWithConfig(100, time.Minute, 2, time.Minute)
	defer jl.Stop()
	r := httptest.NewRequest("POST", "/invites/join", nil)

	for i := 0; i < 2; i++ {
		if ok, reason := jl.Check(r, "u1"); !ok {
			t.Fatalf("attempt %d blocked: %s", i+1, reason)
		}
	}
	ok, reason := jl.Check(r, "u1")
	if ok {
		t.Fatal("third attempt for u1 should be blocked")
	}
	if reason == "" {
		t.Error("expected a reason when blocked")
	}
	if ok, _ := jl.Check(r, "u2"); !ok {
		t.Error("u2 should not share u1's allowance")
	}

	jl.ResetUser("u1")
	if ok, _ := jl.Check(r, "u1"); !ok {
		t.Error("u1 should be allowed after reset")
	}
}

func TestJoinLimiter_PerIP(t *testing.T) {
	jl := NewJoinLimiterWithConfig(1, time.Minute, 100, time.Minute)
	defer jl.Stop()
	r := httptest.NewRequest("POST", "/invites/join", nil)
	r.RemoteAddr = "192.0.2.50:4000"

	if ok, _ := jl.Check(r, "u1"); !ok {
		t.Fatal("first attempt should pass")
	}
	if ok, _ := jl.Check(r, "u2"); ok {
		t.Error("second attempt from the same IP should be blocked")
	}
}
