package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/chorehub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	if _, err := auth.NewSessionManager("", "s", "", time.Hour, false, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty session key")
	}
}

func TestRequireSignedIn_NoUser_API_Returns401(t *testing.T) {
	sm := newTestSessionManager(t)
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()

	sm.RequireSignedIn(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(rec.Body.String(), `"unauthenticated"`) {
		t.Errorf("body: got %q, want unauthenticated error code", rec.Body.String())
	}
}

func TestRequireSignedIn_NoUser_HTML_Redirects(t *testing.T) {
	sm := newTestSessionManager(t)
	req := httptest.NewRequest(http.MethodGet, "/invite/abc", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()

	sm.RequireSignedIn(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, auth.LoginPath+"?return=") {
		t.Errorf("location: got %q", loc)
	}
}

func TestRequireSignedIn_MalformedID_Rejected(t *testing.T) {
	sm := newTestSessionManager(t)
	req := auth.WithTestUser(httptest.NewRequest(http.MethodGet, "/api/me", nil), &auth.SessionUser{ID: "not-hex"})
	rec := httptest.NewRecorder()

	sm.RequireSignedIn(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestSignInRoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)
	id := primitive.NewObjectID()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback", nil)
	if err := sm.SignIn(rec, req, auth.SessionUser{ID: id.Hex(), Name: "Ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no session cookie set")
	}
	if !cookies[0].HttpOnly {
		t.Error("session cookie is not HttpOnly")
	}

	next := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	for _, c := range cookies {
		next.AddCookie(c)
	}
	var got primitive.ObjectID
	var name string
	h := sm.LoadSessionUser(sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.UserID(r)
		u, _ := auth.CurrentUser(r)
		name = u.Name
		w.WriteHeader(http.StatusOK)
	})))
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, next)

	if rec2.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec2.Code)
	}
	if got != id || name != "Ada" {
		t.Errorf("user: got %s/%q, want %s/%q", got.Hex(), name, id.Hex(), "Ada")
	}
}

func TestSignOutExpiresCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	rec := httptest.NewRecorder()
	if err := sm.SignOut(rec, httptest.NewRequest(http.MethodPost, "/logout", nil)); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 || cookies[0].MaxAge >= 0 {
		t.Errorf("expected an expiring cookie, got %+v", cookies)
	}
}

func TestTamperedCookieIgnored(t *testing.T) {
	sm := newTestSessionManager(t)
	other, err := auth.NewSessionManager("a-completely-different-session-key-0123", "test-session", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	rec := httptest.NewRecorder()
	if err := other.SignIn(rec, httptest.NewRequest(http.MethodGet, "/", nil), auth.SessionUser{ID: primitive.NewObjectID().Hex()}); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	rec2 := httptest.NewRecorder()
	sm.LoadSessionUser(sm.RequireSignedIn(okHandler())).ServeHTTP(rec2, req)
	if rec2.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec2.Code)
	}
}
