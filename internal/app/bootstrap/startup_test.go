package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/chorehub/internal/app/engine"
	"github.com/dalemusser/chorehub/internal/testutil"
	"github.com/dalemusser/chorehub/internal/testutil/memstore"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:              "mongodb://localhost:27017",
		MongoDatabase:         "chorehub_test",
		SessionKey:            "test-session-key-for-testing-only-0123",
		SessionName:           "chorehub-session",
		SessionTTL:            time.Hour,
		BaseURL:               "http://localhost:3000/",
		InviteTTL:             168 * time.Hour,
		ReminderSweepInterval: time.Minute,
	}
}

func TestValidateAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr string
	}{
		{"valid", func(*AppConfig) {}, ""},
		{"bad uri", func(c *AppConfig) { c.MongoURI = "postgres://nope" }, "invalid MongoDB URI"},
		{"no database", func(c *AppConfig) { c.MongoDatabase = "" }, "mongo_database"},
		{"zero invite ttl", func(c *AppConfig) { c.InviteTTL = 0 }, "invite_ttl"},
		{"negative sweep", func(c *AppConfig) { c.ReminderSweepInterval = -time.Second }, "reminder_sweep_interval"},
		{"public key only", func(c *AppConfig) { c.VAPIDPublicKey = "pub" }, "vapid"},
		{"private key only", func(c *AppConfig) { c.VAPIDPrivateKey = "priv" }, "vapid"},
		{"both keys", func(c *AppConfig) { c.VAPIDPublicKey, c.VAPIDPrivateKey = "pub", "priv" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := validateAppConfig(c)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error: got %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestOAuthCallbackURL(t *testing.T) {
	c := validConfig()
	if got, want := c.OAuthCallbackURL(), "http://localhost:3000/auth/google/callback"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildHandler_RequiresStartup(t *testing.T) {
	svcMu.Lock()
	svc = nil
	svcMu.Unlock()
	if _, err := BuildHandler(&config.CoreConfig{Env: "dev"}, validConfig(), DBDeps{}, testLogger()); err == nil {
		t.Fatal("expected an error when Startup has not run")
	}
}

// withMemServices installs services backed by memstore for routing tests.
func withMemServices(t *testing.T) {
	t.Helper()
	deps := memstore.New().Deps()
	deps.Log = testLogger()
	svcMu.Lock()
	svc = &services{Engine: engine.New(deps)}
	svcMu.Unlock()
	t.Cleanup(func() {
		svcMu.Lock()
		svc = nil
		svcMu.Unlock()
	})
}

func TestBuildHandler_ProtectsAPI(t *testing.T) {
	withMemServices(t)
	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, validConfig(), DBDeps{}, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}

	for _, path := range []string{"/me", "/tasks?household_id=x", "/messages/unread", "/push/vapid-public-key"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", path, nil)
			req.Header.Set("Accept", "application/json")
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status: got %d, want 401", rec.Code)
			}
		})
	}
}

func TestBuildHandler_BrowserRedirectsToSignIn(t *testing.T) {
	withMemServices(t)
	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, validConfig(), DBDeps{}, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Accept", "text/html")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/auth/google?return=%2Fme" {
		t.Errorf("Location: got %q", loc)
	}
}

func TestBuildHandler_LogoutIsPublic(t *testing.T) {
	withMemServices(t)
	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, validConfig(), DBDeps{}, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/logout", nil)
	req.Header.Set("Accept", "application/json")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status: got %d, want 204", rec.Code)
	}
}

func TestStartupAndShutdown(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg := validConfig()
	deps := DBDeps{MongoDatabase: db}
	if err := Startup(ctx, &config.CoreConfig{Env: "dev"}, cfg, deps, testLogger()); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	s, err := currentServices()
	if err != nil {
		t.Fatalf("currentServices: %v", err)
	}
	if s.Engine == nil || s.OAuthStates == nil || s.PushSubs == nil || s.JoinLimiter == nil || s.Workers == nil {
		t.Fatal("Startup left a service unset")
	}

	if err := Shutdown(context.Background(), &config.CoreConfig{}, cfg, deps, testLogger()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if _, err := currentServices(); err == nil {
		t.Error("services should be cleared after Shutdown")
	}
}
