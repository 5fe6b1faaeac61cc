// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys are read from flags (--invite_ttl), CHOREHUB_* environment
// variables (CHOREHUB_INVITE_TTL) and config files, in that precedence.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "chorehub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "chorehub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_ttl", Default: "720h", Desc: "Session cookie lifetime"},

	{Name: "base_url", Default: "http://localhost:3000", Desc: "Public base URL for invite links and the OAuth callback"},

	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	{Name: "vapid_public_key", Default: "", Desc: "Web Push VAPID public key (blank disables push)"},
	{Name: "vapid_private_key", Default: "", Desc: "Web Push VAPID private key"},
	{Name: "vapid_subscriber", Default: "admin@localhost", Desc: "VAPID subscriber email or https URL"},

	{Name: "llm_api_url", Default: "https://api.openai.com/v1/chat/completions", Desc: "Chat-completions endpoint for gem estimates"},
	{Name: "llm_api_key", Default: "", Desc: "API key for gem estimates (blank disables them)"},
	{Name: "llm_model", Default: "gpt-4o-mini", Desc: "Model used for gem estimates"},
	{Name: "llm_timeout", Default: "15s", Desc: "Gem estimate request timeout"},

	{Name: "invite_ttl", Default: "168h", Desc: "Invite link lifetime"},
	{Name: "reminder_sweep_interval", Default: "1m", Desc: "How often due reminders are sent"},

	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document reads"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for lists and single writes"},
	{Name: "timeout_long", Default: "30s", Desc: "Deadline for multi-document transactions"},
}

// LoadConfig loads WAFFLE core config and chorehub's AppConfig.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, v, err := config.LoadWithAppConfig(logger, "CHOREHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         v.String("mongo_uri"),
		MongoDatabase:    v.String("mongo_database"),
		MongoMaxPoolSize: uint64(v.Int("mongo_max_pool_size")),

		SessionKey:    v.String("session_key"),
		SessionName:   v.String("session_name"),
		SessionDomain: v.String("session_domain"),
		SessionTTL:    v.Duration("session_ttl", 30*24*time.Hour),

		BaseURL: v.String("base_url"),

		GoogleClientID:     v.String("google_client_id"),
		GoogleClientSecret: v.String("google_client_secret"),

		VAPIDPublicKey:  v.String("vapid_public_key"),
		VAPIDPrivateKey: v.String("vapid_private_key"),
		VAPIDSubscriber: v.String("vapid_subscriber"),

		LLMAPIURL:  v.String("llm_api_url"),
		LLMAPIKey:  v.String("llm_api_key"),
		LLMModel:   v.String("llm_model"),
		LLMTimeout: v.Duration("llm_timeout", 15*time.Second),

		InviteTTL:             v.Duration("invite_ttl", 7*24*time.Hour),
		ReminderSweepInterval: v.Duration("reminder_sweep_interval", time.Minute),

		TimeoutShort:  v.Duration("timeout_short", 0),
		TimeoutMedium: v.Duration("timeout_medium", 0),
		TimeoutLong:   v.Duration("timeout_long", 0),
	}
	return coreCfg, appCfg, nil
}

// ValidateConfig rejects configurations that would fail later at runtime.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := validateAppConfig(appCfg); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return err
	}
	if appCfg.GoogleClientID == "" || appCfg.GoogleClientSecret == "" {
		logger.Warn("google sign-in not configured; /auth/google will refuse")
	}
	if !appCfg.PushEnabled() {
		logger.Info("web push disabled (no VAPID keys)")
	}
	return nil
}

func validateAppConfig(c AppConfig) error {
	if err := wafflemongo.ValidateURI(c.MongoURI); err != nil {
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if c.MongoDatabase == "" {
		return errors.New("mongo_database is required")
	}
	if c.InviteTTL <= 0 {
		return fmt.Errorf("invite_ttl must be positive, got %s", c.InviteTTL)
	}
	if c.ReminderSweepInterval <= 0 {
		return fmt.Errorf("reminder_sweep_interval must be positive, got %s", c.ReminderSweepInterval)
	}
	if (c.VAPIDPublicKey == "") != (c.VAPIDPrivateKey == "") {
		return errors.New("vapid_public_key and vapid_private_key must be set together")
	}
	return nil
}
