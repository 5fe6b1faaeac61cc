// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"strings"
	"time"
)

// AppConfig holds chorehub's own configuration. WAFFLE's CoreConfig covers
// the framework side (ports, TLS, logging, CORS, body limits).
//
// Values come from flags, CHOREHUB_* environment variables and config
// files; see appConfigKeys for names and defaults.
type AppConfig struct {
	// MongoDB
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64

	// Session cookie
	SessionKey    string // HKDF input for the cookie hash and block keys
	SessionName   string
	SessionDomain string // blank means current host
	SessionTTL    time.Duration

	// BaseURL prefixes invite links and the OAuth callback.
	BaseURL string

	// Google sign-in
	GoogleClientID     string
	GoogleClientSecret string

	// Web Push; both keys or neither
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubscriber string

	// Gem estimation (OpenAI-compatible chat completions)
	LLMAPIURL  string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration

	InviteTTL             time.Duration
	ReminderSweepInterval time.Duration

	// Context deadlines; zero keeps the package default
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}

// PushEnabled reports whether Web Push delivery is configured.
func (c AppConfig) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// OAuthCallbackURL is the redirect URI registered with Google.
func (c AppConfig) OAuthCallbackURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/auth/google/callback"
}
