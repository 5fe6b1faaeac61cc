// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/chorehub/internal/app/engine"
	"github.com/dalemusser/chorehub/internal/app/system/auth"
	"github.com/dalemusser/chorehub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	providerGoogle = "google"
	stateTTL       = 10 * time.Minute
	userInfoURL    = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// StateStore keeps one-time OAuth state tokens between the two legs of the flow.
type StateStore interface {
	Save(ctx context.Context, state, returnURL string, expiresAt time.Time) error
	Validate(ctx context.Context, state string) (returnURL string, valid bool, err error)
}

// IdentifyFunc turns an authorization code into the caller's identity.
type IdentifyFunc func(ctx context.Context, code string) (engine.Identity, error)

// Handler runs the Google sign-in flow. A user record is created on the
// first successful sign-in.
type Handler struct {
	Engine     *engine.Service
	States     StateStore
	SessionMgr *auth.SessionManager
	Log        *zap.Logger

	OAuth *oauth2.Config

	// Identify defaults to a code exchange plus a userinfo fetch.
	Identify IdentifyFunc
}

// NewHandler wires a handler for the given client credentials.
// redirectURL is the absolute callback URL, e.g. https://chores.example.com/auth/google/callback.
func NewHandler(svc *engine.Service, states StateStore, sessionMgr *auth.SessionManager,
	clientID, clientSecret, redirectURL string, logger *zap.Logger) *Handler {
	h := &Handler{
		Engine:     svc,
		States:     states,
		SessionMgr: sessionMgr,
		Log:        logger,
		OAuth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"openid",
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
	h.Identify = h.exchangeAndFetch
	return h
}

// IsConfigured reports whether client credentials are present.
func (h *Handler) IsConfigured() bool {
	return h.OAuth != nil && h.OAuth.ClientID != "" && h.OAuth.ClientSecret != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("google sign-in not configured")
		failRedirect(w, r, "not_configured")
		return
	}

	state, err := generateState()
	if err != nil {
		h.Log.Error("generate oauth state", zap.Error(err))
		failRedirect(w, r, "internal")
		return
	}
	returnURL := query.Get(r, "return")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	if err := h.States.Save(ctx, state, returnURL, time.Now().UTC().Add(stateTTL)); err != nil {
		h.Log.Error("save oauth state", zap.Error(err))
		failRedirect(w, r, "internal")
		return
	}

	h.Log.Debug("starting google sign-in", zap.String("return_url", returnURL))
	http.Redirect(w, r, h.OAuth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	if e := query.Get(r, "error"); e != "" {
		h.Log.Warn("google sign-in refused",
			zap.String("error", e),
			zap.String("description", query.Get(r, "error_description")))
		failRedirect(w, r, "denied")
		return
	}

	state := query.Get(r, "state")
	if state == "" {
		failRedirect(w, r, "invalid_state")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	returnURL, valid, err := h.States.Validate(ctx, state)
	if err != nil {
		h.Log.Error("validate oauth state", zap.Error(err))
		failRedirect(w, r, "internal")
		return
	}
	if !valid {
		h.Log.Warn("invalid or expired oauth state")
		failRedirect(w, r, "invalid_state")
		return
	}

	code := query.Get(r, "code")
	if code == "" {
		failRedirect(w, r, "invalid_code")
		return
	}

	id, err := h.Identify(ctx, code)
	if err != nil {
		h.Log.Error("identify google user", zap.Error(err))
		failRedirect(w, r, "identity")
		return
	}
	id.Provider = providerGoogle

	u, err := h.Engine.EnsureUser(ctx, id)
	if err != nil {
		h.Log.Error("ensure user", zap.String("subject", id.Subject), zap.Error(err))
		failRedirect(w, r, "internal")
		return
	}

	if err := h.SessionMgr.SignIn(w, r, auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.DisplayName,
		Email: u.Email,
	}); err != nil {
		h.Log.Error("save session", zap.Error(err))
		failRedirect(w, r, "internal")
		return
	}

	h.Log.Info("user signed in", zap.String("user_id", u.ID.Hex()))
	http.Redirect(w, r, urlutil.SafeReturn(returnURL, "", "/"), http.StatusSeeOther)
}

// googleUserInfo is the subset of the userinfo response we use.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (h *Handler) exchangeAndFetch(ctx context.Context, code string) (engine.Identity, error) {
	token, err := h.OAuth.Exchange(ctx, code)
	if err != nil {
		return engine.Identity{}, fmt.Errorf("exchange code: %w", err)
	}

	resp, err := h.OAuth.Client(ctx, token).Get(userInfoURL)
	if err != nil {
		return engine.Identity{}, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return engine.Identity{}, fmt.Errorf("fetch user info: status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return engine.Identity{}, fmt.Errorf("decode user info: %w", err)
	}
	if info.ID == "" {
		return engine.Identity{}, errors.New("user info has no id")
	}
	return engine.Identity{
		Provider:    providerGoogle,
		Subject:     info.ID,
		Email:       info.Email,
		DisplayName: info.Name,
	}, nil
}

func failRedirect(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/?auth_error="+code, http.StatusSeeOther)
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
