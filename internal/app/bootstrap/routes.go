// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	authgooglefeature "github.com/dalemusser/chorehub/internal/app/features/authgoogle"
	healthfeature "github.com/dalemusser/chorehub/internal/app/features/health"
	householdsfeature "github.com/dalemusser/chorehub/internal/app/features/households"
	invitesfeature "github.com/dalemusser/chorehub/internal/app/features/invites"
	logoutfeature "github.com/dalemusser/chorehub/internal/app/features/logout"
	messagesfeature "github.com/dalemusser/chorehub/internal/app/features/messages"
	profilefeature "github.com/dalemusser/chorehub/internal/app/features/profile"
	pushsubsfeature "github.com/dalemusser/chorehub/internal/app/features/pushsubs"
	tasksfeature "github.com/dalemusser/chorehub/internal/app/features/tasks"
	"github.com/dalemusser/chorehub/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler builds the root router. Health, sign-in and sign-out are
// public; everything else requires a signed-in user.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	s, err := currentServices()
	if err != nil {
		return nil, err
	}

	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionTTL, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(sessionMgr.LoadSessionUser)

	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, logger)))

	googleHandler := authgooglefeature.NewHandler(s.Engine, s.OAuthStates, sessionMgr,
		appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.OAuthCallbackURL(), logger)
	r.Mount(auth.LoginPath, authgooglefeature.Routes(googleHandler))

	r.Mount("/logout", logoutfeature.Routes(logoutfeature.NewHandler(sessionMgr, logger)))

	r.Group(func(pr chi.Router) {
		pr.Use(sessionMgr.RequireSignedIn)

		pr.Mount("/me", profilefeature.Routes(profilefeature.NewHandler(s.Engine, logger)))
		pr.Mount("/households", householdsfeature.Routes(householdsfeature.NewHandler(s.Engine, logger)))
		pr.Mount("/invites", invitesfeature.Routes(invitesfeature.NewHandler(s.Engine, s.JoinLimiter, logger)))
		pr.Mount("/tasks", tasksfeature.Routes(tasksfeature.NewHandler(s.Engine, logger)))
		pr.Mount("/messages", messagesfeature.Routes(messagesfeature.NewHandler(s.Engine, logger)))

		pushKey := ""
		if appCfg.PushEnabled() {
			pushKey = appCfg.VAPIDPublicKey
		}
		pr.Mount("/push", pushsubsfeature.Routes(pushsubsfeature.NewHandler(s.PushSubs, pushKey, logger)))
	})

	return r, nil
}
