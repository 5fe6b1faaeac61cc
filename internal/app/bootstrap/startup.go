// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"sync"

	"github.com/dalemusser/chorehub/internal/app/engine"
	householdstore "github.com/dalemusser/chorehub/internal/app/store/households"
	invitestore "github.com/dalemusser/chorehub/internal/app/store/invites"
	ledgerstore "github.com/dalemusser/chorehub/internal/app/store/ledger"
	messagestore "github.com/dalemusser/chorehub/internal/app/store/messages"
	"github.com/dalemusser/chorehub/internal/app/store/oauthstate"
	pushstore "github.com/dalemusser/chorehub/internal/app/store/pushsubs"
	reminderstore "github.com/dalemusser/chorehub/internal/app/store/reminders"
	taskstore "github.com/dalemusser/chorehub/internal/app/store/tasks"
	userstore "github.com/dalemusser/chorehub/internal/app/store/users"
	"github.com/dalemusser/chorehub/internal/app/system/jobs"
	"github.com/dalemusser/chorehub/internal/app/system/llm"
	"github.com/dalemusser/chorehub/internal/app/system/push"
	"github.com/dalemusser/chorehub/internal/app/system/ratelimit"
	"github.com/dalemusser/chorehub/internal/app/system/reminders"
	"github.com/dalemusser/chorehub/internal/app/system/timeouts"
	"github.com/dalemusser/chorehub/internal/app/system/txn"
	"github.com/dalemusser/chorehub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// services is what Startup builds and BuildHandler and Shutdown use.
type services struct {
	Engine      *engine.Service
	OAuthStates *oauthstate.Store
	PushSubs    *pushstore.Store
	JoinLimiter *ratelimit.JoinLimiter
	Workers     *workers.Group
}

var (
	svcMu sync.Mutex
	svc   *services
)

func currentServices() (*services, error) {
	svcMu.Lock()
	defer svcMu.Unlock()
	if svc == nil {
		return nil, errors.New("bootstrap: Startup has not run")
	}
	return svc, nil
}

// Startup builds the stores, the engine and its collaborators, and starts
// the background workers. It runs after EnsureSchema and before
// BuildHandler.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	s := buildServices(appCfg, deps, logger)
	s.Workers.Start()

	svcMu.Lock()
	svc = s
	svcMu.Unlock()

	logger.Info("chorehub services started",
		zap.Bool("push", appCfg.PushEnabled()),
		zap.Bool("gem_estimates", appCfg.LLMAPIKey != ""),
		zap.Duration("invite_ttl", appCfg.InviteTTL))
	return nil
}

func buildServices(appCfg AppConfig, deps DBDeps, logger *zap.Logger) *services {
	db := deps.MongoDatabase

	users := userstore.New(db)
	tasks := taskstore.New(db)
	subs := pushstore.New(db)
	reminderStore := reminderstore.New(db)
	states := oauthstate.New(db)

	notifier := push.NewDispatcher(push.Config{
		VAPIDPublicKey:  appCfg.VAPIDPublicKey,
		VAPIDPrivateKey: appCfg.VAPIDPrivateKey,
		Subscriber:      appCfg.VAPIDSubscriber,
	}, users, subs, logger.Named("push"))

	var estimator engine.GemEstimator
	if llmCfg := (llm.Config{
		APIURL:  appCfg.LLMAPIURL,
		APIKey:  appCfg.LLMAPIKey,
		Model:   appCfg.LLMModel,
		Timeout: appCfg.LLMTimeout,
	}); llmCfg.Enabled() {
		estimator = llm.NewEstimator(llmCfg, logger.Named("llm"))
	}

	eng := engine.New(engine.Deps{
		Users:      users,
		Households: householdstore.New(db),
		Invites:    invitestore.New(db),
		Tasks:      tasks,
		Ledger:     ledgerstore.New(db),
		Messages:   messagestore.New(db),
		Tx:         txn.Runner{DB: db, Log: logger},
		Notifier:   notifier,
		Estimator:  estimator,
		Reminders:  reminderStore,
		BaseURL:    appCfg.BaseURL,
		InviteTTL:  appCfg.InviteTTL,
		Log:        logger.Named("engine"),
	})

	sweeper := reminders.NewSweeper(reminderStore, tasks, notifier, logger.Named("reminders"))
	group := workers.NewGroup(logger,
		jobs.ReminderSweepJob(sweeper, logger, appCfg.ReminderSweepInterval),
		jobs.OAuthStateCleanupJob(states, logger),
	)

	return &services{
		Engine:      eng,
		OAuthStates: states,
		PushSubs:    subs,
		JoinLimiter: ratelimit.NewJoinLimiter(),
		Workers:     group,
	}
}
