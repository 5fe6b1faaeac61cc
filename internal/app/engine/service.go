// Package engine holds the household task economy: membership and invites,
// the task lifecycle state machine, verification quorum, the gem ledger and
// gem gifting through direct messages.
//
// Every operation re-reads authoritative state from the repositories before
// mutating it; nothing is cached between calls. Collaborators are injected
// through Deps so tests can substitute in-memory fakes.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/chorehub/internal/app/system/apperr"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultInviteTTL is how long a freshly generated invite link stays valid.
const DefaultInviteTTL = 7 * 24 * time.Hour

// Deps are the collaborators of a Service. Notifier, Estimator and
// Reminders may be nil; the matching side effects are then skipped.
type Deps struct {
	Users      UserRepo
	Households HouseholdRepo
	Invites    InviteRepo
	Tasks      TaskRepo
	Ledger     LedgerRepo
	Messages   MessageRepo
	Tx         TxRunner

	Notifier  Notifier
	Estimator GemEstimator
	Reminders ReminderScheduler

	// BaseURL prefixes shareable invite URLs.
	BaseURL   string
	InviteTTL time.Duration

	Now      func() time.Time
	NewToken func() string
	Log      *zap.Logger
}

// Service implements the engine operations.
type Service struct {
	users      UserRepo
	households HouseholdRepo
	invites    InviteRepo
	tasks      TaskRepo
	ledger     LedgerRepo
	messages   MessageRepo
	tx         TxRunner

	notifier  Notifier
	estimator GemEstimator
	reminders ReminderScheduler

	baseURL   string
	inviteTTL time.Duration
	now       func() time.Time
	newToken  func() string
	log       *zap.Logger
}

// New builds a Service from deps, filling defaults for the optional fields.
func New(deps Deps) *Service {
	s := &Service{
		users:      deps.Users,
		households: deps.Households,
		invites:    deps.Invites,
		tasks:      deps.Tasks,
		ledger:     deps.Ledger,
		messages:   deps.Messages,
		tx:         deps.Tx,
		notifier:   deps.Notifier,
		estimator:  deps.Estimator,
		reminders:  deps.Reminders,
		baseURL:    deps.BaseURL,
		inviteTTL:  deps.InviteTTL,
		now:        deps.Now,
		newToken:   deps.NewToken,
		log:        deps.Log,
	}
	if s.inviteTTL <= 0 {
		s.inviteTTL = DefaultInviteTTL
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newToken == nil {
		s.newToken = uuid.NewString
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// notFound converts a repository miss into a NotFound error with msg and
// passes any other error through unchanged.
func notFound(err error, msg string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound(msg)
	}
	return err
}

// notifyUser hands p to the Notifier. Delivery is best effort; a failure
// is logged and never reaches the caller.
func (s *Service) notifyUser(ctx context.Context, userID primitive.ObjectID, p Payload, prefs ...string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, p, NotifyOptions{RequiredPreferences: prefs}); err != nil {
		s.log.Warn("notification failed",
			zap.String("user_id", userID.Hex()),
			zap.String("title", p.Title),
			zap.Error(err))
	}
}
