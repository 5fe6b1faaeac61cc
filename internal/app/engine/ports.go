package engine

import (
	"context"
	"time"

	"github.com/dalemusser/chorehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repositories return mongo.ErrNoDocuments for a missing document; the
// engine turns that into apperr.NotFound.

// UserRepo is the users collection.
type UserRepo interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	GetMany(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	// UpsertIdentity creates the user on first sign-in or refreshes the
	// profile fields of an existing one.
	UpsertIdentity(ctx context.Context, provider, subject, email, displayName string) (models.User, error)
	// AddHousehold appends m unless an entry for m.HouseholdID already
	// exists, and sets it current either way.
	AddHousehold(ctx context.Context, userID primitive.ObjectID, m models.UserHousehold) error
	RemoveHousehold(ctx context.Context, userID, householdID primitive.ObjectID) error
	SetCurrentHousehold(ctx context.Context, userID primitive.ObjectID, householdID *primitive.ObjectID) error
	// IncGems atomically adds delta (may be negative) to the balance.
	IncGems(ctx context.Context, userID primitive.ObjectID, delta int) error
	// DebitGems atomically subtracts amount only when the balance covers it.
	DebitGems(ctx context.Context, userID primitive.ObjectID, amount int) (bool, error)
	SetNotificationPrefs(ctx context.Context, userID primitive.ObjectID, prefs map[string]bool) error
}

// HouseholdRepo is the households collection.
type HouseholdRepo interface {
	Create(ctx context.Context, h models.Household) (models.Household, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Household, error)
	AddMember(ctx context.Context, householdID, userID primitive.ObjectID) error
	RemoveMember(ctx context.Context, householdID, userID primitive.ObjectID) error
	AddInviteLink(ctx context.Context, householdID primitive.ObjectID, link models.InviteLink) error
	UpdateSettings(ctx context.Context, householdID primitive.ObjectID, upd HouseholdSettings) error
}

// HouseholdSettings carries optional settings changes; nil fields are left alone.
type HouseholdSettings struct {
	Name             *string
	GemPrompt        *string
	AllowGemOverride *bool
}

// InviteRepo is the token index for invite links.
type InviteRepo interface {
	Create(ctx context.Context, inv models.Invite) error
	GetByToken(ctx context.Context, token string) (models.Invite, error)
}

// TaskRepo is the tasks collection.
type TaskRepo interface {
	Create(ctx context.Context, t models.Task) (models.Task, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Task, error)
	ListByHousehold(ctx context.Context, householdID primitive.ObjectID, status models.TaskStatus) ([]models.Task, error)
	// Transition moves the task from one status to another only if it is
	// still in from. When to is claimed, claimedBy is stored; when to is
	// draft or published, claimed_by is cleared. It reports whether the
	// task was changed.
	Transition(ctx context.Context, id primitive.ObjectID, from, to models.TaskStatus, claimedBy *primitive.ObjectID) (bool, error)
	SetVerifications(ctx context.Context, id primitive.ObjectID, vs []models.Verification) error
	AddDecline(ctx context.Context, id, userID primitive.ObjectID) error
	Update(ctx context.Context, id primitive.ObjectID, edit TaskEdit) error
	SetChecklist(ctx context.Context, id primitive.ObjectID, items []models.ChecklistItem) error
	// DeleteDraft removes the task only while it is a draft.
	DeleteDraft(ctx context.Context, id primitive.ObjectID) (bool, error)
}

// TaskEdit carries optional task field changes; nil fields are left alone.
type TaskEdit struct {
	Title          *string
	Description    *string
	Gems           *int
	DueDate        *time.Time
	Recurrence     *models.RecurrenceConfig
	ClearRecur     bool
	ChecklistItems *[]models.ChecklistItem
}

// LedgerRepo is the append-only gem_transactions collection.
type LedgerRepo interface {
	Append(ctx context.Context, tx models.GemTransaction) error
	ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.GemTransaction, error)
}

// MessageRepo is the direct_messages collection.
type MessageRepo interface {
	Create(ctx context.Context, m models.DirectMessage) (models.DirectMessage, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.DirectMessage, error)
	ListConversation(ctx context.Context, householdID, a, b primitive.ObjectID, limit int64) ([]models.DirectMessage, error)
	// MarkRead sets read_at only if it is unset. It reports whether it did.
	MarkRead(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
	UnreadCount(ctx context.Context, recipientID primitive.ObjectID) (int64, error)
}

// TxRunner runs fn as one atomic unit. Repository calls made with the ctx
// passed to fn take part in the transaction.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// Payload is a notification body handed to the Notifier.
type Payload struct {
	Title              string            `json:"title"`
	Body               string            `json:"body"`
	Data               map[string]string `json:"data,omitempty"`
	RequireInteraction bool              `json:"requireInteraction,omitempty"`
}

// NotifyOptions filters delivery by the user's notification preferences.
type NotifyOptions struct {
	RequiredPreferences []string
}

// Notifier delivers best-effort notifications. Errors are logged by the
// engine and never fail the triggering operation.
type Notifier interface {
	Notify(ctx context.Context, userID primitive.ObjectID, p Payload, opts NotifyOptions) error
}

// GemEstimator values a task description against a household rubric.
// Implementations return a value in [MinTaskGems, MaxTaskGems] or an error.
type GemEstimator interface {
	EstimateGems(ctx context.Context, description, rubric string) (int, error)
}

// ReminderScheduler records and cancels due-date reminders keyed by
// (taskID, daysBefore).
type ReminderScheduler interface {
	Schedule(ctx context.Context, taskID, userID primitive.ObjectID, dueAt time.Time, daysBefore int) error
	Cancel(ctx context.Context, taskID primitive.ObjectID) error
}
