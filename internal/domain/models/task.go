package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskStatus is a step in the task lifecycle.
type TaskStatus string

const (
	TaskDraft     TaskStatus = "draft"
	TaskPublished TaskStatus = "published"
	TaskClaimed   TaskStatus = "claimed"
	TaskCompleted TaskStatus = "completed"
	TaskVerified  TaskStatus = "verified"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskDraft, TaskPublished, TaskClaimed, TaskCompleted, TaskVerified:
		return true
	}
	return false
}

// HasClaimant reports whether a task in status s must carry ClaimedBy.
func (s TaskStatus) HasClaimant() bool {
	return s == TaskClaimed || s == TaskCompleted || s == TaskVerified
}

// Task is a chore on a household board.
// Invariant: ClaimedBy != nil exactly when Status.HasClaimant().
type Task struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	HouseholdID    primitive.ObjectID   `bson:"household_id" json:"household_id"`
	CreatorID      primitive.ObjectID   `bson:"creator_id" json:"creator_id"`
	Title          string               `bson:"title" json:"title"`
	Description    string               `bson:"description" json:"description"`
	Status         TaskStatus           `bson:"status" json:"status"`
	ClaimedBy      *primitive.ObjectID  `bson:"claimed_by,omitempty" json:"claimed_by,omitempty"`
	DeclinedBy     []primitive.ObjectID `bson:"declined_by,omitempty" json:"declined_by,omitempty"`
	DueDate        time.Time            `bson:"due_date" json:"due_date"`
	Gems           int                  `bson:"gems" json:"gems"`
	Recurrence     *RecurrenceConfig    `bson:"recurrence,omitempty" json:"recurrence,omitempty"`
	Verifications  []Verification       `bson:"verifications" json:"verifications"`
	ChecklistItems []ChecklistItem      `bson:"checklist_items,omitempty" json:"checklist_items,omitempty"`
	SpawnedFrom    *primitive.ObjectID  `bson:"spawned_from,omitempty" json:"spawned_from,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasDeclined reports whether userID declined this task.
func (t Task) HasDeclined(userID primitive.ObjectID) bool {
	for _, d := range t.DeclinedBy {
		if d == userID {
			return true
		}
	}
	return false
}

// IsClaimant reports whether userID holds the claim on this task.
func (t Task) IsClaimant(userID primitive.ObjectID) bool {
	return t.ClaimedBy != nil && *t.ClaimedBy == userID
}

// PositiveVotes counts verifications with Verified set.
func (t Task) PositiveVotes() int {
	n := 0
	for _, v := range t.Verifications {
		if v.Verified {
			n++
		}
	}
	return n
}

// Verification is one member's vote on a completed task. A member has at
// most one entry per task; voting again replaces it.
type Verification struct {
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	Verified   bool               `bson:"verified" json:"verified"`
	VerifiedAt time.Time          `bson:"verified_at" json:"verified_at"`
}

// RecurrenceType selects how a follow-up due date is derived.
type RecurrenceType string

const (
	RecurDaily   RecurrenceType = "daily"
	RecurWeekly  RecurrenceType = "weekly"
	RecurMonthly RecurrenceType = "monthly"
	RecurCustom  RecurrenceType = "custom"
)

// RecurrenceConfig is copied onto spawned follow-up tasks.
type RecurrenceConfig struct {
	Type       RecurrenceType `bson:"type" json:"type"`
	Interval   int            `bson:"interval" json:"interval"`
	DaysOfWeek []time.Weekday `bson:"days_of_week,omitempty" json:"days_of_week,omitempty"`
	EndDate    *time.Time     `bson:"end_date,omitempty" json:"end_date,omitempty"`
}

// ChecklistItem is one "- [ ] text" line of a task checklist.
type ChecklistItem struct {
	Text    string `bson:"text" json:"text"`
	Checked bool   `bson:"checked" json:"checked"`
}
