package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reminder is a scheduled due-date nudge keyed by (TaskID, DaysBefore).
type Reminder struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TaskID     primitive.ObjectID `bson:"task_id" json:"task_id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	DaysBefore int                `bson:"days_before" json:"days_before"`
	SendAt     time.Time          `bson:"send_at" json:"send_at"`
	DueAt      time.Time          `bson:"due_at" json:"due_at"`
	SentAt     *time.Time         `bson:"sent_at,omitempty" json:"sent_at,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
