package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GemTransactionType is the reason recorded for a balance change.
type GemTransactionType string

const (
	GemTaskCreation   GemTransactionType = "task_creation"
	GemTaskCompletion GemTransactionType = "task_completion"
	GemVerification   GemTransactionType = "verification"
	GemGiftSent       GemTransactionType = "gift_sent"
	GemGiftReceived   GemTransactionType = "gift_received"
	GemBonus          GemTransactionType = "bonus"
)

// GemTransaction is an append-only ledger row. Amount is signed.
type GemTransaction struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID  `bson:"user_id" json:"user_id"`
	TaskID      *primitive.ObjectID `bson:"task_id,omitempty" json:"task_id,omitempty"`
	Amount      int                 `bson:"amount" json:"amount"`
	Type        GemTransactionType  `bson:"type" json:"type"`
	Description string              `bson:"description" json:"description"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
}
