package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DirectMessage is immutable after creation except for ReadAt, which is set once.
type DirectMessage struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	HouseholdID  primitive.ObjectID   `bson:"household_id" json:"household_id"`
	SenderID     primitive.ObjectID   `bson:"sender_id" json:"sender_id"`
	RecipientID  primitive.ObjectID   `bson:"recipient_id" json:"recipient_id"`
	Participants []primitive.ObjectID `bson:"participants" json:"participants"`
	Body         string               `bson:"body" json:"body"`
	Gems         int                  `bson:"gems" json:"gems"`
	CreatedAt    time.Time            `bson:"created_at" json:"created_at"`
	ReadAt       *time.Time           `bson:"read_at,omitempty" json:"read_at,omitempty"`
}
