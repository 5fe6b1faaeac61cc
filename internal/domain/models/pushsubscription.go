package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PushSubscription is a browser web-push endpoint registered by a user.
type PushSubscription struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	Endpoint   string             `bson:"endpoint" json:"endpoint"`
	P256dhKey  string             `bson:"p256dh_key" json:"p256dh_key"`
	AuthKey    string             `bson:"auth_key" json:"auth_key"`
	DeviceName string             `bson:"device_name,omitempty" json:"device_name,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
