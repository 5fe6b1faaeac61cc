package pushstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/chorehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrIncomplete is returned for a subscription missing its endpoint or keys.
var ErrIncomplete = errors.New("push subscription needs endpoint, p256dh and auth keys")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("push_subscriptions")}
}

// Save registers sub for its user. An endpoint is unique: registering a
// known endpoint replaces its keys and owner.
func (s *Store) Save(ctx context.Context, sub models.PushSubscription) (models.PushSubscription, error) {
	sub.Endpoint = strings.TrimSpace(sub.Endpoint)
	if sub.Endpoint == "" || sub.P256dhKey == "" || sub.AuthKey == "" || sub.UserID.IsZero() {
		return models.PushSubscription{}, ErrIncomplete
	}

	var out models.PushSubscription
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"endpoint": sub.Endpoint},
		bson.M{
			"$set": bson.M{
				"user_id":     sub.UserID,
				"p256dh_key":  sub.P256dhKey,
				"auth_key":    sub.AuthKey,
				"device_name": sub.DeviceName,
			},
			"$setOnInsert": bson.M{"created_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		return models.PushSubscription{}, err
	}
	return out, nil
}

// ListByUser returns every subscription registered by userID.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.PushSubscription, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.PushSubscription{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes userID's subscription for endpoint. It reports whether one
// was removed.
func (s *Store) Delete(ctx context.Context, userID primitive.ObjectID, endpoint string) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"user_id": userID, "endpoint": strings.TrimSpace(endpoint)})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

// DeleteByEndpoint removes a subscription the push service reported gone.
func (s *Store) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"endpoint": endpoint})
	return err
}
