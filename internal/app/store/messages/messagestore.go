package messagestore

import (
	"context"
	"time"

	"github.com/dalemusser/chorehub/internal/app/system/paging"
	"github.com/dalemusser/chorehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("direct_messages")}
}

// Create inserts m. Participants is derived from sender and recipient.
func (s *Store) Create(ctx context.Context, m models.DirectMessage) (models.DirectMessage, error) {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.Participants = []primitive.ObjectID{m.SenderID, m.RecipientID}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.DirectMessage{}, err
	}
	return m, nil
}

// GetByID loads a message by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.DirectMessage, error) {
	var m models.DirectMessage
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return models.DirectMessage{}, err
	}
	return m, nil
}

// ListConversation returns the latest limit messages exchanged between a and
// b in householdID, oldest first. A limit of zero returns all of them.
func (s *Store) ListConversation(ctx context.Context, householdID, a, b primitive.ObjectID, limit int64) ([]models.DirectMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, bson.M{
		"household_id": householdID,
		"participants": bson.M{"$all": []primitive.ObjectID{a, b}},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.DirectMessage{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	paging.Reverse(out)
	return out, nil
}

// MarkRead sets read_at once. It reports false when the message is missing
// or already read.
func (s *Store) MarkRead(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "read_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"read_at": at}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// UnreadCount counts the unread messages addressed to recipientID.
func (s *Store) UnreadCount(ctx context.Context, recipientID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"recipient_id": recipientID,
		"read_at":      bson.M{"$exists": false},
	})
}
