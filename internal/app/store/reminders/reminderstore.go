package reminderstore

import (
	"context"
	"time"

	"github.com/dalemusser/chorehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store holds task_reminders keyed by (task_id, days_before). It satisfies
// the engine's reminder scheduler.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("task_reminders")}
}

// Schedule records a reminder daysBefore days ahead of dueAt. Scheduling the
// same key again moves it and re-arms it if it was already sent.
func (s *Store) Schedule(ctx context.Context, taskID, userID primitive.ObjectID, dueAt time.Time, daysBefore int) error {
	sendAt := dueAt.AddDate(0, 0, -daysBefore)
	_, err := s.c.UpdateOne(ctx,
		bson.M{"task_id": taskID, "days_before": daysBefore},
		bson.M{
			"$set": bson.M{
				"user_id": userID,
				"send_at": sendAt,
				"due_at":  dueAt,
			},
			"$unset":       bson.M{"sent_at": ""},
			"$setOnInsert": bson.M{"created_at": time.Now().UTC()},
		},
		options.Update().SetUpsert(true))
	return err
}

// Cancel removes the task's reminders that have not been sent yet.
func (s *Store) Cancel(ctx context.Context, taskID primitive.ObjectID) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"task_id": taskID, "sent_at": bson.M{"$exists": false}})
	return err
}

// Due returns up to limit unsent reminders whose send time is at or before
// now, oldest first.
func (s *Store) Due(ctx context.Context, now time.Time, limit int64) ([]models.Reminder, error) {
	opts := options.Find().SetSort(bson.D{{Key: "send_at", Value: 1}}).SetLimit(limit)
	cur, err := s.c.Find(ctx, bson.M{
		"sent_at": bson.M{"$exists": false},
		"send_at": bson.M{"$lte": now},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Reminder{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkSent stamps sent_at if it is still unset. Only one of several sweepers
// racing on the same reminder gets true.
func (s *Store) MarkSent(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "sent_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"sent_at": at}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// ListByTask returns every reminder for taskID ordered by send time.
func (s *Store) ListByTask(ctx context.Context, taskID primitive.ObjectID) ([]models.Reminder, error) {
	opts := options.Find().SetSort(bson.D{{Key: "send_at", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"task_id": taskID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Reminder{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
