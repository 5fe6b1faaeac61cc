package taskstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/chorehub/internal/app/engine"
	"github.com/dalemusser/chorehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	errBadStatus      = errors.New("task status is not valid")
	errNoHousehold    = errors.New("task must belong to a household")
	errClaimantNeeded = errors.New("claimed, completed and verified tasks need a claimant")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tasks")}
}

// Create inserts t, assigning an ID and timestamps.
func (s *Store) Create(ctx context.Context, t models.Task) (models.Task, error) {
	if !t.Status.Valid() {
		return models.Task{}, errBadStatus
	}
	if t.HouseholdID.IsZero() {
		return models.Task{}, errNoHousehold
	}
	if t.Status.HasClaimant() != (t.ClaimedBy != nil) {
		return models.Task{}, errClaimantNeeded
	}
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	if t.Verifications == nil {
		t.Verifications = []models.Verification{}
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// GetByID loads a task by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Task, error) {
	var t models.Task
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// ListByHousehold returns the household's tasks newest first, optionally
// limited to one status.
func (s *Store) ListByHousehold(ctx context.Context, householdID primitive.ObjectID, status models.TaskStatus) ([]models.Task, error) {
	filter := bson.M{"household_id": householdID}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Task{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Transition is a compare-and-set on status: the update only matches while
// the task is still in from, so of two racing claims exactly one wins.
func (s *Store) Transition(ctx context.Context, id primitive.ObjectID, from, to models.TaskStatus, claimedBy *primitive.ObjectID) (bool, error) {
	set := bson.M{"status": to, "updated_at": time.Now().UTC()}
	upd := bson.M{"$set": set}
	switch to {
	case models.TaskClaimed:
		if claimedBy != nil {
			set["claimed_by"] = *claimedBy
		}
	case models.TaskDraft, models.TaskPublished:
		upd["$unset"] = bson.M{"claimed_by": ""}
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "status": from}, upd)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// SetVerifications replaces the task's votes.
func (s *Store) SetVerifications(ctx context.Context, id primitive.ObjectID, vs []models.Verification) error {
	if vs == nil {
		vs = []models.Verification{}
	}
	return s.set(ctx, id, bson.M{"verifications": vs})
}

// AddDecline records that userID declined the task.
func (s *Store) AddDecline(ctx context.Context, id, userID primitive.ObjectID) error {
	return s.update(ctx, id, bson.M{
		"$addToSet": bson.M{"declined_by": userID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
}

// Update applies the non-nil fields of e.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, e engine.TaskEdit) error {
	set := bson.M{}
	if e.Title != nil {
		set["title"] = *e.Title
	}
	if e.Description != nil {
		set["description"] = *e.Description
	}
	if e.Gems != nil {
		set["gems"] = *e.Gems
	}
	if e.DueDate != nil {
		set["due_date"] = *e.DueDate
	}
	if !e.ClearRecur && e.Recurrence != nil {
		set["recurrence"] = *e.Recurrence
	}
	if e.ChecklistItems != nil {
		set["checklist_items"] = *e.ChecklistItems
	}
	set["updated_at"] = time.Now().UTC()

	upd := bson.M{"$set": set}
	if e.ClearRecur {
		upd["$unset"] = bson.M{"recurrence": ""}
	}
	return s.update(ctx, id, upd)
}

// SetChecklist replaces the checklist items.
func (s *Store) SetChecklist(ctx context.Context, id primitive.ObjectID, items []models.ChecklistItem) error {
	if items == nil {
		items = []models.ChecklistItem{}
	}
	return s.set(ctx, id, bson.M{"checklist_items": items})
}

// DeleteDraft removes the task only while it is a draft.
func (s *Store) DeleteDraft(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "status": models.TaskDraft})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

func (s *Store) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	return s.update(ctx, id, bson.M{"$set": fields})
}

func (s *Store) update(ctx context.Context, id primitive.ObjectID, upd bson.M) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, upd)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
