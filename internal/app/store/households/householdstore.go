package householdstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/chorehub/internal/app/engine"
	"github.com/dalemusser/chorehub/internal/app/system/normalize"
	"github.com/dalemusser/chorehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	errNameRequired = errors.New("household name is required")
	errHeadRequired = errors.New("household must have a head")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("households")}
}

// Create inserts a new household. The head is always recorded as a member.
func (s *Store) Create(ctx context.Context, h models.Household) (models.Household, error) {
	h.Name = normalize.Name(h.Name)
	if h.Name == "" {
		return models.Household{}, errNameRequired
	}
	if h.HeadOfHousehold.IsZero() {
		return models.Household{}, errHeadRequired
	}
	if h.ID.IsZero() {
		h.ID = primitive.NewObjectID()
	}
	h.NameCI = text.Fold(h.Name)
	if !h.IsMember(h.HeadOfHousehold) {
		h.Members = append([]primitive.ObjectID{h.HeadOfHousehold}, h.Members...)
	}
	if h.InviteLinks == nil {
		h.InviteLinks = []models.InviteLink{}
	}
	now := time.Now().UTC()
	h.CreatedAt = now
	h.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, h); err != nil {
		return models.Household{}, err
	}
	return h, nil
}

// GetByID loads a household by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Household, error) {
	var h models.Household
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&h); err != nil {
		return models.Household{}, err
	}
	return h, nil
}

// AddMember adds userID to members; adding an existing member is a no-op.
func (s *Store) AddMember(ctx context.Context, householdID, userID primitive.ObjectID) error {
	return s.update(ctx, householdID, bson.M{
		"$addToSet": bson.M{"members": userID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
}

// RemoveMember pulls userID from members. The head is never removed.
func (s *Store) RemoveMember(ctx context.Context, householdID, userID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": householdID, "head_of_household": bson.M{"$ne": userID}},
		bson.M{
			"$pull": bson.M{"members": userID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// AddInviteLink appends link to the household's invite links.
func (s *Store) AddInviteLink(ctx context.Context, householdID primitive.ObjectID, link models.InviteLink) error {
	return s.update(ctx, householdID, bson.M{
		"$push": bson.M{"invite_links": link},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// UpdateSettings applies the non-nil fields of upd.
func (s *Store) UpdateSettings(ctx context.Context, householdID primitive.ObjectID, upd engine.HouseholdSettings) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		name := normalize.Name(*upd.Name)
		if name == "" {
			return errNameRequired
		}
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if upd.GemPrompt != nil {
		set["gem_prompt"] = *upd.GemPrompt
	}
	if upd.AllowGemOverride != nil {
		set["allow_gem_override"] = *upd.AllowGemOverride
	}
	return s.update(ctx, householdID, bson.M{"$set": set})
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
