package userstore

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/chorehub/internal/app/system/normalize"
	"github.com/dalemusser/chorehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// GetMany loads the users in ids ordered by display name. Unknown ids are
// skipped.
func (s *Store) GetMany(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "display_name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertIdentity finds the user by (provider, subject), creating it on first
// sign-in. Email and a non-empty display name are refreshed every time.
func (s *Store) UpsertIdentity(ctx context.Context, provider, subject, email, displayName string) (models.User, error) {
	provider = normalize.Provider(provider)
	email = normalize.Email(email)
	displayName = normalize.Name(displayName)
	now := time.Now().UTC()

	set := bson.M{
		"email":      email,
		"updated_at": now,
	}
	onInsert := bson.M{
		"households": []models.UserHousehold{},
		"gems":       0,
		"created_at": now,
	}
	if displayName != "" {
		set["display_name"] = displayName
		set["display_name_ci"] = text.Fold(displayName)
	} else {
		fallback := fallbackName(email)
		onInsert["display_name"] = fallback
		onInsert["display_name_ci"] = text.Fold(fallback)
	}

	var u models.User
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"auth_provider": provider, "auth_subject": subject},
		bson.M{"$set": set, "$setOnInsert": onInsert},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

func fallbackName(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	if email == "" {
		return "Member"
	}
	return email
}

// AddHousehold appends m to the user's households unless an entry for the
// same household exists, then makes that household current.
func (s *Store) AddHousehold(ctx context.Context, userID primitive.ObjectID, m models.UserHousehold) error {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID, "households.household_id": bson.M{"$ne": m.HouseholdID}},
		bson.M{
			"$push": bson.M{"households": m},
			"$set":  bson.M{"current_household_id": m.HouseholdID, "updated_at": now},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	hid := m.HouseholdID
	return s.SetCurrentHousehold(ctx, userID, &hid)
}

// RemoveHousehold pulls the household entry from the user. The current
// household is left for the caller to repoint.
func (s *Store) RemoveHousehold(ctx context.Context, userID, householdID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$pull": bson.M{"households": bson.M{"household_id": householdID}},
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

// SetCurrentHousehold points the user at householdID, or clears the current
// household when it is nil.
func (s *Store) SetCurrentHousehold(ctx context.Context, userID primitive.ObjectID, householdID *primitive.ObjectID) error {
	now := time.Now().UTC()
	var upd bson.M
	if householdID == nil {
		upd = bson.M{"$unset": bson.M{"current_household_id": ""}, "$set": bson.M{"updated_at": now}}
	} else {
		upd = bson.M{"$set": bson.M{"current_household_id": *householdID, "updated_at": now}}
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, upd)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// IncGems adds delta to the balance with $inc.
func (s *Store) IncGems(ctx context.Context, userID primitive.ObjectID, delta int) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$inc": bson.M{"gems": delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DebitGems subtracts amount only when the balance covers it. The balance
// check and the decrement are one conditional update, so concurrent debits
// can never take the balance below zero.
func (s *Store) DebitGems(ctx context.Context, userID primitive.ObjectID, amount int) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID, "gems": bson.M{"$gte": amount}},
		bson.M{
			"$inc": bson.M{"gems": -amount},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// SetNotificationPrefs merges prefs into the stored preferences.
func (s *Store) SetNotificationPrefs(ctx context.Context, userID primitive.ObjectID, prefs map[string]bool) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range prefs {
		set["notification_prefs."+k] = v
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
