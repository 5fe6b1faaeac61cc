package invitestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/chorehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrDuplicateToken is returned when an invite token is already in use.
var ErrDuplicateToken = errors.New("invite token already exists")

// Store is the token index for household invite links.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("household_invites")}
}

// Create inserts inv. Tokens are unique across all households.
func (s *Store) Create(ctx context.Context, inv models.Invite) error {
	if inv.Token == "" {
		return errors.New("invite token is required")
	}
	if inv.ID.IsZero() {
		inv.ID = primitive.NewObjectID()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, inv); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateToken
		}
		return err
	}
	return nil
}

// GetByToken looks an invite up by its token. Expiry is left to the caller.
func (s *Store) GetByToken(ctx context.Context, token string) (models.Invite, error) {
	var inv models.Invite
	if err := s.c.FindOne(ctx, bson.M{"token": token}).Decode(&inv); err != nil {
		return models.Invite{}, err
	}
	return inv, nil
}
