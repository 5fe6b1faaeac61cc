// Package oauthstate keeps the one-time state tokens that tie a Google
// sign-in redirect to its callback.
package oauthstate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrDuplicateState is returned when Save sees a token that is already pending.
var ErrDuplicateState = errors.New("oauth state already pending")

// pending is the stored form. Only a digest of the token is kept, so the
// collection alone cannot be replayed against the callback.
type pending struct {
	Digest    string    `bson:"state"`
	ReturnTo  string    `bson:"return_url,omitempty"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// Store is backed by oauth_states, whose TTL index on expires_at does the
// routine cleanup.
type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:   db.Collection("oauth_states"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func digest(state string) string {
	sum := sha256.Sum256([]byte(state))
	return hex.EncodeToString(sum[:])
}

// Save records state as pending until expiresAt. returnURL is where the
// callback sends the user afterwards.
func (s *Store) Save(ctx context.Context, state, returnURL string, expiresAt time.Time) error {
	if state == "" {
		return errors.New("oauth state is empty")
	}
	_, err := s.c.InsertOne(ctx, pending{
		Digest:    digest(state),
		ReturnTo:  returnURL,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: s.now(),
	})
	if err != nil && wafflemongo.IsDup(err) {
		return ErrDuplicateState
	}
	return err
}

// Validate consumes state. It reports valid only once per saved token and
// only before the token expires.
func (s *Store) Validate(ctx context.Context, state string) (returnURL string, valid bool, err error) {
	if state == "" {
		return "", false, nil
	}
	var p pending
	err = s.c.FindOneAndDelete(ctx, bson.M{
		"state":      digest(state),
		"expires_at": bson.M{"$gt": s.now()},
	}).Decode(&p)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return p.ReturnTo, true, nil
}

// CleanupExpired deletes tokens past their expiry and reports how many
// went. The TTL monitor runs only once a minute, so this keeps the
// collection tight between passes.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": s.now()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
