package engine

import (
	"context"

	"github.com/dalemusser/chorehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Award amounts.
const (
	MinCreationAward  = 5
	VerificationAward = 3

	MinTaskGems = 5
	MaxTaskGems = 25
)

// CreationAward is paid to a task's creator when the task is published:
// max(5, floor(gems*0.1)).
func CreationAward(gems int) int {
	if a := gems / 10; a > MinCreationAward {
		return a
	}
	return MinCreationAward
}

// PublishBonus is paid on top of the creation award when a draft is
// published: floor(gems*0.1).
func PublishBonus(gems int) int {
	if gems <= 0 {
		return 0
	}
	return gems / 10
}

// RequiredVerifications is the number of positive votes that finalize a
// completed task in a household of memberCount members: ceil(n*0.5).
func RequiredVerifications(memberCount int) int {
	return (memberCount + 1) / 2
}

// award increments the user's balance and appends the matching ledger
// entry. Callers run it inside a transaction so the two stay together.
func (s *Service) award(ctx context.Context, userID primitive.ObjectID, amount int, typ models.GemTransactionType, desc string, taskID *primitive.ObjectID) error {
	if err := s.users.IncGems(ctx, userID, amount); err != nil {
		return err
	}
	return s.ledger.Append(ctx, models.GemTransaction{
		UserID:      userID,
		TaskID:      taskID,
		Amount:      amount,
		Type:        typ,
		Description: desc,
		CreatedAt:   s.now(),
	})
}

// AwardGems atomically adjusts the user's balance by amount (negative
// amounts are allowed) and records a ledger entry.
func (s *Service) AwardGems(ctx context.Context, userID primitive.ObjectID, amount int, typ models.GemTransactionType, desc string, taskID *primitive.ObjectID) error {
	return s.tx.Run(ctx, func(ctx context.Context) error {
		return s.award(ctx, userID, amount, typ, desc, taskID)
	})
}

// GemHistory is a user's balance together with their recent ledger entries.
type GemHistory struct {
	Balance      int                     `json:"balance"`
	Transactions []models.GemTransaction `json:"transactions"`
}

// GetGemHistory returns the authoritative balance and the newest ledger
// entries for userID.
func (s *Service) GetGemHistory(ctx context.Context, userID primitive.ObjectID, limit int64) (GemHistory, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return GemHistory{}, notFound(err, "user not found")
	}
	txs, err := s.ledger.ListByUser(ctx, userID, limit)
	if err != nil {
		return GemHistory{}, err
	}
	return GemHistory{Balance: u.Gems, Transactions: txs}, nil
}
