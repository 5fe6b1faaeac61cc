package engine

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/chorehub/internal/app/system/apperr"
	"github.com/dalemusser/chorehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxMessageLength is the longest direct message body, in characters.
const MaxMessageLength = 2000

// MsgNotEnoughGems is returned when a gift exceeds the sender's balance.
const MsgNotEnoughGems = "not enough gems"

// SendMessageInput is one direct message, optionally carrying a gem gift.
type SendMessageInput struct {
	HouseholdID primitive.ObjectID
	SenderID    primitive.ObjectID
	RecipientID primitive.ObjectID
	Body        string
	Gems        int
}

// SendDirectMessage stores a message and moves any gifted gems from sender
// to recipient. The message, both balances and both ledger entries are
// written in one transaction; an unaffordable gift changes nothing.
func (s *Service) SendDirectMessage(ctx context.Context, in SendMessageInput) (models.DirectMessage, error) {
	if in.SenderID.IsZero() {
		return models.DirectMessage{}, apperr.Permission("sign in to send messages")
	}
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return models.DirectMessage{}, apperr.Validation("message cannot be empty")
	}
	if utf8.RuneCountInString(body) > MaxMessageLength {
		return models.DirectMessage{}, apperr.Validation(fmt.Sprintf("message cannot exceed %d characters", MaxMessageLength))
	}
	if in.Gems < 0 {
		return models.DirectMessage{}, apperr.Validation("gems cannot be negative")
	}
	if in.SenderID == in.RecipientID {
		return models.DirectMessage{}, apperr.Validation("you cannot message yourself")
	}

	h, err := s.households.GetByID(ctx, in.HouseholdID)
	if err != nil {
		return models.DirectMessage{}, notFound(err, "household not found")
	}
	if !h.IsMember(in.SenderID) {
		return models.DirectMessage{}, apperr.Permission("you are not a member of this household")
	}
	if !h.IsMember(in.RecipientID) {
		return models.DirectMessage{}, apperr.NotFound("recipient is not a member of this household")
	}

	now := s.now()
	var msg models.DirectMessage
	err = s.tx.Run(ctx, func(ctx context.Context) error {
		if in.Gems > 0 {
			ok, err := s.users.DebitGems(ctx, in.SenderID, in.Gems)
			if err != nil {
				return notFound(err, "sender not found")
			}
			if !ok {
				return apperr.FailedPrecondition(MsgNotEnoughGems)
			}
		}
		var err error
		msg, err = s.messages.Create(ctx, models.DirectMessage{
			HouseholdID:  in.HouseholdID,
			SenderID:     in.SenderID,
			RecipientID:  in.RecipientID,
			Participants: []primitive.ObjectID{in.SenderID, in.RecipientID},
			Body:         body,
			Gems:         in.Gems,
			CreatedAt:    now,
		})
		if err != nil {
			return err
		}
		if in.Gems == 0 {
			return nil
		}
		if err := s.users.IncGems(ctx, in.RecipientID, in.Gems); err != nil {
			return notFound(err, "recipient not found")
		}
		if err := s.ledger.Append(ctx, models.GemTransaction{
			UserID:      in.SenderID,
			Amount:      -in.Gems,
			Type:        models.GemGiftSent,
			Description: "Gift sent",
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		return s.ledger.Append(ctx, models.GemTransaction{
			UserID:      in.RecipientID,
			Amount:      in.Gems,
			Type:        models.GemGiftReceived,
			Description: "Gift received",
			CreatedAt:   now,
		})
	})
	if err != nil {
		return models.DirectMessage{}, err
	}

	if in.Gems > 0 {
		s.log.Info("gems gifted",
			zap.String("household_id", in.HouseholdID.Hex()),
			zap.String("user_id", in.SenderID.Hex()),
			zap.String("recipient_id", in.RecipientID.Hex()),
			zap.Int("gems", in.Gems))
	}
	title := "New message"
	if in.Gems > 0 {
		title = fmt.Sprintf("You received %d gems", in.Gems)
	}
	s.notifyUser(ctx, in.RecipientID, Payload{
		Title: title,
		Body:  preview(body, 120),
		Data:  map[string]string{"messageId": msg.ID.Hex(), "senderId": in.SenderID.Hex(), "type": "direct_message"},
	}, models.PrefDirectMessages)
	return msg, nil
}

// ListConversation returns the messages between userID and otherID in a
// household, oldest first.
func (s *Service) ListConversation(ctx context.Context, householdID, userID, otherID primitive.ObjectID, limit int64) ([]models.DirectMessage, error) {
	if _, err := s.GetHousehold(ctx, householdID, userID); err != nil {
		return nil, err
	}
	return s.messages.ListConversation(ctx, householdID, userID, otherID, limit)
}

// MarkMessageRead sets readAt on a message the first time its recipient
// reads it. Later calls leave the original time in place.
func (s *Service) MarkMessageRead(ctx context.Context, messageID, userID primitive.ObjectID) (models.DirectMessage, error) {
	m, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return models.DirectMessage{}, notFound(err, "message not found")
	}
	if m.RecipientID != userID {
		return models.DirectMessage{}, apperr.Permission("only the recipient can mark a message read")
	}
	if m.ReadAt != nil {
		return m, nil
	}
	if _, err := s.messages.MarkRead(ctx, messageID, s.now()); err != nil {
		return models.DirectMessage{}, err
	}
	m, err = s.messages.GetByID(ctx, messageID)
	if err != nil {
		return models.DirectMessage{}, notFound(err, "message not found")
	}
	return m, nil
}

// UnreadMessageCount counts the messages addressed to userID that have not
// been read yet.
func (s *Service) UnreadMessageCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.messages.UnreadCount(ctx, userID)
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
