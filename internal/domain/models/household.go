package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Household groups members around a shared task board.
// Invariant: HeadOfHousehold is always an element of Members.
type Household struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name             string               `bson:"name" json:"name"`
	NameCI           string               `bson:"name_ci" json:"-"`
	HeadOfHousehold  primitive.ObjectID   `bson:"head_of_household" json:"head_of_household"`
	Members          []primitive.ObjectID `bson:"members" json:"members"`
	InviteLinks      []InviteLink         `bson:"invite_links" json:"invite_links,omitempty"`
	GemPrompt        string               `bson:"gem_prompt,omitempty" json:"gem_prompt,omitempty"`
	AllowGemOverride bool                 `bson:"allow_gem_override" json:"allow_gem_override"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsMember reports whether userID is listed in Members.
func (h Household) IsMember(userID primitive.ObjectID) bool {
	for _, m := range h.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// IsHead reports whether userID is the head of this household.
func (h Household) IsHead(userID primitive.ObjectID) bool {
	return h.HeadOfHousehold == userID
}

// InviteLink grants join capability until ExpiresAt. Links are not removed
// when used; any number of users may join through the same link.
type InviteLink struct {
	MemberID  string             `bson:"member_id" json:"member_id"` // opaque id, not a real member
	Token     string             `bson:"token" json:"token"`
	ExpiresAt *time.Time         `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// Expired reports whether the link has an expiry at or before now.
func (l InviteLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// Invite is the token index row that points an invite token at its
// household. It is written in the same transaction as the InviteLink.
type Invite struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Token       string             `bson:"token" json:"token"`
	HouseholdID primitive.ObjectID `bson:"household_id" json:"household_id"`
	MemberID    string             `bson:"member_id" json:"member_id"`
	ExpiresAt   *time.Time         `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// Expired reports whether the invite has an expiry at or before now.
func (i Invite) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}
