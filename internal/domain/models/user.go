package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Household roles carried on a UserHousehold entry.
const (
	RoleHead   = "head"
	RoleMember = "member"
)

// Notification preference keys. A key missing from User.NotificationPrefs
// counts as enabled.
const (
	PrefTaskClaimed          = "taskClaimed"
	PrefVerificationRequests = "verificationRequests"
	PrefTaskVerified         = "taskVerified"
	PrefDirectMessages       = "directMessages"
	PrefTaskReminders        = "taskReminders"
)

// User is a signed-in person. Gems is the authoritative balance and is only
// changed through the gem engine ($inc), never by a direct $set.
type User struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Email              string              `bson:"email" json:"email"`
	DisplayName        string              `bson:"display_name" json:"display_name"`
	DisplayNameCI      string              `bson:"display_name_ci" json:"-"`
	AuthProvider       string              `bson:"auth_provider,omitempty" json:"-"`
	AuthSubject        string              `bson:"auth_subject,omitempty" json:"-"` // provider's stable user id
	Households         []UserHousehold     `bson:"households" json:"households"`
	CurrentHouseholdID *primitive.ObjectID `bson:"current_household_id,omitempty" json:"current_household_id,omitempty"`
	Gems               int                 `bson:"gems" json:"gems"`
	NotificationPrefs  map[string]bool     `bson:"notification_prefs,omitempty" json:"notification_prefs,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// UserHousehold is embedded in User; at most one entry per household.
type UserHousehold struct {
	HouseholdID primitive.ObjectID `bson:"household_id" json:"household_id"`
	Role        string             `bson:"role" json:"role"` // head | member
	JoinedAt    time.Time          `bson:"joined_at" json:"joined_at"`
}

// Membership returns the user's entry for householdID, if any.
func (u User) Membership(householdID primitive.ObjectID) (UserHousehold, bool) {
	for _, m := range u.Households {
		if m.HouseholdID == householdID {
			return m, true
		}
	}
	return UserHousehold{}, false
}

// PrefEnabled reports whether the user wants notifications of kind key.
func (u User) PrefEnabled(key string) bool {
	if u.NotificationPrefs == nil {
		return true
	}
	v, ok := u.NotificationPrefs[key]
	return !ok || v
}

// KnownPref reports whether key is a recognised notification preference.
func KnownPref(key string) bool {
	switch key {
	case PrefTaskClaimed, PrefVerificationRequests, PrefTaskVerified, PrefDirectMessages, PrefTaskReminders:
		return true
	}
	return false
}
