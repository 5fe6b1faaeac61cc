package engine

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/chorehub/internal/app/system/apperr"
	"github.com/dalemusser/chorehub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Identity is what the external identity provider tells us about a
// signed-in user.
type Identity struct {
	Provider    string
	Subject     string
	Email       string
	DisplayName string
}

// EnsureUser creates the user on first sign-in (no households, zero gems)
// or refreshes the profile of a returning one.
func (s *Service) EnsureUser(ctx context.Context, id Identity) (models.User, error) {
	if strings.TrimSpace(id.Subject) == "" {
		return models.User{}, apperr.Validation("identity subject is required")
	}
	name := strings.TrimSpace(id.DisplayName)
	if name == "" {
		name = strings.TrimSpace(id.Email)
	}
	return s.users.UpsertIdentity(ctx, id.Provider, id.Subject, strings.ToLower(strings.TrimSpace(id.Email)), name)
}

// GetProfile returns the user document for userID.
func (s *Service) GetProfile(ctx context.Context, userID primitive.ObjectID) (models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, notFound(err, "user not found")
	}
	return u, nil
}

// CreateHousehold creates a household headed by headUserID and makes it the
// user's current household.
func (s *Service) CreateHousehold(ctx context.Context, name string, headUserID primitive.ObjectID) (models.Household, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Household{}, apperr.Validation("household name is required")
	}
	if _, err := s.users.GetByID(ctx, headUserID); err != nil {
		return models.Household{}, notFound(err, "user not found")
	}

	now := s.now()
	var created models.Household
	err := s.tx.Run(ctx, func(ctx context.Context) error {
		h, err := s.households.Create(ctx, models.Household{
			Name:            name,
			HeadOfHousehold: headUserID,
			Members:         []primitive.ObjectID{headUserID},
			InviteLinks:     []models.InviteLink{},
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			return err
		}
		created = h
		return s.users.AddHousehold(ctx, headUserID, models.UserHousehold{
			HouseholdID: h.ID,
			Role:        models.RoleHead,
			JoinedAt:    now,
		})
	})
	if err != nil {
		return models.Household{}, err
	}
	s.log.Info("household created",
		zap.String("household_id", created.ID.Hex()),
		zap.String("user_id", headUserID.Hex()))
	return created, nil
}

// InviteResult is a freshly generated invite link.
type InviteResult struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GenerateInviteLink appends a new invite link to the household. Earlier
// links stay valid until they expire.
func (s *Service) GenerateInviteLink(ctx context.Context, householdID, requesterID primitive.ObjectID) (InviteResult, error) {
	h, err := s.households.GetByID(ctx, householdID)
	if err != nil {
		return InviteResult{}, notFound(err, "household not found")
	}
	if !h.IsHead(requesterID) {
		return InviteResult{}, apperr.Permission("only the head of household can invite members")
	}

	now := s.now()
	expires := now.Add(s.inviteTTL)
	link := models.InviteLink{
		MemberID:  uuid.NewString(),
		Token:     s.newToken(),
		ExpiresAt: &expires,
		CreatedBy: requesterID,
		CreatedAt: now,
	}
	err = s.tx.Run(ctx, func(ctx context.Context) error {
		if err := s.households.AddInviteLink(ctx, householdID, link); err != nil {
			return err
		}
		return s.invites.Create(ctx, models.Invite{
			Token:       link.Token,
			HouseholdID: householdID,
			MemberID:    link.MemberID,
			ExpiresAt:   link.ExpiresAt,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return InviteResult{}, err
	}
	return InviteResult{
		Token:     link.Token,
		URL:       strings.TrimRight(s.baseURL, "/") + "/invite/" + link.Token,
		ExpiresAt: expires,
	}, nil
}

// JoinHouseholdByInvite adds userID to the household the token points at
// and makes it current. Joining a household the user already belongs to
// only switches the current household.
func (s *Service) JoinHouseholdByInvite(ctx context.Context, token string, userID primitive.ObjectID) (models.Household, error) {
	const invalid = "Invalid or expired invite link"

	token = strings.TrimSpace(token)
	if token == "" {
		return models.Household{}, apperr.NotFound(invalid)
	}
	inv, err := s.invites.GetByToken(ctx, token)
	if err != nil {
		return models.Household{}, notFound(err, invalid)
	}
	if inv.Expired(s.now()) {
		return models.Household{}, apperr.NotFound(invalid)
	}
	h, err := s.households.GetByID(ctx, inv.HouseholdID)
	if err != nil {
		return models.Household{}, notFound(err, invalid)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return models.Household{}, notFound(err, "user not found")
	}

	if h.IsMember(userID) {
		hid := h.ID
		if err := s.users.SetCurrentHousehold(ctx, userID, &hid); err != nil {
			return models.Household{}, err
		}
		return h, nil
	}

	now := s.now()
	err = s.tx.Run(ctx, func(ctx context.Context) error {
		if err := s.households.AddMember(ctx, h.ID, userID); err != nil {
			return err
		}
		return s.users.AddHousehold(ctx, userID, models.UserHousehold{
			HouseholdID: h.ID,
			Role:        models.RoleMember,
			JoinedAt:    now,
		})
	})
	if err != nil {
		return models.Household{}, err
	}
	s.log.Info("member joined household",
		zap.String("household_id", h.ID.Hex()),
		zap.String("user_id", userID.Hex()))

	h, err = s.households.GetByID(ctx, h.ID)
	if err != nil {
		return models.Household{}, notFound(err, "household not found")
	}
	for _, m := range h.Members {
		if m != userID {
			s.notifyUser(ctx, m, Payload{
				Title: "New household member",
				Body:  "Someone joined " + h.Name,
				Data:  map[string]string{"householdId": h.ID.Hex(), "type": "member_joined"},
			})
		}
	}
	return h, nil
}

// SwitchCurrentHousehold makes householdID the user's current household.
func (s *Service) SwitchCurrentHousehold(ctx context.Context, userID, householdID primitive.ObjectID) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return notFound(err, "user not found")
	}
	if _, ok := u.Membership(householdID); !ok {
		return apperr.Permission("you are not a member of this household")
	}
	return s.users.SetCurrentHousehold(ctx, userID, &householdID)
}

// RemoveMemberFromHousehold removes memberID from the household. Only the
// head may do this, and the head cannot be removed.
func (s *Service) RemoveMemberFromHousehold(ctx context.Context, householdID, memberID, requesterID primitive.ObjectID) error {
	h, err := s.households.GetByID(ctx, householdID)
	if err != nil {
		return notFound(err, "household not found")
	}
	if !h.IsHead(requesterID) {
		return apperr.Permission("only the head of household can remove members")
	}
	if h.IsHead(memberID) {
		return apperr.FailedPrecondition("the head of household cannot be removed")
	}
	if !h.IsMember(memberID) {
		return apperr.NotFound("member not found")
	}
	return s.detachMember(ctx, householdID, memberID)
}

// LeaveHousehold removes userID from a household they belong to. The head
// cannot leave because headship cannot be transferred.
func (s *Service) LeaveHousehold(ctx context.Context, householdID, userID primitive.ObjectID) error {
	h, err := s.households.GetByID(ctx, householdID)
	if err != nil {
		return notFound(err, "household not found")
	}
	if !h.IsMember(userID) {
		return apperr.Permission("you are not a member of this household")
	}
	if h.IsHead(userID) {
		return apperr.FailedPrecondition("the head of household cannot leave")
	}
	return s.detachMember(ctx, householdID, userID)
}

// detachMember pulls the member from the household and the household from
// the member, then repoints their current household when it was this one.
func (s *Service) detachMember(ctx context.Context, householdID, memberID primitive.ObjectID) error {
	err := s.tx.Run(ctx, func(ctx context.Context) error {
		if err := s.households.RemoveMember(ctx, householdID, memberID); err != nil {
			return err
		}
		if err := s.users.RemoveHousehold(ctx, memberID, householdID); err != nil {
			return err
		}
		u, err := s.users.GetByID(ctx, memberID)
		if err != nil {
			return notFound(err, "user not found")
		}
		if u.CurrentHouseholdID == nil || *u.CurrentHouseholdID != householdID {
			return nil
		}
		var next *primitive.ObjectID
		if len(u.Households) > 0 {
			id := u.Households[0].HouseholdID
			next = &id
		}
		return s.users.SetCurrentHousehold(ctx, memberID, next)
	})
	if err != nil {
		return err
	}
	s.log.Info("member left household",
		zap.String("household_id", householdID.Hex()),
		zap.String("user_id", memberID.Hex()))
	return nil
}

// UpdateHouseholdSettings applies head-only settings changes.
func (s *Service) UpdateHouseholdSettings(ctx context.Context, householdID, requesterID primitive.ObjectID, upd HouseholdSettings) (models.Household, error) {
	h, err := s.households.GetByID(ctx, householdID)
	if err != nil {
		return models.Household{}, notFound(err, "household not found")
	}
	if !h.IsHead(requesterID) {
		return models.Household{}, apperr.Permission("only the head of household can change settings")
	}
	if upd.Name != nil {
		n := strings.TrimSpace(*upd.Name)
		if n == "" {
			return models.Household{}, apperr.Validation("household name is required")
		}
		upd.Name = &n
	}
	if upd.GemPrompt != nil {
		p := strings.TrimSpace(*upd.GemPrompt)
		upd.GemPrompt = &p
	}
	if err := s.households.UpdateSettings(ctx, householdID, upd); err != nil {
		return models.Household{}, err
	}
	h, err = s.households.GetByID(ctx, householdID)
	if err != nil {
		return models.Household{}, notFound(err, "household not found")
	}
	return h, nil
}

// GetHousehold returns a household the requester belongs to.
func (s *Service) GetHousehold(ctx context.Context, householdID, requesterID primitive.ObjectID) (models.Household, error) {
	h, err := s.households.GetByID(ctx, householdID)
	if err != nil {
		return models.Household{}, notFound(err, "household not found")
	}
	if !h.IsMember(requesterID) {
		return models.Household{}, apperr.Permission("you are not a member of this household")
	}
	return h, nil
}

// Member is a household member as shown on the member list.
type Member struct {
	ID          primitive.ObjectID `json:"id"`
	DisplayName string             `json:"display_name"`
	Role        string             `json:"role"`
	Gems        int                `json:"gems"`
}

// ListMembers returns the profiles of every member of the household.
func (s *Service) ListMembers(ctx context.Context, householdID, requesterID primitive.ObjectID) ([]Member, error) {
	h, err := s.GetHousehold(ctx, householdID, requesterID)
	if err != nil {
		return nil, err
	}
	users, err := s.users.GetMany(ctx, h.Members)
	if err != nil {
		return nil, err
	}
	out := make([]Member, 0, len(users))
	for _, u := range users {
		role := models.RoleMember
		if h.IsHead(u.ID) {
			role = models.RoleHead
		}
		out = append(out, Member{ID: u.ID, DisplayName: u.DisplayName, Role: role, Gems: u.Gems})
	}
	return out, nil
}

// SetNotificationPrefs stores the user's notification preferences. Unknown
// keys are rejected.
func (s *Service) SetNotificationPrefs(ctx context.Context, userID primitive.ObjectID, prefs map[string]bool) (models.User, error) {
	for k := range prefs {
		if !models.KnownPref(k) {
			return models.User{}, apperr.Validation("unknown notification preference: " + k)
		}
	}
	if err := s.users.SetNotificationPrefs(ctx, userID, prefs); err != nil {
		return models.User{}, notFound(err, "user not found")
	}
	return s.GetProfile(ctx, userID)
}
