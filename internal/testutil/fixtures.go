package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/chorehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Calling it again on the same request adds to the existing parameters.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a signed-up user with no households and no gems.
func (f *Fixtures) CreateUser(ctx context.Context, displayName string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:            primitive.NewObjectID(),
		Email:         strings.ToLower(strings.ReplaceAll(displayName, " ", ".")) + "@example.com",
		DisplayName:   displayName,
		DisplayNameCI: text.Fold(displayName),
		AuthProvider:  "google",
		AuthSubject:   primitive.NewObjectID().Hex(),
		Households:    []models.UserHousehold{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("CreateUser(%q) failed: %v", displayName, err)
	}
	return u
}

// CreateHousehold inserts a household headed by head with the given extra
// members, and records the membership on each user.
func (f *Fixtures) CreateHousehold(ctx context.Context, name string, head models.User, members ...models.User) models.Household {
	f.t.Helper()

	now := time.Now().UTC()
	h := models.Household{
		ID:              primitive.NewObjectID(),
		Name:            name,
		NameCI:          text.Fold(name),
		HeadOfHousehold: head.ID,
		Members:         []primitive.ObjectID{head.ID},
		InviteLinks:     []models.InviteLink{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, m := range members {
		h.Members = append(h.Members, m.ID)
	}
	if _, err := f.db.Collection("households").InsertOne(ctx, h); err != nil {
		f.t.Fatalf("CreateHousehold(%q) failed: %v", name, err)
	}

	f.join(ctx, head.ID, h.ID, models.RoleHead, now)
	for _, m := range members {
		f.join(ctx, m.ID, h.ID, models.RoleMember, now)
	}
	return h
}

func (f *Fixtures) join(ctx context.Context, userID, householdID primitive.ObjectID, role string, at time.Time) {
	f.t.Helper()
	_, err := f.db.Collection("users").UpdateByID(ctx, userID, bson.M{
		"$push": bson.M{"households": models.UserHousehold{HouseholdID: householdID, Role: role, JoinedAt: at}},
		"$set":  bson.M{"current_household_id": householdID},
	})
	if err != nil {
		f.t.Fatalf("join household failed: %v", err)
	}
}

// CreateTask inserts a task in the given status. Tasks past published are
// claimed by the creator unless claimant is supplied.
func (f *Fixtures) CreateTask(ctx context.Context, householdID, creatorID primitive.ObjectID, title string, status models.TaskStatus, gems int, claimant ...primitive.ObjectID) models.Task {
	f.t.Helper()

	now := time.Now().UTC()
	tk := models.Task{
		ID:            primitive.NewObjectID(),
		HouseholdID:   householdID,
		CreatorID:     creatorID,
		Title:         title,
		Status:        status,
		DueDate:       now.Add(72 * time.Hour),
		Gems:          gems,
		Verifications: []models.Verification{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if status.HasClaimant() {
		by := creatorID
		if len(claimant) > 0 {
			by = claimant[0]
		}
		tk.ClaimedBy = &by
	}
	if _, err := f.db.Collection("tasks").InsertOne(ctx, tk); err != nil {
		f.t.Fatalf("CreateTask(%q) failed: %v", title, err)
	}
	return tk
}
