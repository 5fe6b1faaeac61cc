package engine_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dalemusser/chorehub/internal/app/engine"
	"github.com/dalemusser/chorehub/internal/app/system/apperr"
	"github.com/dalemusser/chorehub/internal/domain/models"
	"github.com/dalemusser/chorehub/internal/testutil/memstore"
	"go.uber.org/zap"
)

var t0 = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

type env struct {
	svc       *engine.Service
	db        *memstore.DB
	notifier  *memstore.Notifier
	reminders *memstore.Reminders
	clock     *memstore.Clock
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		db:        memstore.New(),
		notifier:  &memstore.Notifier{},
		reminders: &memstore.Reminders{},
		clock:     memstore.NewClock(t0),
	}
	deps := e.db.Deps()
	deps.Notifier = e.notifier
	deps.Reminders = e.reminders
	deps.Now = e.clock.Now
	deps.BaseURL = "https://chores.example.com/"
	deps.Log = zap.NewNop()
	n := 0
	deps.NewToken = func() string {
		n++
		return fmt.Sprintf("tok-%d", n)
	}
	e.svc = engine.New(deps)
	return e
}

func (e *env) user(name string, gems int) models.User {
	return e.db.PutUser(models.User{DisplayName: name, DisplayNameCI: name, Gems: gems})
}

// household creates a household headed by the first of n users and joins
// the rest through an invite.
func (e *env) household(t *testing.T, n int) (models.Household, []models.User) {
	t.Helper()
	ctx := context.Background()
	users := make([]models.User, n)
	for i := range users {
		users[i] = e.user(fmt.Sprintf("user%d", i), 0)
	}
	h, err := e.svc.CreateHousehold(ctx, "Home", users[0].ID)
	if err != nil {
		t.Fatalf("CreateHousehold: %v", err)
	}
	if n > 1 {
		inv, err := e.svc.GenerateInviteLink(ctx, h.ID, users[0].ID)
		if err != nil {
			t.Fatalf("GenerateInviteLink: %v", err)
		}
		for _, u := range users[1:] {
			if _, err := e.svc.JoinHouseholdByInvite(ctx, inv.Token, u.ID); err != nil {
				t.Fatalf("JoinHouseholdByInvite: %v", err)
			}
		}
	}
	return e.db.Household(h.ID), users
}

func wantKind(t *testing.T, err error, want apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want.Code())
	}
	if got := apperr.KindOf(err); got != want {
		t.Fatalf("error kind: got %q, want %q (%v)", got.Code(), want.Code(), err)
	}
}

func checkClaimInvariant(t *testing.T, task models.Task) {
	t.Helper()
	if task.Status.HasClaimant() != (task.ClaimedBy != nil) {
		t.Fatalf("status %q with claimed_by=%v", task.Status, task.ClaimedBy)
	}
}

func checkHeadInvariant(t *testing.T, h models.Household) {
	t.Helper()
	if !h.IsMember(h.HeadOfHousehold) {
		t.Fatalf("head %s not in members %v", h.HeadOfHousehold.Hex(), h.Members)
	}
}

// claimedTask creates, publishes and claims a task for claimant.
func (e *env) claimedTask(t *testing.T, h models.Household, creator, claimant models.User, gems int) models.Task {
	t.Helper()
	ctx := context.Background()
	task, err := e.svc.CreateTask(ctx, engine.CreateTaskInput{
		HouseholdID: h.ID,
		CreatorID:   creator.ID,
		Title:       "Dishes",
		Status:      models.TaskPublished,
		DueDate:     t0.Add(10 * 24 * time.Hour),
		Gems:        gems,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := e.svc.ClaimTask(ctx, task.ID, claimant.ID); err != nil {
		t.Fatalf("ClaimTask: %v", err)
	}
	return e.db.Task(task.ID)
}
