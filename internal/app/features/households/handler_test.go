package households_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/dalemusser/chorehub/internal/app/engine"
	"github.com/dalemusser/chorehub/internal/app/features/households"
	"github.com/dalemusser/chorehub/internal/domain/models"
	"github.com/dalemusser/chorehub/internal/testutil"
	"github.com/dalemusser/chorehub/internal/testutil/memstore"
	"go.uber.org/zap"
)

type fixture struct {
	db     *memstore.DB
	svc    *engine.Service
	router http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memstore.New()
	deps := db.Deps()
	deps.Log = zap.NewNop()
	deps.BaseURL = "https://chores.example.com"
	svc := engine.New(deps)
	return &fixture{
		db:     db,
		svc:    svc,
		router: households.Routes(households.NewHandler(svc, zap.NewNop())),
	}
}

func (f *fixture) do(u models.User, method, target string, body any) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	f.router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(method, target, testutil.UserFrom(u), body))
	return rec
}

// home creates a household headed by head with the others joined.
func (f *fixture) home(t *testing.T, head models.User, others ...models.User) models.Household {
	t.Helper()
	ctx := context.Background()
	hh, err := f.svc.CreateHousehold(ctx, "Home", head.ID)
	if err != nil {
		t.Fatalf("CreateHousehold: %v", err)
	}
	if len(others) > 0 {
		inv, err := f.svc.GenerateInviteLink(ctx, hh.ID, head.ID)
		if err != nil {
			t.Fatalf("GenerateInviteLink: %v", err)
		}
		for _, u := range others {
			if _, err := f.svc.JoinHouseholdByInvite(ctx, inv.Token, u.ID); err != nil {
				t.Fatalf("JoinHouseholdByInvite: %v", err)
			}
		}
	}
	return f.db.Household(hh.ID)
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ann := f.db.PutUser(models.User{DisplayName: "Ann"})

	rec := f.do(ann, "POST", "/", map[string]string{"name": "  <b>The Burrow</b> "})
	rec.AssertStatus(t, http.StatusCreated)

	var got models.Household
	rec.DecodeJSON(t, &got)
	if got.Name != "The Burrow" {
		t.Errorf("name: got %q, want %q", got.Name, "The Burrow")
	}
	if got.HeadOfHousehold != ann.ID {
		t.Errorf("head: got %v, want %v", got.HeadOfHousehold, ann.ID)
	}
	u := f.db.User(ann.ID)
	if u.CurrentHouseholdID == nil || *u.CurrentHouseholdID != got.ID {
		t.Errorf("current household not set to the new household")
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ann := f.db.PutUser(models.User{DisplayName: "Ann"})

	tests := []struct {
		name string
		body any
	}{
		{"empty name", map[string]string{"name": "   "}},
		{"markup only", map[string]string{"name": "<i></i>"}},
		{"malformed", `{"name":`},
		{"unknown field", `{"name":"x","owner":"y"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(ann, "POST", "/", tt.body)
			rec.AssertStatus(t, http.StatusBadRequest)
			rec.AssertErrorCode(t, "validation")
		})
	}
}

func TestRequiresUser(t *testing.T) {
	f := newFixture(t)
	rec := testutil.NewRecorder()
	f.router.ServeHTTP(rec, testutil.NewJSONRequest("POST", "/", map[string]string{"name": "Home"}))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestGet_RedactsInvitesForMembers(t *testing.T) {
	f := newFixture(t)
	ann := f.db.PutUser(models.User{DisplayName: "Ann"})
	bob := f.db.PutUser(models.User{DisplayName: "Bob"})
	eve := f.db.PutUser(models.User{DisplayName: "Eve"})
	hh := f.home(t, ann, bob)
	target := "/" + hh.ID.Hex()

	var asHead, asMember models.Household
	rec := f.do(ann, "GET", target, nil)
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &asHead)
	if len(asHead.InviteLinks) != 1 {
		t.Errorf("head sees %d invite links, want 1", len(asHead.InviteLinks))
	}

	rec = f.do(bob, "GET", target, nil)
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &asMember)
	if len(asMember.InviteLinks) != 0 {
		t.Errorf("member sees %d invite links, want 0", len(asMember.InviteLinks))
	}

	rec = f.do(eve, "GET", target, nil)
	rec.AssertStatus(t, http.StatusForbidden)
	rec.AssertErrorCode(t, "permission_denied")

	rec = f.do(ann, "GET", "/not-an-id", nil)
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestInvite(t *testing.T) {
	f := newFixture(t)
	ann := f.db.PutUser(models.User{DisplayName: "Ann"})
	bob := f.db.PutUser(models.User{DisplayName: "Bob"})
	hh := f.home(t, ann, bob)
	target := "/" + hh.ID.Hex() + "/invites"

	rec := f.do(ann, "POST", target, nil)
	rec.AssertStatus(t, http.StatusCreated)
	var inv engine.InviteResult
	rec.DecodeJSON(t, &inv)
	if inv.Token == "" {
		t.Error("expected a token")
	}
	if inv.URL == "" {
		t.Error("expected a shareable URL")
	}

	rec = f.do(bob, "POST", target, nil)
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestSettingsAndMembers(t *testing.T) {
	f := newFixture(t)
	ann := f.db.PutUser(models.User{DisplayName: "Ann"})
	bob := f.db.PutUser(models.User{DisplayName: "Bob"})
	hh := f.home(t, ann, bob)
	base := "/" + hh.ID.Hex()

	rec := f.do(ann, "PATCH", base+"/settings", map[string]any{
		"gem_prompt":         "Dishes are worth 10 gems",
		"allow_gem_override": true,
	})
	rec.AssertStatus(t, http.StatusOK)
	got := f.db.Household(hh.ID)
	if got.GemPrompt != "Dishes are worth 10 gems" || !got.AllowGemOverride {
		t.Errorf("settings not applied: %+v", got)
	}
	if got.Name != "Home" {
		t.Errorf("name changed to %q", got.Name)
	}

	rec = f.do(bob, "PATCH", base+"/settings", map[string]any{"name": "Mine"})
	rec.AssertStatus(t, http.StatusForbidden)

	rec = f.do(bob, "GET", base+"/members", nil)
	rec.AssertStatus(t, http.StatusOK)
	var body struct {
		Members []engine.Member `json:"members"`
	}
	rec.DecodeJSON(t, &body)
	if len(body.Members) != 2 {
		t.Fatalf("got %d members, want 2", len(body.Members))
	}
	roles := map[string]string{}
	for _, m := range body.Members {
		roles[m.DisplayName] = m.Role
	}
	if roles["Ann"] != models.RoleHead || roles["Bob"] != models.RoleMember {
		t.Errorf("roles: got %v", roles)
	}
}

func TestRemoveMember(t *testing.T) {
	f := newFixture(t)
	ann := f.db.PutUser(models.User{DisplayName: "Ann"})
	bob := f.db.PutUser(models.User{DisplayName: "Bob"})
	hh := f.home(t, ann, bob)
	base := "/" + hh.ID.Hex() + "/members/"

	rec := f.do(bob, "DELETE", base+ann.ID.Hex(), nil)
	rec.AssertStatus(t, http.StatusForbidden)

	rec = f.do(ann, "DELETE", base+ann.ID.Hex(), nil)
	rec.AssertStatus(t, http.StatusUnprocessableEntity)
	rec.AssertErrorCode(t, "failed_precondition")

	rec = f.do(ann, "DELETE", base+bob.ID.Hex(), nil)
	rec.AssertStatus(t, http.StatusNoContent)
	if f.db.Household(hh.ID).IsMember(bob.ID) {
		t.Error("bob is still a member")
	}
	if f.db.User(bob.ID).CurrentHouseholdID != nil {
		t.Error("bob's current household was not cleared")
	}
}

func TestLeaveAndSwitch(t *testing.T) {
	f := newFixture(t)
	ann := f.db.PutUser(models.User{DisplayName: "Ann"})
	bob := f.db.PutUser(models.User{DisplayName: "Bob"})
	first := f.home(t, ann, bob)
	second := f.home(t, bob)

	rec := f.do(bob, "POST", "/"+first.ID.Hex()+"/switch", nil)
	rec.AssertStatus(t, http.StatusNoContent)
	if cur := f.db.User(bob.ID).CurrentHouseholdID; cur == nil || *cur != first.ID {
		t.Fatalf("current household: got %v, want %v", cur, first.ID)
	}

	rec = f.do(ann, "POST", "/"+second.ID.Hex()+"/switch", nil)
	rec.AssertStatus(t, http.StatusForbidden)

	rec = f.do(ann, "POST", "/"+first.ID.Hex()+"/leave", nil)
	rec.AssertStatus(t, http.StatusUnprocessableEntity)

	rec = f.do(bob, "POST", "/"+first.ID.Hex()+"/leave", nil)
	rec.AssertStatus(t, http.StatusNoContent)
	if cur := f.db.User(bob.ID).CurrentHouseholdID; cur == nil || *cur != second.ID {
		t.Errorf("current household after leaving: got %v, want %v", cur, second.ID)
	}
}
