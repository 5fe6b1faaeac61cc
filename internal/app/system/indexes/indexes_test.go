package indexes_test

import (
	"testing"

	"github.com/dalemusser/chorehub/internal/app/system/indexes"
	"github.com/dalemusser/chorehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func indexNames(t *testing.T, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes on %s failed: %v", coll, err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// SetupTestDB already ran EnsureAll once.
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)

	tests := []struct {
		coll string
		want []string
	}{
		{"users", []string{"uniq_users_auth", "idx_users_email", "idx_users_household_name"}},
		{"households", []string{"idx_households_members"}},
		{"household_invites", []string{"uniq_household_invites_token", "idx_household_invites_household"}},
		{"tasks", []string{"idx_tasks_household_status_created", "idx_tasks_household_created", "idx_tasks_claimedby_status"}},
		{"gem_transactions", []string{"idx_gemtx_user_created", "idx_gemtx_task"}},
		{"direct_messages", []string{"idx_dm_household_participants_created", "idx_dm_recipient_readat"}},
		{"task_reminders", []string{"uniq_reminders_task_days", "idx_reminders_sent_sendat"}},
		{"push_subscriptions", []string{"uniq_push_endpoint", "idx_push_user"}},
		{"oauth_states", []string{"uniq_oauth_state", "idx_oauth_expires_ttl"}},
	}
	for _, tt := range tests {
		t.Run(tt.coll, func(t *testing.T) {
			names := indexNames(t, db, tt.coll)
			for _, name := range tt.want {
				if !names[name] {
					t.Errorf("expected index %q on %s", name, tt.coll)
				}
			}
		})
	}
}

func TestEnsureAll_UniqueInviteToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	hid := primitive.NewObjectID()
	if _, err := db.Collection("household_invites").InsertOne(ctx, bson.M{"token": "abc", "household_id": hid}); err != nil {
		t.Fatalf("insert invite failed: %v", err)
	}
	_, err := db.Collection("household_invites").InsertOne(ctx, bson.M{"token": "abc", "household_id": primitive.NewObjectID()})
	if !mongo.IsDuplicateKeyError(err) {
		t.Errorf("expected duplicate key error, got %v", err)
	}
}

func TestEnsureAll_RecreatesRenamedIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	coll := db.Collection("households")
	if _, err := coll.Indexes().DropOne(ctx, "idx_households_members"); err != nil {
		t.Fatalf("drop failed: %v", err)
	}
	if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "members", Value: 1}}}); err != nil {
		t.Fatalf("create legacy index failed: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	names := indexNames(t, db, "households")
	if !names["idx_households_members"] {
		t.Error("index was not renamed to idx_households_members")
	}
	if names["members_1"] {
		t.Error("legacy index members_1 still present")
	}
}
