package ledgerstore_test

import (
	"testing"
	"time"

	ledgerstore "github.com/dalemusser/chorehub/internal/app/store/ledger"
	"github.com/dalemusser/chorehub/internal/domain/models"
	"github.com/dalemusser/chorehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_AppendAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := ledgerstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := primitive.NewObjectID()
	base := time.Now().UTC().Add(-time.Hour)
	rows := []models.GemTransaction{
		{UserID: user, Amount: 5, Type: models.GemTaskCreation, Description: "created", CreatedAt: base},
		{UserID: user, Amount: 3, Type: models.GemVerification, Description: "verified", CreatedAt: base.Add(time.Minute)},
		{UserID: user, Amount: -4, Type: models.GemGiftSent, Description: "gift", CreatedAt: base.Add(2 * time.Minute)},
		{UserID: primitive.NewObjectID(), Amount: 4, Type: models.GemGiftReceived, Description: "gift", CreatedAt: base},
	}
	for _, r := range rows {
		if err := store.Append(ctx, r); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := store.ListByUser(ctx, user, 0)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	if got[0].Type != models.GemGiftSent {
		t.Errorf("expected newest row first, got %q", got[0].Type)
	}

	limited, _ := store.ListByUser(ctx, user, 2)
	if len(limited) != 2 {
		t.Errorf("limit: got %d rows, want 2", len(limited))
	}

	sum, err := store.SumByUser(ctx, user)
	if err != nil {
		t.Fatalf("SumByUser failed: %v", err)
	}
	if sum != 4 {
		t.Errorf("SumByUser: got %d, want 4", sum)
	}
}

func TestStore_SumByUser_NoRows(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := ledgerstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sum, err := store.SumByUser(ctx, primitive.NewObjectID())
	if err != nil || sum != 0 {
		t.Errorf("SumByUser: got %d, %v", sum, err)
	}
}
