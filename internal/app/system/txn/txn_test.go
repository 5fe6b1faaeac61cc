package txn_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dalemusser/chorehub/internal/app/system/txn"
	"github.com/dalemusser/chorehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unrelated", errors.New("connection reset"), false},
		{"no replica set", mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"}, true},
		{"illegal operation code", mongo.CommandError{Code: 51}, true},
		{"not supported in transaction", mongo.CommandError{Code: 263}, true},
		{"duplicate key", mongo.CommandError{Code: 11000, Message: "E11000 duplicate key"}, false},
		{"wrapped command error", fmt.Errorf("award gems: %w", mongo.CommandError{Code: 20}), true},
		{"message mentions replica set", errors.New("Transaction requires a Replica Set"), true},
		{"message mentions session", errors.New("cannot start transaction in this session state"), true},
		{"transaction alone", errors.New("transaction aborted"), false},
		{"session alone", errors.New("session expired"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := txn.IsNotSupported(tt.err); got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRun_CommitsAndRollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	coll := db.Collection("gem_transactions")
	r := txn.Runner{DB: db, Log: zap.NewNop()}

	if err := r.Run(ctx, func(ctx context.Context) error {
		_, err := coll.InsertOne(ctx, bson.M{"kind": "committed"})
		return err
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	boom := errors.New("boom")
	err := r.Run(ctx, func(ctx context.Context) error {
		if _, err := coll.InsertOne(ctx, bson.M{"kind": "aborted"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run error: got %v, want boom", err)
	}

	n, err := coll.CountDocuments(ctx, bson.M{"kind": "committed"})
	if err != nil || n != 1 {
		t.Errorf("committed docs: got %d (%v), want 1", n, err)
	}
	// A standalone server has no transactions, so the aborted write may
	// survive there; only a replica set guarantees the rollback.
	if hello := db.Client().Database("admin").RunCommand(ctx, bson.M{"hello": 1}); hello.Err() == nil {
		var res struct {
			SetName string `bson:"setName"`
		}
		if hello.Decode(&res) == nil && res.SetName != "" {
			if n, _ := coll.CountDocuments(ctx, bson.M{"kind": "aborted"}); n != 0 {
				t.Errorf("aborted write survived the rollback")
			}
		}
	}
}
