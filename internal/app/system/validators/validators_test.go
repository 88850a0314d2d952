package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/fundhub/internal/app/system/validators"
	"github.com/dalemusser/fundhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db, nil); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := make(map[string]bool)
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"campaigns", "donations", "withdrawal_requests", "payment_captures", "users"} {
		if !have[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func TestEnsureAll_RejectsBadLedgerWrites(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	campaignID := primitive.NewObjectID()
	now := time.Now().UTC()

	tests := []struct {
		name    string
		coll    string
		doc     bson.M
		wantErr bool
	}{
		{"donation ok", "donations", bson.M{"campaign_id": campaignID, "amount": int64(500), "created_at": now}, false},
		{"donation zero amount", "donations", bson.M{"campaign_id": campaignID, "amount": int64(0)}, true},
		{"donation fractional amount", "donations", bson.M{"campaign_id": campaignID, "amount": 12.5}, true},
		{"donation missing campaign", "donations", bson.M{"amount": int64(500)}, true},
		{"withdrawal ok", "withdrawal_requests", bson.M{
			"campaign_id": campaignID, "organizer_email": "org@example.com",
			"amount_requested": int64(0), "status": "pending",
		}, false},
		{"withdrawal unknown status", "withdrawal_requests", bson.M{
			"campaign_id": campaignID, "organizer_email": "org@example.com",
			"amount_requested": int64(100), "status": "paid",
		}, true},
		{"campaign negative total", "campaigns", bson.M{
			"title": "Roof", "status": "active", "goal": int64(1000),
			"current_amount": int64(-1), "donor_count": int64(0),
			"organizer": bson.M{"email": "org@example.com"},
		}, true},
		{"campaign blank title", "campaigns", bson.M{
			"title": "   ", "status": "active", "goal": int64(1000),
			"current_amount": int64(0), "donor_count": int64(0),
			"organizer": bson.M{"email": "org@example.com"},
		}, true},
		{"capture ok", "payment_captures", bson.M{
			"_id": "order-1", "campaign_id": campaignID, "amount": int64(500),
			"status": "created", "attempts": 0,
		}, false},
		{"capture unknown status", "payment_captures", bson.M{
			"_id": "order-2", "campaign_id": campaignID, "amount": int64(500),
			"status": "settled", "attempts": 0,
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Collection(tt.coll).InsertOne(ctx, tt.doc)
			if tt.wantErr && err == nil {
				t.Error("expected document validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("insert failed: %v", err)
			}
		})
	}
}
