package capturestore_test

import (
	"errors"
	"testing"
	"time"

	capturestore "github.com/dalemusser/fundhub/internal/app/store/captures"
	"github.com/dalemusser/fundhub/internal/app/system/apperr"
	"github.com/dalemusser/fundhub/internal/domain/models"
	"github.com/dalemusser/fundhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := capturestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	pc, err := store.Create(ctx, models.PaymentCapture{
		ID:         "order-1",
		CampaignID: primitive.NewObjectID(),
		Amount:     2_000,
		DonorName:  "Ana",
		Status:     models.CaptureRecorded,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if pc.Status != models.CaptureCreated {
		t.Errorf("Status = %q, want created", pc.Status)
	}

	if err := store.MarkCaptured(ctx, "order-1", "txn-9"); err != nil {
		t.Fatalf("MarkCaptured failed: %v", err)
	}
	// A repeated notification is harmless.
	if err := store.MarkCaptured(ctx, "order-1", "txn-9"); err != nil {
		t.Fatalf("second MarkCaptured failed: %v", err)
	}

	donationID := primitive.NewObjectID()
	if err := store.MarkRecorded(ctx, "order-1", donationID); err != nil {
		t.Fatalf("MarkRecorded failed: %v", err)
	}
	// A late notification must not move a recorded capture backwards.
	if err := store.MarkCaptured(ctx, "order-1", "txn-9"); err != nil {
		t.Fatalf("late MarkCaptured failed: %v", err)
	}

	got, found, err := store.Get(ctx, "order-1")
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if got.Status != models.CaptureRecorded {
		t.Errorf("Status = %q, want recorded", got.Status)
	}
	if got.DonationID == nil || *got.DonationID != donationID {
		t.Errorf("DonationID = %v, want %s", got.DonationID, donationID.Hex())
	}
	if got.ProviderTxnID != "txn-9" {
		t.Errorf("ProviderTxnID = %q, want txn-9", got.ProviderTxnID)
	}

	if err := store.MarkCaptured(ctx, "missing", "x"); !apperr.IsNotFound(err) {
		t.Errorf("MarkCaptured(missing): err = %v, want NotFoundError", err)
	}
}

func TestRecordAttemptFailure_FlagsForReview(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := capturestore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateCapture(ctx, "order-2", primitive.NewObjectID(), 1_000, models.CaptureCaptured)
	cause := errors.New("write conflict")

	for i := 1; i <= 2; i++ {
		pc, err := store.RecordAttemptFailure(ctx, "order-2", cause, 3)
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if pc.Attempts != i || pc.Status != models.CaptureCaptured {
			t.Errorf("attempt %d: attempts=%d status=%q", i, pc.Attempts, pc.Status)
		}
	}

	pc, err := store.RecordAttemptFailure(ctx, "order-2", cause, 3)
	if err != nil {
		t.Fatalf("attempt 3: %v", err)
	}
	if pc.Status != models.CaptureNeedsReview {
		t.Errorf("Status = %q, want needs_review", pc.Status)
	}
	if pc.LastError != "write conflict" {
		t.Errorf("LastError = %q", pc.LastError)
	}

	list, err := store.ListNeedingAttention(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListNeedingAttention = %d, %v; want 1", len(list), err)
	}

	if err := store.Requeue(ctx, "order-2"); err != nil {
		t.Fatalf("Requeue failed: %v", err)
	}
	got, _, _ := store.Get(ctx, "order-2")
	if got.Status != models.CaptureCaptured || got.Attempts != 0 {
		t.Errorf("after Requeue: status=%q attempts=%d", got.Status, got.Attempts)
	}
}

func TestRequeue_RejectsRecorded(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := capturestore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateCapture(ctx, "order-3", primitive.NewObjectID(), 1_000, models.CaptureRecorded)

	if err := store.Requeue(ctx, "order-3"); !apperr.IsConflict(err) {
		t.Errorf("Requeue(recorded): err = %v, want ConflictError", err)
	}
	if err := store.Requeue(ctx, "nope"); !apperr.IsNotFound(err) {
		t.Errorf("Requeue(missing): err = %v, want NotFoundError", err)
	}
}

func TestListPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := capturestore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	campaignID := primitive.NewObjectID()
	fx.CreateCapture(ctx, "a", campaignID, 100, models.CaptureCaptured)
	fx.CreateCapture(ctx, "b", campaignID, 100, models.CaptureCreated)
	fx.CreateCapture(ctx, "c", campaignID, 100, models.CaptureRecorded)
	fx.CreateCapture(ctx, "d", campaignID, 100, models.CaptureCaptured)

	pending, err := store.ListPending(ctx, time.Now().Add(time.Second), 10)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("got %d pending captures, want 2", len(pending))
	}

	none, err := store.ListPending(ctx, time.Now().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("ListPending(old) failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d captures older than an hour, want 0", len(none))
	}

	n, err := store.CountByStatus(ctx, models.CaptureCaptured)
	if err != nil || n != 2 {
		t.Errorf("CountByStatus(captured) = %d, %v; want 2", n, err)
	}
}
