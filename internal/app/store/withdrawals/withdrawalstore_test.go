package withdrawalstore_test

import (
	"testing"
	"time"

	withdrawalstore "github.com/dalemusser/fundhub/internal/app/store/withdrawals"
	"github.com/dalemusser/fundhub/internal/app/system/apperr"
	"github.com/dalemusser/fundhub/internal/domain/models"
	"github.com/dalemusser/fundhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreate_ForcesPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := withdrawalstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	w, err := store.Create(ctx, models.WithdrawalRequest{
		CampaignID:      primitive.NewObjectID(),
		OrganizerEmail:  " Org@Example.com",
		AmountRequested: 12_345,
		Status:          models.WithdrawalCompleted,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if w.Status != models.WithdrawalPending {
		t.Errorf("Status = %q, want pending", w.Status)
	}
	if w.OrganizerEmail != "org@example.com" {
		t.Errorf("OrganizerEmail = %q, want normalized", w.OrganizerEmail)
	}

	got, found, err := store.Get(ctx, w.ID)
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if got.AmountRequested != 12_345 {
		t.Errorf("AmountRequested = %v, want 123.45", got.AmountRequested)
	}
}

func TestListByOrganizer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := withdrawalstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	mine := fx.CreateCampaign(ctx, "Mine", "org@example.com")
	theirs := fx.CreateCampaign(ctx, "Theirs", "other@example.com")
	fx.CreateWithdrawal(ctx, mine, models.WithdrawalPending)
	time.Sleep(2 * time.Millisecond)
	fx.CreateWithdrawal(ctx, theirs, models.WithdrawalPending)
	time.Sleep(2 * time.Millisecond)
	newest := fx.CreateWithdrawal(ctx, mine, models.WithdrawalApproved)

	list, err := store.ListByOrganizer(ctx, "ORG@example.com")
	if err != nil {
		t.Fatalf("ListByOrganizer failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d requests, want 2", len(list))
	}
	if list[0].ID != newest.ID {
		t.Error("requests should be newest first")
	}

	all, err := store.ListAll(ctx)
	if err != nil || len(all) != 3 {
		t.Errorf("ListAll = %d, %v; want 3", len(all), err)
	}

	n, err := store.CountByStatus(ctx, models.WithdrawalPending)
	if err != nil || n != 2 {
		t.Errorf("CountByStatus(pending) = %d, %v; want 2", n, err)
	}
}

func TestDecide_Transitions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := withdrawalstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := fx.CreateCampaign(ctx, "Payout", "org@example.com")

	tests := []struct {
		from    string
		to      string
		wantErr func(error) bool
	}{
		{models.WithdrawalPending, models.WithdrawalApproved, nil},
		{models.WithdrawalPending, models.WithdrawalRejected, nil},
		{models.WithdrawalPending, models.WithdrawalCompleted, nil},
		{models.WithdrawalApproved, models.WithdrawalCompleted, nil},
		{models.WithdrawalApproved, models.WithdrawalRejected, nil},
		{models.WithdrawalApproved, models.WithdrawalPending, apperr.IsConflict},
		{models.WithdrawalRejected, models.WithdrawalApproved, apperr.IsConflict},
		{models.WithdrawalCompleted, models.WithdrawalRejected, apperr.IsConflict},
		{models.WithdrawalPending, models.WithdrawalPending, apperr.IsConflict},
		{models.WithdrawalPending, "paid", apperr.IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			w := fx.CreateWithdrawal(ctx, c, tt.from)
			got, err := store.Decide(ctx, w.ID, tt.to, "Admin@Test.com", "checked")

			if tt.wantErr != nil {
				if !tt.wantErr(err) {
					t.Fatalf("Decide error = %v, want matching error", err)
				}
				stored, _, _ := store.Get(ctx, w.ID)
				if stored.Status != tt.from {
					t.Errorf("status changed to %q on rejected transition", stored.Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decide failed: %v", err)
			}
			if got.Status != tt.to {
				t.Errorf("Status = %q, want %q", got.Status, tt.to)
			}
			if got.DecidedBy != "admin@test.com" || got.DecidedAt == nil {
				t.Errorf("decision not recorded: by=%q at=%v", got.DecidedBy, got.DecidedAt)
			}
			if got.Note != "checked" {
				t.Errorf("Note = %q, want checked", got.Note)
			}
		})
	}
}

func TestDecide_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := withdrawalstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Decide(ctx, primitive.NewObjectID(), models.WithdrawalApproved, "admin@test.com", "")
	if !apperr.IsNotFound(err) {
		t.Errorf("err = %v, want NotFoundError", err)
	}
}
