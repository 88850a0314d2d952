package payments_test

import (
	"context"
	"errors"
	"testing"
	"time"

	campaignstore "github.com/dalemusser/fundhub/internal/app/store/campaigns"
	capturestore "github.com/dalemusser/fundhub/internal/app/store/captures"
	donationstore "github.com/dalemusser/fundhub/internal/app/store/donations"
	"github.com/dalemusser/fundhub/internal/app/system/apperr"
	"github.com/dalemusser/fundhub/internal/app/system/indexes"
	"github.com/dalemusser/fundhub/internal/app/system/ledger"
	"github.com/dalemusser/fundhub/internal/app/system/payments"
	"github.com/dalemusser/fundhub/internal/app/system/payments/paymentstest"
	"github.com/dalemusser/fundhub/internal/domain/models"
	"github.com/dalemusser/fundhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type harness struct {
	ctx      context.Context
	db       *mongo.Database
	fx       *testutil.Fixtures
	gateway  *paymentstest.Gateway
	feed     *paymentstest.Feed
	svc      *payments.Service
	captures *capturestore.Store
}

func setup(t *testing.T) *harness {
	t.Helper()
	db := testutil.SetupTxnDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	gw := paymentstest.NewGateway()
	feed := &paymentstest.Feed{}
	svc := payments.New(db, gw, ledger.New(db, zap.NewNop()), feed, zap.NewNop(), payments.Config{
		MaxAttempts:   3,
		InlineRetries: 2,
		Backoff:       time.Millisecond,
	})
	return &harness{
		ctx:      ctx,
		db:       db,
		fx:       testutil.NewFixtures(t, db),
		gateway:  gw,
		feed:     feed,
		svc:      svc,
		captures: capturestore.New(db),
	}
}

func (h *harness) aggregate(t *testing.T, c models.Campaign) campaignstore.Aggregate {
	t.Helper()
	agg, _, err := campaignstore.New(h.db).GetAggregate(h.ctx, c.ID)
	if err != nil {
		t.Fatalf("GetAggregate failed: %v", err)
	}
	return agg
}

func TestCheckout(t *testing.T) {
	h := setup(t)
	c := h.fx.CreateCampaign(h.ctx, "Checkout", "org@example.com")

	co, err := h.svc.Checkout(h.ctx, payments.CheckoutInput{
		CampaignID: c.ID.Hex(),
		Amount:     2_500,
		DonorName:  "Ana",
	})
	if err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	if co.OrderID == "" || co.RedirectURL == "" {
		t.Fatalf("checkout = %+v, want order id and redirect url", co)
	}

	pc, err := h.svc.Status(h.ctx, co.OrderID)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if pc.Status != models.CaptureCreated || pc.Amount != 2_500 || pc.CampaignID != c.ID {
		t.Errorf("capture = %+v", pc)
	}
	if agg := h.aggregate(t, c); agg.CurrentAmount != 0 {
		t.Errorf("checkout must not touch the aggregate, got %v", agg.CurrentAmount)
	}
}

func TestCheckout_Rejects(t *testing.T) {
	h := setup(t)
	active := h.fx.CreateCampaign(h.ctx, "Active", "org@example.com")
	hidden := h.fx.CreateCampaignWithStatus(h.ctx, "Hidden", "org@example.com", models.CampaignHidden)

	tests := []struct {
		name string
		in   payments.CheckoutInput
		want func(error) bool
	}{
		{"zero amount", payments.CheckoutInput{CampaignID: active.ID.Hex(), Amount: 0}, apperr.IsValidation},
		{"negative amount", payments.CheckoutInput{CampaignID: active.ID.Hex(), Amount: -500}, apperr.IsValidation},
		{"other currency", payments.CheckoutInput{CampaignID: active.ID.Hex(), Amount: 100, Currency: "EUR"}, apperr.IsValidation},
		{"bad campaign id", payments.CheckoutInput{CampaignID: "nope", Amount: 100}, apperr.IsValidation},
		{"hidden campaign", payments.CheckoutInput{CampaignID: hidden.ID.Hex(), Amount: 100}, apperr.IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.svc.Checkout(h.ctx, tt.in); !tt.want(err) {
				t.Errorf("err = %v", err)
			}
		})
	}
	if n := h.gateway.Orders(); n != 0 {
		t.Errorf("gateway saw %d orders, want 0", n)
	}
}

func TestCheckout_Currency(t *testing.T) {
	h := setup(t)
	c := h.fx.CreateCampaign(h.ctx, "Currency", "org@example.com")

	tests := []struct {
		name     string
		currency string
		wantErr  bool
	}{
		{"defaulted", "", false},
		{"lower case", "usd", false},
		{"other currency", "IDR", true},
		{"not a code", "DOLLARS", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			co, err := h.svc.Checkout(h.ctx, payments.CheckoutInput{CampaignID: c.ID.Hex(), Amount: 1_000, Currency: tt.currency})
			if tt.wantErr {
				if !apperr.IsValidation(err) {
					t.Errorf("err = %v, want ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Checkout failed: %v", err)
			}
			o, ok := h.gateway.Order(co.OrderID)
			if !ok || o.Currency != "USD" {
				t.Errorf("gateway order = %+v, want currency USD", o)
			}
		})
	}

	rupiah := payments.New(h.db, h.gateway, ledger.New(h.db, zap.NewNop()), h.feed, zap.NewNop(), payments.Config{Currency: "idr"})
	co, err := rupiah.Checkout(h.ctx, payments.CheckoutInput{CampaignID: c.ID.Hex(), Amount: 15_000_000})
	if err != nil {
		t.Fatalf("rupiah Checkout failed: %v", err)
	}
	if o, _ := h.gateway.Order(co.OrderID); o.Currency != payments.MidtransCurrency {
		t.Errorf("currency = %q, want IDR", o.Currency)
	}
	if _, err := rupiah.Checkout(h.ctx, payments.CheckoutInput{CampaignID: c.ID.Hex(), Amount: 100, Currency: "USD"}); !apperr.IsValidation(err) {
		t.Errorf("USD on a rupiah ledger: err = %v, want ValidationError", err)
	}
}

func TestCheckout_ProviderFailure(t *testing.T) {
	h := setup(t)
	c := h.fx.CreateCampaign(h.ctx, "Down", "org@example.com")
	h.gateway.CreateErr = errors.New("provider down")

	_, err := h.svc.Checkout(h.ctx, payments.CheckoutInput{CampaignID: c.ID.Hex(), Amount: 100})
	if !apperr.IsExternal(err) {
		t.Fatalf("err = %v, want ExternalServiceError", err)
	}
	n, err := h.captures.CountByStatus(h.ctx, models.CaptureFailed)
	if err != nil || n != 1 {
		t.Errorf("failed captures = %d, %v; want 1", n, err)
	}
}

func TestSettle_RecordsExactlyOnce(t *testing.T) {
	h := setup(t)
	c := h.fx.CreateCampaign(h.ctx, "Settle", "org@example.com")
	co, err := h.svc.Checkout(h.ctx, payments.CheckoutInput{CampaignID: c.ID.Hex(), Amount: 1_000, DonorName: "Ana"})
	if err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}

	pc, err := h.svc.Settle(h.ctx, co.OrderID)
	if err != nil {
		t.Fatalf("Settle (unpaid) failed: %v", err)
	}
	if pc.Status != models.CaptureCreated {
		t.Errorf("unpaid order status = %q, want created", pc.Status)
	}

	h.gateway.SetState(co.OrderID, payments.StatePaid)
	for i := 0; i < 3; i++ {
		pc, err = h.svc.Settle(h.ctx, co.OrderID)
		if err != nil {
			t.Fatalf("Settle #%d failed: %v", i+1, err)
		}
		if pc.Status != models.CaptureRecorded || pc.DonationID == nil {
			t.Fatalf("Settle #%d: status=%q donation=%v", i+1, pc.Status, pc.DonationID)
		}
	}

	agg := h.aggregate(t, c)
	if agg.CurrentAmount != 1_000 || agg.DonorCount != 1 {
		t.Errorf("aggregate = %v/%d, want 10.00/1", agg.CurrentAmount, agg.DonorCount)
	}
	d, found, err := donationstore.New(h.db).GetByPaymentRef(h.ctx, co.OrderID)
	if err != nil || !found {
		t.Fatalf("donation for order: found=%v err=%v", found, err)
	}
	if d.DonorName != "Ana" {
		t.Errorf("DonorName = %q, want Ana", d.DonorName)
	}
	if events := h.feed.Events(); len(events) != 1 {
		t.Errorf("published %d events, want 1", len(events))
	}
}

func TestSettle_ProviderStates(t *testing.T) {
	h := setup(t)
	c := h.fx.CreateCampaign(h.ctx, "States", "org@example.com")

	co, err := h.svc.Checkout(h.ctx, payments.CheckoutInput{CampaignID: c.ID.Hex(), Amount: 500})
	if err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	h.gateway.SetState(co.OrderID, payments.StateFailed)
	pc, err := h.svc.Settle(h.ctx, co.OrderID)
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if pc.Status != models.CaptureFailed {
		t.Errorf("status = %q, want failed", pc.Status)
	}

	co, err = h.svc.Checkout(h.ctx, payments.CheckoutInput{CampaignID: c.ID.Hex(), Amount: 500})
	if err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	h.gateway.SetState(co.OrderID, payments.StatePaid)
	h.gateway.SetAmount(co.OrderID, 499)
	if _, err := h.svc.Settle(h.ctx, co.OrderID); !apperr.IsConflict(err) {
		t.Errorf("amount mismatch: err = %v, want ConflictError", err)
	}

	h.gateway.VerifyErr = errors.New("timeout")
	co2, err := h.svc.Checkout(h.ctx, payments.CheckoutInput{CampaignID: c.ID.Hex(), Amount: 500})
	if err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	if _, err := h.svc.Settle(h.ctx, co2.OrderID); !apperr.IsExternal(err) {
		t.Errorf("provider error: err = %v, want ExternalServiceError", err)
	}

	if _, err := h.svc.Settle(h.ctx, "DON-missing"); !apperr.IsNotFound(err) {
		t.Errorf("unknown order: err = %v, want NotFoundError", err)
	}

	if agg := h.aggregate(t, c); agg.DonorCount != 0 {
		t.Errorf("no donation should be recorded, got %d", agg.DonorCount)
	}
}

func TestSettle_MissingCampaignNeedsReview(t *testing.T) {
	h := setup(t)
	c := h.fx.CreateCampaign(h.ctx, "Gone", "org@example.com")
	co, err := h.svc.Checkout(h.ctx, payments.CheckoutInput{CampaignID: c.ID.Hex(), Amount: 700})
	if err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	if _, err := h.db.Collection(campaignstore.Collection).DeleteOne(h.ctx, bson.M{"_id": c.ID}); err != nil {
		t.Fatalf("delete campaign: %v", err)
	}

	h.gateway.SetState(co.OrderID, payments.StatePaid)
	pc, err := h.svc.Settle(h.ctx, co.OrderID)
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if pc.Status != models.CaptureNeedsReview {
		t.Fatalf("status = %q, want needs_review", pc.Status)
	}
	if pc.LastError == "" {
		t.Error("LastError should explain the failure")
	}

	// Restore the campaign and let an admin retry.
	if _, err := h.db.Collection(campaignstore.Collection).InsertOne(h.ctx, c); err != nil {
		t.Fatalf("restore campaign: %v", err)
	}
	pc, err = h.svc.Retry(h.ctx, co.OrderID)
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if pc.Status != models.CaptureRecorded {
		t.Errorf("status after retry = %q, want recorded", pc.Status)
	}
	if agg := h.aggregate(t, c); agg.CurrentAmount != 700 || agg.DonorCount != 1 {
		t.Errorf("aggregate = %v/%d, want 7.00/1", agg.CurrentAmount, agg.DonorCount)
	}

	if _, err := h.svc.Retry(h.ctx, co.OrderID); !apperr.IsConflict(err) {
		t.Errorf("retry of recorded capture: err = %v, want ConflictError", err)
	}
}

func TestReconcile(t *testing.T) {
	h := setup(t)
	c := h.fx.CreateCampaign(h.ctx, "Reconcile", "org@example.com")
	h.fx.CreateCapture(h.ctx, "order-a", c.ID, 300, models.CaptureCaptured)
	h.fx.CreateCapture(h.ctx, "order-b", c.ID, 200, models.CaptureCaptured)
	h.fx.CreateCapture(h.ctx, "order-c", c.ID, 900, models.CaptureCreated)

	n, err := h.svc.Reconcile(h.ctx, 0, 10)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if n != 2 {
		t.Errorf("recorded %d captures, want 2", n)
	}
	agg := h.aggregate(t, c)
	if agg.CurrentAmount != 500 || agg.DonorCount != 2 {
		t.Errorf("aggregate = %v/%d, want 5.00/2", agg.CurrentAmount, agg.DonorCount)
	}

	// Nothing left to replay.
	n, err = h.svc.Reconcile(h.ctx, 0, 10)
	if err != nil || n != 0 {
		t.Errorf("second Reconcile = %d, %v; want 0", n, err)
	}
}
