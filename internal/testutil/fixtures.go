package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/fundhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
// Documents are written directly, bypassing stores and the ledger.
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

// CreateCampaign inserts an active campaign with empty aggregates.
func (f *Fixtures) CreateCampaign(ctx context.Context, title, organizerEmail string) models.Campaign {
	f.t.Helper()
	return f.CreateCampaignWithStatus(ctx, title, organizerEmail, models.CampaignActive)
}

// CreateCampaignWithStatus inserts a campaign in the given status.
func (f *Fixtures) CreateCampaignWithStatus(ctx context.Context, title, organizerEmail, status string) models.Campaign {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.Campaign{
		ID:          primitive.NewObjectID(),
		Title:       title,
		TitleCI:     text.Fold(title),
		Category:    "Salud",
		Goal:        100_000,
		Description: "Description for " + title,
		Beneficiary: models.BeneficiaryMyself,
		Organizer: models.Organizer{
			Name:  "Test Organizer",
			Email: organizerEmail,
		},
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("campaigns").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("CreateCampaign(%q) failed: %v", title, err)
	}
	return c
}

// SetAggregate overwrites a campaign's aggregate fields. Tests use it to
// simulate drift.
func (f *Fixtures) SetAggregate(ctx context.Context, campaignID primitive.ObjectID, amount models.Money, count int64) {
	f.t.Helper()
	_, err := f.db.Collection("campaigns").UpdateOne(ctx,
		bson.M{"_id": campaignID},
		bson.M{"$set": bson.M{"current_amount": amount, "donor_count": count}},
	)
	if err != nil {
		f.t.Fatalf("SetAggregate failed: %v", err)
	}
}

// CreateDonation inserts a ledger entry without touching the campaign
// aggregate.
func (f *Fixtures) CreateDonation(ctx context.Context, campaignID primitive.ObjectID, amount models.Money, donor string) models.Donation {
	f.t.Helper()

	d := models.Donation{
		ID:         primitive.NewObjectID(),
		CampaignID: campaignID,
		Amount:     amount,
		DonorName:  donor,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := f.db.Collection("donations").InsertOne(ctx, d); err != nil {
		f.t.Fatalf("CreateDonation failed: %v", err)
	}
	return d
}

// CreateUser inserts a user mirror entry.
func (f *Fixtures) CreateUser(ctx context.Context, uid, name, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:          uid,
		DisplayName: name,
		Email:       email,
		LastLogin:   now,
		CreatedAt:   now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("CreateUser(%q) failed: %v", uid, err)
	}
	return u
}

// CreateWithdrawal inserts a withdrawal request in the given status.
func (f *Fixtures) CreateWithdrawal(ctx context.Context, c models.Campaign, status string) models.WithdrawalRequest {
	f.t.Helper()

	w := models.WithdrawalRequest{
		ID:             primitive.NewObjectID(),
		CampaignID:     c.ID,
		CampaignTitle:  c.Title,
		OrganizerEmail: c.Organizer.Email,
		Requester: models.Requester{
			FirstName: "Ana",
			LastName:  "Pérez",
			IDNumber:  "12345678",
			Phone:     "555-0100",
			Email:     c.Organizer.Email,
			Address:   "1 Main St",
		},
		Bank: models.BankAccount{
			BankName:      "Test Bank",
			AccountNumber: "000123",
			AccountType:   "checking",
		},
		AmountRequested: c.CurrentAmount,
		Status:          status,
		CreatedAt:       time.Now().UTC(),
	}
	if _, err := f.db.Collection("withdrawal_requests").InsertOne(ctx, w); err != nil {
		f.t.Fatalf("CreateWithdrawal failed: %v", err)
	}
	return w
}

// CreateCapture inserts a payment capture in the given status.
func (f *Fixtures) CreateCapture(ctx context.Context, orderID string, campaignID primitive.ObjectID, amount models.Money, status string) models.PaymentCapture {
	f.t.Helper()

	now := time.Now().UTC()
	pc := models.PaymentCapture{
		ID:         orderID,
		CampaignID: campaignID,
		Amount:     amount,
		DonorName:  "Test Donor",
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("payment_captures").InsertOne(ctx, pc); err != nil {
		f.t.Fatalf("CreateCapture(%q) failed: %v", orderID, err)
	}
	return pc
}
