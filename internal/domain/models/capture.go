// internal/domain/models/capture.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Capture statuses.
//
//	created      order opened with the provider, not yet paid
//	captured     provider confirmed payment, ledger write still pending
//	recorded     donation is in the ledger
//	failed       provider reported the payment as denied, expired or cancelled
//	needs_review recording kept failing and an administrator must reconcile it
const (
	CaptureCreated     = "created"
	CaptureCaptured    = "captured"
	CaptureRecorded    = "recorded"
	CaptureFailed      = "failed"
	CaptureNeedsReview = "needs_review"
)

// PaymentCapture tracks one provider order from checkout to its ledger entry.
// ID is the order id sent to the provider and becomes the donation's PaymentRef.
type PaymentCapture struct {
	ID            string              `bson:"_id" json:"order_id"`
	CampaignID    primitive.ObjectID  `bson:"campaign_id" json:"campaign_id"`
	Amount        Money               `bson:"amount" json:"amount"`
	DonorName     string              `bson:"donor_name" json:"donor_name"`
	Anonymous     bool                `bson:"anonymous" json:"anonymous"`
	Status        string              `bson:"status" json:"status"`
	ProviderTxnID string              `bson:"provider_txn_id,omitempty" json:"provider_txn_id,omitempty"`
	DonationID    *primitive.ObjectID `bson:"donation_id,omitempty" json:"donation_id,omitempty"`
	Attempts      int                 `bson:"attempts" json:"attempts"`
	LastError     string              `bson:"last_error,omitempty" json:"last_error,omitempty"`
	CreatedAt     time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `bson:"updated_at" json:"updated_at"`
}
