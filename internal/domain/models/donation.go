// internal/domain/models/donation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AnonymousDonorName replaces the donor's name on anonymous donations.
const AnonymousDonorName = "Anonymous"

// Donation is one entry in a campaign's ledger.
//
// PaymentRef is the payment provider's order id. It is unique across the
// ledger when present, which is what makes recording a capture idempotent.
type Donation struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CampaignID  primitive.ObjectID `bson:"campaign_id" json:"campaign_id"`
	Amount      Money              `bson:"amount" json:"amount"`
	DonorName   string             `bson:"donor_name" json:"donor_name"`
	Anonymous   bool               `bson:"anonymous" json:"anonymous"`
	PaymentRef  *string            `bson:"payment_ref,omitempty" json:"payment_ref,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	CorrectedAt *time.Time         `bson:"corrected_at,omitempty" json:"corrected_at,omitempty"`
	CorrectedBy string             `bson:"corrected_by,omitempty" json:"corrected_by,omitempty"`
}

// DisplayName returns the name shown on the donor wall.
func DisplayName(name string, anonymous bool) string {
	if anonymous || name == "" {
		return AnonymousDonorName
	}
	return name
}
