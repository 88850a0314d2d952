// internal/domain/models/campaign.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Campaign statuses. Donor-facing listings hide hidden and reported campaigns.
const (
	CampaignActive   = "active"
	CampaignApproved = "approved"
	CampaignHidden   = "hidden"
	CampaignReported = "reported"
)

// Beneficiary values.
const (
	BeneficiaryMyself = "myself"
	BeneficiaryOther  = "other"
)

// Categories offered by the campaign form. The set is not closed; these are
// the values the client knows how to render.
var Categories = []string{"Salud", "Emergencia", "Educación", "Animales", "Memorial", "Comunidad"}

// IsValidCampaignStatus reports whether s is one of the known statuses.
func IsValidCampaignStatus(s string) bool {
	switch s {
	case CampaignActive, CampaignApproved, CampaignHidden, CampaignReported:
		return true
	}
	return false
}

// IsPubliclyListed reports whether campaigns in status s appear in
// donor-facing listings.
func IsPubliclyListed(s string) bool {
	return s != CampaignHidden && s != CampaignReported
}

// Organizer is the contact block captured when a campaign is created.
type Organizer struct {
	Name    string `bson:"name" json:"name" validate:"required,max=150" label:"Organizer name"`
	Email   string `bson:"email" json:"email" validate:"required,emailaddr" label:"Organizer email"` // normalized lowercase
	Phone   string `bson:"phone,omitempty" json:"phone,omitempty" validate:"max=50" label:"Phone"`
	City    string `bson:"city,omitempty" json:"city,omitempty" validate:"max=100" label:"City"`
	Address string `bson:"address,omitempty" json:"address,omitempty" validate:"max=300" label:"Address"`
}

// Campaign is a fundraising page. CurrentAmount and DonorCount are the
// aggregate over the campaign's donation ledger and only change together
// with a ledger write.
type Campaign struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title            string             `bson:"title" json:"title"`
	TitleCI          string             `bson:"title_ci" json:"-"`
	Category         string             `bson:"category" json:"category"`
	Goal             Money              `bson:"goal" json:"goal"`
	Description      string             `bson:"description" json:"description"`
	Beneficiary      string             `bson:"beneficiary" json:"beneficiary"`
	Organizer        Organizer          `bson:"organizer" json:"organizer"`
	ImageURL         string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
	VideoURL         string             `bson:"video_url,omitempty" json:"video_url,omitempty"`
	AdditionalImages []string           `bson:"additional_images,omitempty" json:"additional_images,omitempty"`
	Status           string             `bson:"status" json:"status"`
	CurrentAmount    Money              `bson:"current_amount" json:"current_amount"`
	DonorCount       int64              `bson:"donor_count" json:"donor_count"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}
