// internal/domain/models/withdrawal.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Withdrawal request statuses.
const (
	WithdrawalPending   = "pending"
	WithdrawalApproved  = "approved"
	WithdrawalRejected  = "rejected"
	WithdrawalCompleted = "completed"
)

// withdrawalTransitions lists the statuses each status may move to.
var withdrawalTransitions = map[string][]string{
	WithdrawalPending:  {WithdrawalApproved, WithdrawalRejected, WithdrawalCompleted},
	WithdrawalApproved: {WithdrawalCompleted, WithdrawalRejected},
}

// IsValidWithdrawalStatus reports whether s is a known status.
func IsValidWithdrawalStatus(s string) bool {
	switch s {
	case WithdrawalPending, WithdrawalApproved, WithdrawalRejected, WithdrawalCompleted:
		return true
	}
	return false
}

// CanTransitionWithdrawal reports whether a request in status from may be
// moved to status to. Rejected and completed are terminal.
func CanTransitionWithdrawal(from, to string) bool {
	for _, s := range withdrawalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Requester identifies the person asking for the payout.
type Requester struct {
	FirstName string `bson:"first_name" json:"first_name" validate:"required,max=100" label:"First name"`
	LastName  string `bson:"last_name" json:"last_name" validate:"required,max=100" label:"Last name"`
	IDNumber  string `bson:"id_number" json:"id_number" validate:"required,max=50" label:"ID number"`
	Phone     string `bson:"phone" json:"phone" validate:"required,max=50" label:"Phone"`
	Email     string `bson:"email" json:"email" validate:"required,emailaddr" label:"Email"`
	Address   string `bson:"address" json:"address" validate:"required,max=300" label:"Address"`
	TaxID     string `bson:"tax_id,omitempty" json:"tax_id,omitempty" validate:"omitempty,max=50" label:"Tax ID"`
}

// BankAccount is where the organizer wants the funds sent.
type BankAccount struct {
	BankName      string `bson:"bank_name" json:"bank_name" validate:"required,max=100" label:"Bank name"`
	AccountNumber string `bson:"account_number" json:"account_number" validate:"required,max=50" label:"Account number"`
	AccountType   string `bson:"account_type" json:"account_type" validate:"required,max=50" label:"Account type"`
}

// WithdrawalRequest asks an administrator to pay out a campaign.
// AmountRequested is a snapshot of the campaign's CurrentAmount at submission.
type WithdrawalRequest struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CampaignID      primitive.ObjectID `bson:"campaign_id" json:"campaign_id"`
	CampaignTitle   string             `bson:"campaign_title" json:"campaign_title"`
	OrganizerEmail  string             `bson:"organizer_email" json:"organizer_email"`
	Requester       Requester          `bson:"requester" json:"requester"`
	Bank            BankAccount        `bson:"bank" json:"bank"`
	AmountRequested Money              `bson:"amount_requested" json:"amount_requested"`
	Status          string             `bson:"status" json:"status"`
	Note            string             `bson:"note,omitempty" json:"note,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	DecidedAt       *time.Time         `bson:"decided_at,omitempty" json:"decided_at,omitempty"`
	DecidedBy       string             `bson:"decided_by,omitempty" json:"decided_by,omitempty"`
}
