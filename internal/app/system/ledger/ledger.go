// internal/app/system/ledger/ledger.go
package ledger

import (
	"context"
	"errors"
	"strings"

	campaignstore "github.com/dalemusser/fundhub/internal/app/store/campaigns"
	donationstore "github.com/dalemusser/fundhub/internal/app/store/donations"
	"github.com/dalemusser/fundhub/internal/app/system/apperr"
	"github.com/dalemusser/fundhub/internal/app/system/inputval"
	"github.com/dalemusser/fundhub/internal/app/system/normalize"
	"github.com/dalemusser/fundhub/internal/app/system/txn"
	"github.com/dalemusser/fundhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Campaigns is the part of the campaign store the ledger reads and writes.
// ApplyDelta returns a NotFoundError when the campaign is gone.
type Campaigns interface {
	Get(ctx context.Context, id primitive.ObjectID) (models.Campaign, bool, error)
	ApplyDelta(ctx context.Context, id primitive.ObjectID, amount models.Money, count int64) error
}

// Donations is the append-only donation log. Append returns
// donationstore.ErrDuplicatePaymentRef when the payment reference is taken.
type Donations interface {
	Append(ctx context.Context, d models.Donation) (models.Donation, error)
	Get(ctx context.Context, campaignID, donationID primitive.ObjectID) (models.Donation, bool, error)
	GetByPaymentRef(ctx context.Context, ref string) (models.Donation, bool, error)
	SetAmount(ctx context.Context, donationID primitive.ObjectID, amount models.Money, actor string) error
	Delete(ctx context.Context, donationID primitive.ObjectID) error
}

// Runner executes fn atomically: either every write fn makes is applied or
// none is. fn may be run more than once.
type Runner func(ctx context.Context, fn func(ctx context.Context) error) error

// Ledger keeps each campaign's aggregate equal to the sum of its donations.
// Every operation writes one donation document and one campaign document in
// a single transaction.
type Ledger struct {
	campaigns Campaigns
	donations Donations
	run       Runner
	log       *zap.Logger

	// betweenWrites runs after the donation write and before the aggregate
	// update. Tests use it to fail a transaction halfway.
	betweenWrites func(op string) error
}

// New builds a ledger over the Mongo stores, with MongoDB transactions.
func New(db *mongo.Database, log *zap.Logger) *Ledger {
	return NewWithStores(campaignstore.New(db), donationstore.New(db), MongoRunner(db, log), log)
}

// NewWithStores builds a ledger over any stores that share run's atomicity.
func NewWithStores(campaigns Campaigns, donations Donations, run Runner, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		campaigns: campaigns,
		donations: donations,
		run:       run,
		log:       log,
	}
}

// MongoRunner runs fn in a MongoDB multi-document transaction.
func MongoRunner(db *mongo.Database, log *zap.Logger) Runner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		return txn.Run(ctx, db, log, fn)
	}
}

// NewDonation is the input to RecordDonation.
type NewDonation struct {
	CampaignID primitive.ObjectID `validate:"-"`
	Amount     models.Money       `json:"amount" validate:"gt=0,lte=100000000000" label:"Amount"`
	DonorName  string             `json:"donor_name" validate:"max=100" label:"Donor name"`
	Anonymous  bool
	// PaymentRef is the provider order id. Empty for donations that did not
	// come through the payment provider.
	PaymentRef string `json:"payment_ref" validate:"max=100" label:"Payment reference"`
}

// RecordDonation appends a donation and adds it to the campaign aggregate.
//
// With a PaymentRef the call is idempotent: if the ledger already holds a
// donation for that reference it is returned with created=false and nothing
// is written.
//
// Errors: ValidationError before any write, NotFoundError when the campaign
// does not exist, ConflictError when the reference belongs to a different
// campaign or the transaction could not commit.
func (l *Ledger) RecordDonation(ctx context.Context, in NewDonation) (models.Donation, bool, error) {
	in.DonorName = normalize.Name(in.DonorName)
	in.PaymentRef = strings.TrimSpace(in.PaymentRef)
	if err := inputval.Validate(in).Err(); err != nil {
		return models.Donation{}, false, err
	}

	d := models.Donation{
		CampaignID: in.CampaignID,
		Amount:     in.Amount,
		DonorName:  models.DisplayName(in.DonorName, in.Anonymous),
		Anonymous:  in.Anonymous,
	}
	if in.PaymentRef != "" {
		ref := in.PaymentRef
		d.PaymentRef = &ref
	}

	var (
		out     models.Donation
		created bool
	)
	err := l.run(ctx, func(ctx context.Context) error {
		out, created = models.Donation{}, false

		if _, found, err := l.campaigns.Get(ctx, in.CampaignID); err != nil {
			return err
		} else if !found {
			return apperr.NotFound("campaign", in.CampaignID.Hex())
		}

		if d.PaymentRef != nil {
			existing, found, err := l.donations.GetByPaymentRef(ctx, *d.PaymentRef)
			if err != nil {
				return err
			}
			if found {
				out = existing
				return nil
			}
		}

		appended, err := l.donations.Append(ctx, d)
		if err != nil {
			return err
		}
		if err := l.fault("record"); err != nil {
			return err
		}
		if err := l.campaigns.ApplyDelta(ctx, in.CampaignID, d.Amount, 1); err != nil {
			return err
		}
		out, created = appended, true
		return nil
	})

	// A concurrent recording of the same reference committed first.
	if errors.Is(err, donationstore.ErrDuplicatePaymentRef) {
		existing, found, gerr := l.donations.GetByPaymentRef(ctx, *d.PaymentRef)
		if gerr != nil {
			return models.Donation{}, false, gerr
		}
		if !found {
			return models.Donation{}, false, apperr.Conflict("payment reference is being recorded", err)
		}
		out, created, err = existing, false, nil
	}
	if err != nil {
		return models.Donation{}, false, err
	}

	if !created && out.CampaignID != in.CampaignID {
		return models.Donation{}, false, apperr.Conflict("payment reference belongs to another campaign", nil)
	}
	if created {
		l.log.Info("donation recorded",
			zap.String("campaign_id", in.CampaignID.Hex()),
			zap.String("donation_id", out.ID.Hex()),
			zap.String("amount", out.Amount.String()))
	}
	return out, created, nil
}

// Correction is the outcome of CorrectDonation.
type Correction struct {
	Donation  models.Donation `json:"donation"`
	OldAmount models.Money    `json:"old_amount"`
	NewAmount models.Money    `json:"new_amount"`
}

// CorrectDonation changes a donation's amount and moves the aggregate by the
// difference. The donation is re-read inside the transaction, so the delta
// is always computed from the committed amount.
func (l *Ledger) CorrectDonation(ctx context.Context, campaignID, donationID primitive.ObjectID, newAmount models.Money, actor string) (Correction, error) {
	if !newAmount.Positive() || newAmount > models.MaxMoney {
		return Correction{}, apperr.Validation("amount", "Amount must be greater than 0.")
	}
	actor = normalize.Email(actor)

	var out Correction
	err := l.run(ctx, func(ctx context.Context) error {
		out = Correction{}

		d, found, err := l.donations.Get(ctx, campaignID, donationID)
		if err != nil {
			return err
		}
		if !found {
			return apperr.NotFound("donation", donationID.Hex())
		}

		if err := l.donations.SetAmount(ctx, donationID, newAmount, actor); err != nil {
			return err
		}
		if err := l.fault("correct"); err != nil {
			return err
		}
		if err := l.campaigns.ApplyDelta(ctx, campaignID, newAmount-d.Amount, 0); err != nil {
			return err
		}

		out.OldAmount = d.Amount
		out.NewAmount = newAmount
		d.Amount = newAmount
		d.CorrectedBy = actor
		out.Donation = d
		return nil
	})
	if err != nil {
		return Correction{}, err
	}

	l.log.Info("donation corrected",
		zap.String("campaign_id", campaignID.Hex()),
		zap.String("donation_id", donationID.Hex()),
		zap.String("old_amount", out.OldAmount.String()),
		zap.String("new_amount", out.NewAmount.String()),
		zap.String("actor", actor))
	return out, nil
}

// DeleteDonation removes a donation and subtracts it from the aggregate.
// It returns the deleted donation.
func (l *Ledger) DeleteDonation(ctx context.Context, campaignID, donationID primitive.ObjectID, actor string) (models.Donation, error) {
	var out models.Donation
	err := l.run(ctx, func(ctx context.Context) error {
		out = models.Donation{}

		d, found, err := l.donations.Get(ctx, campaignID, donationID)
		if err != nil {
			return err
		}
		if !found {
			return apperr.NotFound("donation", donationID.Hex())
		}

		if err := l.donations.Delete(ctx, donationID); err != nil {
			return err
		}
		if err := l.fault("delete"); err != nil {
			return err
		}
		if err := l.campaigns.ApplyDelta(ctx, campaignID, -d.Amount, -1); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return models.Donation{}, err
	}

	l.log.Info("donation deleted",
		zap.String("campaign_id", campaignID.Hex()),
		zap.String("donation_id", donationID.Hex()),
		zap.String("amount", out.Amount.String()),
		zap.String("actor", normalize.Email(actor)))
	return out, nil
}

func (l *Ledger) fault(op string) error {
	if l.betweenWrites == nil {
		return nil
	}
	return l.betweenWrites(op)
}
