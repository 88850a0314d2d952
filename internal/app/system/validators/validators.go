// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	campaignstore "github.com/dalemusser/fundhub/internal/app/store/campaigns"
	capturestore "github.com/dalemusser/fundhub/internal/app/store/captures"
	donationstore "github.com/dalemusser/fundhub/internal/app/store/donations"
	userstore "github.com/dalemusser/fundhub/internal/app/store/users"
	withdrawalstore "github.com/dalemusser/fundhub/internal/app/store/withdrawals"
	"github.com/dalemusser/fundhub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates the ledger collections and attaches JSON-Schema
// validators so a stray write cannot store a fractional or negative amount
// or an unknown status. Servers without collMod support (some DocumentDB
// versions) are logged and skipped.
func EnsureAll(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, log, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, log, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				log.Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure(campaignstore.Collection, campaignsSchema())
	ensure(donationstore.Collection, donationsSchema())
	ensure(withdrawalstore.Collection, withdrawalsSchema())
	ensure(capturestore.Collection, capturesSchema())
	ensure(userstore.Collection, nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection reports created only when this call made the collection.
func ensureCollection(ctx context.Context, db *mongo.Database, log *zap.Logger, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		log.Debug("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// Another instance may have created it first.
		if isNamespaceExistsErr(err) {
			log.Debug("collection exists", zap.String("collection", name))
			return false, nil
		}
		log.Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	log.Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, log *zap.Logger, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	log.Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

// Money is int64 minor units; counters may arrive as int32 from $inc.
var (
	integer     = bson.A{"int", "long"}
	amountField = bson.M{"bsonType": integer, "minimum": 0}
)

func enumOf(vals ...string) bson.A {
	out := bson.A{}
	for _, v := range vals {
		out = append(out, v)
	}
	return out
}

func campaignsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "status", "goal", "current_amount", "donor_count", "organizer"},
			"properties": bson.M{
				"title":          bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"goal":           bson.M{"bsonType": integer, "minimum": 1},
				"current_amount": amountField,
				"donor_count":    bson.M{"bsonType": integer, "minimum": 0},
				"status": bson.M{"enum": enumOf(
					models.CampaignActive, models.CampaignApproved, models.CampaignHidden, models.CampaignReported)},
				"beneficiary": bson.M{"enum": enumOf(models.BeneficiaryMyself, models.BeneficiaryOther)},
				"organizer": bson.M{
					"bsonType": "object",
					"required": bson.A{"email"},
					"properties": bson.M{
						"email": bson.M{"bsonType": "string", "minLength": 3},
					},
				},
			},
		},
	}
}

func donationsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"campaign_id", "amount"},
			"properties": bson.M{
				"campaign_id": bson.M{"bsonType": "objectId"},
				"amount":      bson.M{"bsonType": integer, "minimum": 1},
				"donor_name":  bson.M{"bsonType": "string"},
				"anonymous":   bson.M{"bsonType": "bool"},
				"payment_ref": bson.M{"bsonType": "string", "minLength": 1},
				"created_at":  bson.M{"bsonType": "date"},
			},
		},
	}
}

func withdrawalsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"campaign_id", "organizer_email", "amount_requested", "status"},
			"properties": bson.M{
				"campaign_id":      bson.M{"bsonType": "objectId"},
				"organizer_email":  bson.M{"bsonType": "string"},
				"amount_requested": amountField,
				"status": bson.M{"enum": enumOf(
					models.WithdrawalPending, models.WithdrawalApproved, models.WithdrawalRejected, models.WithdrawalCompleted)},
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func capturesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"campaign_id", "amount", "status", "attempts"},
			"properties": bson.M{
				"_id":         bson.M{"bsonType": "string", "minLength": 1},
				"campaign_id": bson.M{"bsonType": "objectId"},
				"amount":      bson.M{"bsonType": integer, "minimum": 1},
				"status": bson.M{"enum": enumOf(
					models.CaptureCreated, models.CaptureCaptured, models.CaptureRecorded,
					models.CaptureFailed, models.CaptureNeedsReview)},
				"attempts": bson.M{"bsonType": integer, "minimum": 0},
			},
		},
	}
}
