// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	for _, set := range []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"campaigns", ensureCampaigns},
		{"donations", ensureDonations},
		{"withdrawal_requests", ensureWithdrawalRequests},
		{"payment_captures", ensurePaymentCaptures},
		{"users", ensureUsers},
		{"audit_events", ensureAuditEvents},
		{"oauth_states", ensureOAuthStates},
	} {
		if err := set.fn(ctx, db); err != nil {
			problems = append(problems, set.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

// duplicateHints maps "collection|keys" to a query that finds the documents
// blocking a unique index.
var duplicateHints = map[string]string{
	"donations|payment_ref:1": `db.donations.aggregate([{ $match: { payment_ref: { $exists: true } } }, { $group: { _id: "$payment_ref", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`,
}

type desired struct {
	model  mongo.IndexModel
	name   string
	unique *bool
	sig    string
}

func describe(m mongo.IndexModel) desired {
	d := desired{model: m, sig: keySig(m.Keys.(bson.D))}
	if m.Options != nil {
		if m.Options.Name != nil {
			d.name = *m.Options.Name
		}
		d.unique = m.Options.Unique
	}
	return d
}

func (d desired) isUnique() bool { return d.unique != nil && *d.unique }

func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{} // sig -> index
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// recreate drops ex and creates d in its place.
func recreate(ctx context.Context, coll *mongo.Collection, ex existingIndex, d desired) error {
	if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
		zap.L().Warn("drop existing index failed",
			zap.String("collection", coll.Name()),
			zap.String("name", ex.Name),
			zap.String("keys", d.sig),
			zap.Error(err))
		return fmt.Errorf("%s(%s): drop failed: %v", coll.Name(), d.name, err)
	}
	return create(ctx, coll, d)
}

func create(ctx context.Context, coll *mongo.Collection, d desired) error {
	if _, err := coll.Indexes().CreateOne(ctx, d.model); err != nil {
		if isDuplicateKeyErr(err) && d.isUnique() {
			helper := ""
			if h, ok := duplicateHints[coll.Name()+"|"+d.sig]; ok {
				helper = " (duplicates finder: " + h + ")"
			}
			return fmt.Errorf("%s(%s): cannot create unique index, duplicates present%s", coll.Name(), d.name, helper)
		}
		return fmt.Errorf("%s(%s): %v", coll.Name(), d.name, err)
	}
	return nil
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		d := describe(m)
		start := time.Now()
		zap.L().Info("ensuring index",
			zap.String("collection", coll.Name()),
			zap.String("name", d.name),
			zap.String("keys", d.sig),
			zap.Bool("unique", d.isUnique()))

		existing := listExisting(ctx, coll)

		if ex, ok := existing[d.sig]; ok {
			switch {
			case !sameBoolPtr(d.unique, ex.Unique):
				// Options mismatch (e.g., upgrading to unique). Drop & recreate.
				if err := recreate(ctx, coll, ex, d); err != nil {
					errs = append(errs, err.Error())
					continue
				}
				zap.L().Info("index dropped and recreated",
					zap.String("collection", coll.Name()),
					zap.String("name", d.name),
					zap.String("keys", d.sig),
					zap.String("took", time.Since(start).String()))
			case d.name != "" && ex.Name != d.name:
				zap.L().Info("renaming index to align with desired name",
					zap.String("collection", coll.Name()),
					zap.String("from", ex.Name),
					zap.String("to", d.name),
					zap.String("keys", d.sig))
				if err := recreate(ctx, coll, ex, d); err != nil {
					errs = append(errs, err.Error())
					continue
				}
			default:
				zap.L().Info("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", d.sig),
					zap.String("took", time.Since(start).String()))
			}
			continue
		}

		// No existing index with the same keys: create it.
		err := create(ctx, coll, d)
		if err != nil && isOptionsConflictErr(err) {
			// An index with the same keys appeared under another name.
			if ex, ok := listExisting(ctx, coll)[d.sig]; ok {
				if sameBoolPtr(d.unique, ex.Unique) {
					zap.L().Info("reusing existing index (post-conflict)",
						zap.String("collection", coll.Name()),
						zap.String("name", ex.Name),
						zap.String("keys", d.sig))
					continue
				}
				err = recreate(ctx, coll, ex, d)
			}
		}
		if err != nil {
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", d.name),
				zap.String("keys", d.sig),
				zap.String("took", time.Since(start).String()),
				zap.Error(err))
			errs = append(errs, err.Error())
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", d.name),
			zap.String("keys", d.sig),
			zap.Bool("unique", d.isUnique()),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureCampaigns(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("campaigns"), []mongo.IndexModel{
		// Admin listing: newest first
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_campaigns_created_id"),
		},
		// Donor-facing listing filters on status
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_campaigns_status_created"),
		},
		// Withdrawal ownership and organizer views
		{
			Keys:    bson.D{{Key: "organizer.email", Value: 1}},
			Options: options.Index().SetName("idx_campaigns_organizer_email"),
		},
	})
}

func ensureDonations(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("donations"), []mongo.IndexModel{
		// A campaign's ledger, newest first (recent donations, full ledger, sums)
		{
			Keys:    bson.D{{Key: "campaign_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_donations_campaign_created"),
		},
		// One donation per provider order. Manual entries carry no payment_ref.
		{
			Keys: bson.D{{Key: "payment_ref", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"payment_ref": bson.M{"$type": "string"}}).
				SetName("uniq_donations_payment_ref"),
		},
		// Global ledger view
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_donations_created"),
		},
	})
}

func ensureWithdrawalRequests(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("withdrawal_requests"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_withdrawals_created"),
		},
		{
			Keys:    bson.D{{Key: "organizer_email", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_withdrawals_organizer_created"),
		},
		// Pending counter on the admin dashboard
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_withdrawals_status"),
		},
	})
}

func ensurePaymentCaptures(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("payment_captures"), []mongo.IndexModel{
		// Reconciler sweep: oldest captured first
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: 1}},
			Options: options.Index().SetName("idx_captures_status_updated"),
		},
	})
}

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("idx_users_email"),
		},
		{
			Keys:    bson.D{{Key: "last_login", Value: -1}},
			Options: options.Index().SetName("idx_users_last_login"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("audit_events"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_timestamp"),
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_category_type_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "actor", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_actor_timestamp"),
		},
	})
}

func ensureOAuthStates(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("oauth_states"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_oauth_state"),
		},
		// Expired states are removed by the server
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_oauth_expires_ttl"),
		},
	})
}
