package metricsstore

import (
	"context"
	"sync"

	campaignstore "github.com/dalemusser/fundhub/internal/app/store/campaigns"
	donationstore "github.com/dalemusser/fundhub/internal/app/store/donations"
	"github.com/dalemusser/fundhub/internal/app/system/apperr"
	"github.com/dalemusser/fundhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ledgerScanConcurrency bounds the per-campaign count queries behind
// TotalDonations.
const ledgerScanConcurrency = 8

// Views is the set of totals shown on the admin dashboard.
type Views struct {
	TotalRaised           models.Money `json:"total_raised"`
	TotalDonations        int64        `json:"total_donations"`
	ActiveCampaigns       int64        `json:"active_campaigns"`
	Users                 int64        `json:"users"`
	PendingWithdrawals    int64        `json:"pending_withdrawals"`
	CapturesNeedingReview int64        `json:"captures_needing_review"`
}

// FetchViews computes the admin dashboard totals.
// Intentionally tolerant: a counter that fails is logged and reported as 0
// so the rest of the dashboard still renders.
//
// TotalRaised trusts the campaign aggregates. TotalDonations counts each
// campaign's ledger separately, so it costs one query per campaign.
func FetchViews(ctx context.Context, db *mongo.Database, log *zap.Logger) Views {
	var (
		out Views
		mu  sync.Mutex
		g   errgroup.Group
	)

	counter := func(name string, dst *int64, fn func() (int64, error)) {
		g.Go(func() error {
			n, err := fn()
			if err != nil {
				log.Warn("dashboard counter failed", zap.String("counter", name), zap.Error(err))
				return nil
			}
			mu.Lock()
			*dst = n
			mu.Unlock()
			return nil
		})
	}

	g.Go(func() error {
		total, err := totalRaised(ctx, db)
		if err != nil {
			log.Warn("dashboard counter failed", zap.String("counter", "total_raised"), zap.Error(err))
			return nil
		}
		mu.Lock()
		out.TotalRaised = total
		mu.Unlock()
		return nil
	})
	counter("total_donations", &out.TotalDonations, func() (int64, error) {
		return totalDonations(ctx, db)
	})
	counter("active_campaigns", &out.ActiveCampaigns, func() (int64, error) {
		return db.Collection(campaignstore.Collection).CountDocuments(ctx, bson.M{
			"status": bson.M{"$in": []string{models.CampaignActive, models.CampaignApproved}},
		})
	})
	counter("users", &out.Users, func() (int64, error) {
		return db.Collection("users").CountDocuments(ctx, bson.M{})
	})
	counter("pending_withdrawals", &out.PendingWithdrawals, func() (int64, error) {
		return db.Collection("withdrawal_requests").CountDocuments(ctx, bson.M{"status": models.WithdrawalPending})
	})
	counter("captures_needing_review", &out.CapturesNeedingReview, func() (int64, error) {
		return db.Collection("payment_captures").CountDocuments(ctx, bson.M{"status": models.CaptureNeedsReview})
	})

	_ = g.Wait()
	return out
}

func totalRaised(ctx context.Context, db *mongo.Database) (models.Money, error) {
	cur, err := db.Collection(campaignstore.Collection).Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$current_amount"}}}},
	})
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var row struct {
		Total models.Money `bson:"total"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&row); err != nil {
			return 0, err
		}
	}
	return row.Total, cur.Err()
}

func totalDonations(ctx context.Context, db *mongo.Database) (int64, error) {
	ids, err := campaignstore.New(db).ListIDs(ctx)
	if err != nil {
		return 0, err
	}
	donations := donationstore.New(db)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ledgerScanConcurrency)
	counts := make([]int64, len(ids))
	for i, id := range ids {
		g.Go(func() error {
			n, err := donations.CountByCampaign(gctx, id)
			if err != nil {
				return err
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// Drift compares a campaign's stored aggregate with its ledger.
type Drift struct {
	CampaignID   primitive.ObjectID `json:"campaign_id"`
	StoredAmount models.Money       `json:"stored_amount"`
	StoredCount  int64              `json:"stored_count"`
	LedgerAmount models.Money       `json:"ledger_amount"`
	LedgerCount  int64              `json:"ledger_count"`
	AmountDelta  models.Money       `json:"amount_delta"`
	CountDelta   int64              `json:"count_delta"`
	Consistent   bool               `json:"consistent"`
}

// Audit recomputes a campaign's totals from its ledger and reports how far
// the stored aggregate is from them. It reads only.
func Audit(ctx context.Context, db *mongo.Database, campaignID primitive.ObjectID) (Drift, error) {
	agg, found, err := campaignstore.New(db).GetAggregate(ctx, campaignID)
	if err != nil {
		return Drift{}, err
	}
	if !found {
		return Drift{}, apperr.NotFound("campaign", campaignID.Hex())
	}
	totals, err := donationstore.New(db).SumByCampaign(ctx, campaignID)
	if err != nil {
		return Drift{}, err
	}

	d := Drift{
		CampaignID:   campaignID,
		StoredAmount: agg.CurrentAmount,
		StoredCount:  agg.DonorCount,
		LedgerAmount: totals.Sum,
		LedgerCount:  totals.Count,
		AmountDelta:  agg.CurrentAmount - totals.Sum,
		CountDelta:   agg.DonorCount - totals.Count,
	}
	d.Consistent = d.AmountDelta == 0 && d.CountDelta == 0
	return d, nil
}
