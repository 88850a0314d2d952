// internal/app/store/donations/donationstore.go
package donationstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/fundhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the donations collection name. Each document carries its
// campaign_id; a campaign's ledger is the set of donations with that id.
const Collection = "donations"

// DefaultRecentLimit is how many donations a campaign page shows.
const DefaultRecentLimit = 5

// ErrDuplicatePaymentRef is returned by Append when a donation with the same
// payment reference is already in the ledger.
var ErrDuplicatePaymentRef = errors.New("a donation with this payment reference already exists")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Append inserts a donation. It is only called from inside a ledger
// transaction that also updates the campaign aggregate.
func (s *Store) Append(ctx context.Context, d models.Donation) (models.Donation, error) {
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, d); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Donation{}, ErrDuplicatePaymentRef
		}
		return models.Donation{}, fmt.Errorf("insert donation: %w", err)
	}
	return d, nil
}

// Get loads one donation of a campaign. found is false when it does not
// exist or belongs to another campaign.
func (s *Store) Get(ctx context.Context, campaignID, donationID primitive.ObjectID) (models.Donation, bool, error) {
	return s.findOne(ctx, bson.M{"_id": donationID, "campaign_id": campaignID})
}

// GetByPaymentRef finds the donation recorded for a provider order.
func (s *Store) GetByPaymentRef(ctx context.Context, ref string) (models.Donation, bool, error) {
	return s.findOne(ctx, bson.M{"payment_ref": ref})
}

func (s *Store) findOne(ctx context.Context, q bson.M) (models.Donation, bool, error) {
	var d models.Donation
	err := s.c.FindOne(ctx, q).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Donation{}, false, nil
	}
	if err != nil {
		return models.Donation{}, false, fmt.Errorf("get donation: %w", err)
	}
	return d, true, nil
}

// ListRecent returns up to n donations of a campaign, newest first.
// n <= 0 means DefaultRecentLimit.
func (s *Store) ListRecent(ctx context.Context, campaignID primitive.ObjectID, n int64) ([]models.Donation, error) {
	if n <= 0 {
		n = DefaultRecentLimit
	}
	return s.find(ctx, bson.M{"campaign_id": campaignID}, newestFirst().SetLimit(n))
}

// ListAll returns a campaign's full ledger, newest first.
func (s *Store) ListAll(ctx context.Context, campaignID primitive.ObjectID) ([]models.Donation, error) {
	return s.find(ctx, bson.M{"campaign_id": campaignID}, newestFirst())
}

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
}

func (s *Store) find(ctx context.Context, q bson.M, opts *options.FindOptions) ([]models.Donation, error) {
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer cur.Close(ctx)

	out := []models.Donation{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode donations: %w", err)
	}
	return out, nil
}

// GlobalRow is a donation with the title of its campaign. CampaignTitle is
// empty when the campaign no longer exists.
type GlobalRow struct {
	models.Donation `bson:",inline"`
	CampaignTitle   string `bson:"campaign_title" json:"campaign_title"`
}

// ListGlobal returns every donation across all campaigns, newest first,
// joined with the campaign title.
func (s *Store) ListGlobal(ctx context.Context) ([]GlobalRow, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "campaigns",
			"localField":   "campaign_id",
			"foreignField": "_id",
			"as":           "campaign",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"campaign_title": bson.M{"$ifNull": bson.A{bson.M{"$arrayElemAt": bson.A{"$campaign.title", 0}}, ""}},
		}}},
		{{Key: "$project", Value: bson.M{"campaign": 0}}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate global donations: %w", err)
	}
	defer cur.Close(ctx)

	out := []GlobalRow{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode global donations: %w", err)
	}
	return out, nil
}

// SetAmount overwrites a donation's amount and records who corrected it.
func (s *Store) SetAmount(ctx context.Context, donationID primitive.ObjectID, amount models.Money, actor string) error {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": donationID},
		bson.M{"$set": bson.M{"amount": amount, "corrected_at": now, "corrected_by": actor}},
	)
	if err != nil {
		return fmt.Errorf("set donation amount: %w", err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes one donation. It returns mongo.ErrNoDocuments when nothing
// was deleted.
func (s *Store) Delete(ctx context.Context, donationID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": donationID})
	if err != nil {
		return fmt.Errorf("delete donation: %w", err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeleteByCampaign purges a deleted campaign's ledger. Returns the number of
// donations removed.
func (s *Store) DeleteByCampaign(ctx context.Context, campaignID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"campaign_id": campaignID})
	if err != nil {
		return 0, fmt.Errorf("delete campaign donations: %w", err)
	}
	return res.DeletedCount, nil
}

// CountByCampaign returns the size of a campaign's ledger.
func (s *Store) CountByCampaign(ctx context.Context, campaignID primitive.ObjectID) (int64, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"campaign_id": campaignID})
	if err != nil {
		return 0, fmt.Errorf("count donations: %w", err)
	}
	return n, nil
}

// Totals is the sum and count of a ledger computed from its entries.
type Totals struct {
	Sum   models.Money `bson:"sum"`
	Count int64        `bson:"count"`
}

// SumByCampaign recomputes a campaign's totals from its ledger.
func (s *Store) SumByCampaign(ctx context.Context, campaignID primitive.ObjectID) (Totals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"campaign_id": campaignID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"sum":   bson.M{"$sum": "$amount"},
			"count": bson.M{"$sum": 1},
		}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return Totals{}, fmt.Errorf("sum donations: %w", err)
	}
	defer cur.Close(ctx)

	var t Totals
	if cur.Next(ctx) {
		if err := cur.Decode(&t); err != nil {
			return Totals{}, fmt.Errorf("decode donation totals: %w", err)
		}
	}
	return t, cur.Err()
}
