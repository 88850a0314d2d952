// internal/app/store/campaigns/campaignstore.go
package campaignstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/fundhub/internal/app/system/apperr"
	"github.com/dalemusser/fundhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/fundhub/internal/app/system/inputval"
	"github.com/dalemusser/fundhub/internal/app/system/normalize"
	"github.com/dalemusser/fundhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the campaigns collection name.
const Collection = "campaigns"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// NewCampaign is the organizer-supplied part of a campaign.
type NewCampaign struct {
	Title            string           `json:"title" validate:"required,max=200" label:"Title"`
	Category         string           `json:"category" validate:"required,max=50" label:"Category"`
	Goal             models.Money     `json:"goal" validate:"gt=0" label:"Goal"`
	Description      string           `json:"description" validate:"required,max=20000" label:"Description"`
	Beneficiary      string           `json:"beneficiary" validate:"required,oneof=myself other" label:"Beneficiary"`
	Organizer        models.Organizer `json:"organizer"`
	ImageURL         string           `json:"image_url" validate:"omitempty,httpurl,max=2048" label:"Image URL"`
	VideoURL         string           `json:"video_url" validate:"omitempty,httpurl,max=2048" label:"Video URL"`
	AdditionalImages []string         `json:"additional_images" validate:"max=10,dive,httpurl,max=2048" label:"Additional images"`
}

// Filter narrows List. Admin listings include hidden and reported campaigns.
type Filter struct {
	Query    string
	Category string
	Admin    bool
}

// Create validates nc and inserts a new active campaign with empty
// aggregates. Text fields are stored as plain text.
func (s *Store) Create(ctx context.Context, nc NewCampaign) (primitive.ObjectID, error) {
	nc.Title = normalize.Name(htmlsanitize.PlainText(nc.Title))
	nc.Category = strings.TrimSpace(nc.Category)
	nc.Description = htmlsanitize.PlainText(nc.Description)
	nc.Beneficiary = normalize.Status(nc.Beneficiary)
	nc.Organizer.Name = normalize.Name(htmlsanitize.PlainText(nc.Organizer.Name))
	nc.Organizer.Email = normalize.Email(nc.Organizer.Email)
	nc.Organizer.Phone = strings.TrimSpace(nc.Organizer.Phone)
	nc.Organizer.City = htmlsanitize.PlainText(nc.Organizer.City)
	nc.Organizer.Address = htmlsanitize.PlainText(nc.Organizer.Address)
	nc.ImageURL = strings.TrimSpace(nc.ImageURL)
	nc.VideoURL = strings.TrimSpace(nc.VideoURL)

	if err := inputval.Validate(nc).Err(); err != nil {
		return primitive.NilObjectID, err
	}

	now := time.Now().UTC()
	c := models.Campaign{
		ID:               primitive.NewObjectID(),
		Title:            nc.Title,
		TitleCI:          text.Fold(nc.Title),
		Category:         nc.Category,
		Goal:             nc.Goal,
		Description:      nc.Description,
		Beneficiary:      nc.Beneficiary,
		Organizer:        nc.Organizer,
		ImageURL:         nc.ImageURL,
		VideoURL:         nc.VideoURL,
		AdditionalImages: nc.AdditionalImages,
		Status:           models.CampaignActive,
		CurrentAmount:    0,
		DonorCount:       0,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert campaign: %w", err)
	}
	return c.ID, nil
}

// Get loads a campaign. A missing document is reported with found=false and
// a nil error.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (models.Campaign, bool, error) {
	var c models.Campaign
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Campaign{}, false, nil
	}
	if err != nil {
		return models.Campaign{}, false, fmt.Errorf("get campaign: %w", err)
	}
	return c, true, nil
}

// List returns campaigns newest first. Status visibility is applied in the
// query; free-text and category matching are applied to the fetched set.
func (s *Store) List(ctx context.Context, f Filter) ([]models.Campaign, error) {
	q := bson.M{}
	if !f.Admin {
		q["status"] = bson.M{"$nin": []string{models.CampaignHidden, models.CampaignReported}}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer cur.Close(ctx)

	var all []models.Campaign
	if err := cur.All(ctx, &all); err != nil {
		return nil, fmt.Errorf("decode campaigns: %w", err)
	}
	return Match(all, f), nil
}

// Match keeps the campaigns whose folded title or description contains the
// folded query and whose category equals f.Category when set. Order is kept.
func Match(cs []models.Campaign, f Filter) []models.Campaign {
	query := text.Fold(strings.TrimSpace(f.Query))
	category := normalize.Category(f.Category)

	out := make([]models.Campaign, 0, len(cs))
	for _, c := range cs {
		if category != "" && c.Category != category {
			continue
		}
		if query != "" &&
			!strings.Contains(text.Fold(c.Title), query) &&
			!strings.Contains(text.Fold(c.Description), query) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// UpdateStatus moves a campaign to a moderation status. Aggregates are not
// touched.
func (s *Store) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	status = normalize.Status(status)
	if !models.IsValidCampaignStatus(status) {
		return apperr.Validation("status", "Status must be one of: active, approved, hidden, reported.")
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("update campaign status: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("campaign", id.Hex())
	}
	return nil
}

// Delete removes the campaign document. Its donations are not touched here;
// callers purge them afterwards.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("campaign", id.Hex())
	}
	return nil
}

// ApplyDelta adds amount to current_amount and count to donor_count. It must
// only run inside a ledger transaction, paired with the donation write it
// accounts for. Returns NotFoundError if the campaign is gone.
func (s *Store) ApplyDelta(ctx context.Context, id primitive.ObjectID, amount models.Money, count int64) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"current_amount": amount, "donor_count": count},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("apply campaign delta: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("campaign", id.Hex())
	}
	return nil
}

// Aggregate is the stored running total of a campaign.
type Aggregate struct {
	CurrentAmount models.Money `bson:"current_amount"`
	DonorCount    int64        `bson:"donor_count"`
}

// GetAggregate reads only the aggregate fields.
func (s *Store) GetAggregate(ctx context.Context, id primitive.ObjectID) (Aggregate, bool, error) {
	var a Aggregate
	err := s.c.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"current_amount": 1, "donor_count": 1}),
	).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Aggregate{}, false, nil
	}
	if err != nil {
		return Aggregate{}, false, fmt.Errorf("get campaign aggregate: %w", err)
	}
	return a, true, nil
}

// ListIDs returns every campaign id. Admin views enumerate ledgers with it.
func (s *Store) ListIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("list campaign ids: %w", err)
	}
	defer cur.Close(ctx)

	var ids []primitive.ObjectID
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode campaign id: %w", err)
		}
		ids = append(ids, row.ID)
	}
	return ids, cur.Err()
}
