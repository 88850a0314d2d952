// internal/app/store/withdrawals/withdrawalstore.go
package withdrawalstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/fundhub/internal/app/system/apperr"
	"github.com/dalemusser/fundhub/internal/app/system/normalize"
	"github.com/dalemusser/fundhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the withdrawal requests collection name.
const Collection = "withdrawal_requests"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create inserts a pending request. The caller has already checked
// ownership and taken the amount snapshot.
func (s *Store) Create(ctx context.Context, w models.WithdrawalRequest) (models.WithdrawalRequest, error) {
	w.ID = primitive.NewObjectID()
	w.OrganizerEmail = normalize.Email(w.OrganizerEmail)
	w.Status = models.WithdrawalPending
	w.CreatedAt = time.Now().UTC()
	w.DecidedAt = nil
	w.DecidedBy = ""
	if _, err := s.c.InsertOne(ctx, w); err != nil {
		return models.WithdrawalRequest{}, fmt.Errorf("insert withdrawal request: %w", err)
	}
	return w, nil
}

// Get loads a request by id.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (models.WithdrawalRequest, bool, error) {
	var w models.WithdrawalRequest
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&w)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.WithdrawalRequest{}, false, nil
	}
	if err != nil {
		return models.WithdrawalRequest{}, false, fmt.Errorf("get withdrawal request: %w", err)
	}
	return w, true, nil
}

// ListAll returns every request, newest first.
func (s *Store) ListAll(ctx context.Context) ([]models.WithdrawalRequest, error) {
	return s.find(ctx, bson.M{})
}

// ListByOrganizer returns the requests filed for campaigns the organizer owns.
func (s *Store) ListByOrganizer(ctx context.Context, email string) ([]models.WithdrawalRequest, error) {
	return s.find(ctx, bson.M{"organizer_email": normalize.Email(email)})
}

func (s *Store) find(ctx context.Context, q bson.M) ([]models.WithdrawalRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("list withdrawal requests: %w", err)
	}
	defer cur.Close(ctx)

	out := []models.WithdrawalRequest{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode withdrawal requests: %w", err)
	}
	return out, nil
}

// CountByStatus counts requests in one status.
func (s *Store) CountByStatus(ctx context.Context, status string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"status": status})
}

// Decide moves a request to status. The update is conditional on the status
// read, so two admins deciding at once cannot both succeed.
//
// Errors: ValidationError for an unknown status, NotFoundError when the
// request does not exist, ConflictError when the transition is not allowed
// or the request changed concurrently.
func (s *Store) Decide(ctx context.Context, id primitive.ObjectID, status, actor, note string) (models.WithdrawalRequest, error) {
	status = normalize.Status(status)
	if !models.IsValidWithdrawalStatus(status) {
		return models.WithdrawalRequest{}, apperr.Validation("status", "Status must be one of: pending, approved, rejected, completed.")
	}

	cur, found, err := s.Get(ctx, id)
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	if !found {
		return models.WithdrawalRequest{}, apperr.NotFound("withdrawal request", id.Hex())
	}
	if !models.CanTransitionWithdrawal(cur.Status, status) {
		return models.WithdrawalRequest{}, apperr.Conflict(
			fmt.Sprintf("withdrawal request cannot move from %s to %s", cur.Status, status), nil)
	}

	set := bson.M{
		"status":     status,
		"decided_at": time.Now().UTC(),
		"decided_by": normalize.Email(actor),
	}
	if note != "" {
		set["note"] = note
	}

	var out models.WithdrawalRequest
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": cur.Status},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.WithdrawalRequest{}, apperr.Conflict("withdrawal request was changed by someone else", nil)
	}
	if err != nil {
		return models.WithdrawalRequest{}, fmt.Errorf("decide withdrawal request: %w", err)
	}
	return out, nil
}
