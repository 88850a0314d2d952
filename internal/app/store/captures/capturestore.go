// internal/app/store/captures/capturestore.go
package capturestore

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/fundhub/internal/app/system/apperr"
	"github.com/dalemusser/fundhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the payment captures collection name.
const Collection = "payment_captures"

// maxErrorLen bounds the stored last_error text.
const maxErrorLen = 500

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create stores a freshly opened order in status created.
func (s *Store) Create(ctx context.Context, pc models.PaymentCapture) (models.PaymentCapture, error) {
	now := time.Now().UTC()
	pc.Status = models.CaptureCreated
	pc.Attempts = 0
	pc.CreatedAt = now
	pc.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, pc); err != nil {
		return models.PaymentCapture{}, fmt.Errorf("insert payment capture: %w", err)
	}
	return pc, nil
}

// Get loads a capture by order id.
func (s *Store) Get(ctx context.Context, orderID string) (models.PaymentCapture, bool, error) {
	var pc models.PaymentCapture
	err := s.c.FindOne(ctx, bson.M{"_id": orderID}).Decode(&pc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.PaymentCapture{}, false, nil
	}
	if err != nil {
		return models.PaymentCapture{}, false, fmt.Errorf("get payment capture: %w", err)
	}
	return pc, true, nil
}

// MarkCaptured records that the provider confirmed payment. Captures that
// already reached captured, recorded or needs_review are left alone, so a
// repeated provider notification never moves a capture backwards.
func (s *Store) MarkCaptured(ctx context.Context, orderID, providerTxnID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": orderID, "status": bson.M{"$in": []string{models.CaptureCreated, models.CaptureFailed}}},
		bson.M{"$set": bson.M{
			"status":          models.CaptureCaptured,
			"provider_txn_id": providerTxnID,
			"updated_at":      time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("mark capture captured: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.requireExists(ctx, orderID)
	}
	return nil
}

// MarkRecorded links the capture to its ledger entry.
func (s *Store) MarkRecorded(ctx context.Context, orderID string, donationID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": orderID},
		bson.M{
			"$set": bson.M{
				"status":      models.CaptureRecorded,
				"donation_id": donationID,
				"updated_at":  time.Now().UTC(),
			},
			"$unset": bson.M{"last_error": ""},
		},
	)
	if err != nil {
		return fmt.Errorf("mark capture recorded: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("payment capture", orderID)
	}
	return nil
}

// MarkFailed records a provider-side failure (denied, expired, cancelled).
// Only captures still in created are affected.
func (s *Store) MarkFailed(ctx context.Context, orderID, reason string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": orderID, "status": models.CaptureCreated},
		bson.M{"$set": bson.M{
			"status":     models.CaptureFailed,
			"last_error": truncate(reason),
			"updated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("mark capture failed: %w", err)
	}
	return nil
}

// RecordAttemptFailure counts a failed ledger write for a captured payment.
// Once attempts reach maxAttempts the capture moves to needs_review. It
// returns the capture as stored after the update.
func (s *Store) RecordAttemptFailure(ctx context.Context, orderID string, cause error, maxAttempts int) (models.PaymentCapture, error) {
	msg := ""
	if cause != nil {
		msg = truncate(cause.Error())
	}

	var pc models.PaymentCapture
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": orderID, "status": models.CaptureCaptured},
		bson.M{
			"$inc": bson.M{"attempts": 1},
			"$set": bson.M{"last_error": msg, "updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&pc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		cur, found, gerr := s.Get(ctx, orderID)
		if gerr != nil {
			return models.PaymentCapture{}, gerr
		}
		if !found {
			return models.PaymentCapture{}, apperr.NotFound("payment capture", orderID)
		}
		return cur, nil
	}
	if err != nil {
		return models.PaymentCapture{}, fmt.Errorf("record capture attempt: %w", err)
	}

	if maxAttempts > 0 && pc.Attempts >= maxAttempts {
		_, err := s.c.UpdateOne(ctx,
			bson.M{"_id": orderID, "status": models.CaptureCaptured},
			bson.M{"$set": bson.M{"status": models.CaptureNeedsReview, "updated_at": time.Now().UTC()}},
		)
		if err != nil {
			return models.PaymentCapture{}, fmt.Errorf("flag capture for review: %w", err)
		}
		pc.Status = models.CaptureNeedsReview
	}
	return pc, nil
}

// Requeue returns a needs_review capture to captured with its attempt count
// reset. Admins use it after fixing whatever blocked recording.
func (s *Store) Requeue(ctx context.Context, orderID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": orderID, "status": bson.M{"$in": []string{models.CaptureNeedsReview, models.CaptureCaptured}}},
		bson.M{"$set": bson.M{"status": models.CaptureCaptured, "attempts": 0, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("requeue capture: %w", err)
	}
	if res.MatchedCount == 0 {
		if err := s.requireExists(ctx, orderID); err != nil {
			return err
		}
		return apperr.Conflict("only captured or needs_review captures can be retried", nil)
	}
	return nil
}

// ListPending returns captured-but-unrecorded payments last touched before
// olderThan, oldest first.
func (s *Store) ListPending(ctx context.Context, olderThan time.Time, limit int64) ([]models.PaymentCapture, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return s.find(ctx, bson.M{
		"status":     models.CaptureCaptured,
		"updated_at": bson.M{"$lte": olderThan},
	}, opts)
}

// ListNeedingAttention returns captures an admin should look at: those
// flagged for review and those still waiting to be recorded.
func (s *Store) ListNeedingAttention(ctx context.Context) ([]models.PaymentCapture, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	return s.find(ctx, bson.M{
		"status": bson.M{"$in": []string{models.CaptureNeedsReview, models.CaptureCaptured}},
	}, opts)
}

// CountByStatus counts captures in one status.
func (s *Store) CountByStatus(ctx context.Context, status string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"status": status})
}

func (s *Store) find(ctx context.Context, q bson.M, opts *options.FindOptions) ([]models.PaymentCapture, error) {
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("list payment captures: %w", err)
	}
	defer cur.Close(ctx)

	out := []models.PaymentCapture{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode payment captures: %w", err)
	}
	return out, nil
}

func (s *Store) requireExists(ctx context.Context, orderID string) error {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": orderID})
	if err != nil {
		return fmt.Errorf("count payment capture: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("payment capture", orderID)
	}
	return nil
}

// truncate cuts s to at most maxErrorLen bytes without splitting a rune.
func truncate(s string) string {
	if len(s) <= maxErrorLen {
		return s
	}
	cut := maxErrorLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
