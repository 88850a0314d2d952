// internal/app/system/payments/payments.go
package payments

import (
	"context"
	"strings"
	"time"

	campaignstore "github.com/dalemusser/fundhub/internal/app/store/campaigns"
	capturestore "github.com/dalemusser/fundhub/internal/app/store/captures"
	"github.com/dalemusser/fundhub/internal/app/system/apperr"
	"github.com/dalemusser/fundhub/internal/app/system/inputval"
	"github.com/dalemusser/fundhub/internal/app/system/ledger"
	"github.com/dalemusser/fundhub/internal/app/system/livefeed"
	"github.com/dalemusser/fundhub/internal/app/system/normalize"
	"github.com/dalemusser/fundhub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts   = 10
	DefaultInlineRetries = 3
	DefaultBackoff       = 200 * time.Millisecond
	DefaultCurrency      = "USD"
)

// Publisher receives recorded donations for the live donor wall.
type Publisher interface {
	Publish(ev livefeed.Event)
}

// Config tunes how hard recording is retried.
type Config struct {
	// MaxAttempts is how many failed recordings move a capture to
	// needs_review.
	MaxAttempts int
	// InlineRetries is how many times a request tries to record before
	// leaving the capture to the reconciler.
	InlineRetries int
	// Backoff is the linear step between inline retries.
	Backoff time.Duration
	// Currency is the ISO 4217 code every ledger amount is in. Checkouts
	// in any other currency are rejected.
	Currency string
}

// Service moves a payment from checkout to its ledger entry.
type Service struct {
	gateway   Gateway
	captures  *capturestore.Store
	campaigns *campaignstore.Store
	ledger    *ledger.Ledger
	feed      Publisher
	log       *zap.Logger
	cfg       Config
}

func New(db *mongo.Database, gw Gateway, l *ledger.Ledger, feed Publisher, log *zap.Logger, cfg Config) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.InlineRetries <= 0 {
		cfg.InlineRetries = DefaultInlineRetries
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	return &Service{
		gateway:   gw,
		captures:  capturestore.New(db),
		campaigns: campaignstore.New(db),
		ledger:    l,
		feed:      feed,
		log:       log,
		cfg:       cfg,
	}
}

// CheckoutInput is a donor's request to pay.
type CheckoutInput struct {
	CampaignID string       `json:"campaign_id" validate:"required,objectid" label:"Campaign"`
	Amount     models.Money `json:"amount" validate:"gt=0,lte=100000000000" label:"Amount"`
	Currency   string       `json:"currency" validate:"omitempty,iso4217" label:"Currency"`
	DonorName  string       `json:"donor_name" validate:"max=100" label:"Donor name"`
	Anonymous  bool         `json:"anonymous"`
}

// Checkout opens a provider order for a campaign and stores it as a created
// capture. Donations are only accepted for publicly listed campaigns.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (Checkout, error) {
	in.DonorName = normalize.Name(in.DonorName)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = s.cfg.Currency
	}
	if err := inputval.Validate(in).Err(); err != nil {
		return Checkout{}, err
	}
	if in.Currency != s.cfg.Currency {
		return Checkout{}, apperr.Validation("currency", "Donations are accepted in "+s.cfg.Currency+" only.")
	}
	campaignID, _ := primitive.ObjectIDFromHex(in.CampaignID)

	c, found, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		return Checkout{}, err
	}
	if !found || !models.IsPubliclyListed(c.Status) {
		return Checkout{}, apperr.NotFound("campaign", in.CampaignID)
	}

	orderID := "DON-" + uuid.NewString()
	donor := models.DisplayName(in.DonorName, in.Anonymous)
	if _, err := s.captures.Create(ctx, models.PaymentCapture{
		ID:         orderID,
		CampaignID: campaignID,
		Amount:     in.Amount,
		DonorName:  donor,
		Anonymous:  in.Anonymous,
	}); err != nil {
		return Checkout{}, err
	}

	co, err := s.gateway.CreateOrder(ctx, Order{ID: orderID, Amount: in.Amount, Currency: in.Currency, DonorName: donor})
	if err != nil {
		if ferr := s.captures.MarkFailed(ctx, orderID, err.Error()); ferr != nil {
			s.log.Error("mark capture failed", zap.String("order_id", orderID), zap.Error(ferr))
		}
		return Checkout{}, apperr.External("payment provider", err)
	}

	s.log.Info("checkout opened",
		zap.String("order_id", orderID),
		zap.String("campaign_id", campaignID.Hex()),
		zap.String("amount", in.Amount.String()),
		zap.String("currency", in.Currency))
	return co, nil
}

// Status returns the stored capture.
func (s *Service) Status(ctx context.Context, orderID string) (models.PaymentCapture, error) {
	pc, found, err := s.captures.Get(ctx, orderID)
	if err != nil {
		return models.PaymentCapture{}, err
	}
	if !found {
		return models.PaymentCapture{}, apperr.NotFound("payment", orderID)
	}
	return pc, nil
}

// Settle verifies an order with the provider and, when paid, records the
// donation. The returned capture's status tells the caller the outcome:
// recorded on success, captured when recording must be retried later,
// created while the provider has not settled, failed when it never will.
func (s *Service) Settle(ctx context.Context, orderID string) (models.PaymentCapture, error) {
	pc, err := s.Status(ctx, orderID)
	if err != nil {
		return models.PaymentCapture{}, err
	}
	switch pc.Status {
	case models.CaptureRecorded, models.CaptureNeedsReview:
		return pc, nil
	case models.CaptureCaptured:
		return s.record(ctx, pc, s.cfg.InlineRetries)
	}

	v, err := s.gateway.VerifyCapture(ctx, orderID)
	if err != nil {
		return models.PaymentCapture{}, apperr.External("payment provider", err)
	}

	switch v.State {
	case StatePaid:
		if v.Amount != 0 && v.Amount != pc.Amount {
			s.log.Error("provider amount does not match order",
				zap.String("order_id", orderID),
				zap.String("expected", pc.Amount.String()),
				zap.String("provider", v.Amount.String()))
			return models.PaymentCapture{}, apperr.Conflict("payment amount does not match the order", nil)
		}
		if err := s.captures.MarkCaptured(ctx, orderID, v.ProviderTxnID); err != nil {
			return models.PaymentCapture{}, err
		}
		pc.Status = models.CaptureCaptured
		pc.ProviderTxnID = v.ProviderTxnID
		return s.record(ctx, pc, s.cfg.InlineRetries)

	case StateFailed:
		if err := s.captures.MarkFailed(ctx, orderID, "provider status "+v.Raw); err != nil {
			return models.PaymentCapture{}, err
		}
		return s.Status(ctx, orderID)

	default:
		return pc, nil
	}
}

// Replay makes one recording attempt for a captured payment. The
// reconciler calls it; replays are safe because recording is idempotent
// on the order id.
func (s *Service) Replay(ctx context.Context, orderID string) (models.PaymentCapture, error) {
	pc, err := s.Status(ctx, orderID)
	if err != nil {
		return models.PaymentCapture{}, err
	}
	if pc.Status != models.CaptureCaptured {
		return pc, nil
	}
	return s.record(ctx, pc, 1)
}

// Retry returns a capture to the reconciler queue with its attempt count
// reset and tries it once right away. Admins use it for needs_review
// captures.
func (s *Service) Retry(ctx context.Context, orderID string) (models.PaymentCapture, error) {
	if err := s.captures.Requeue(ctx, orderID); err != nil {
		return models.PaymentCapture{}, err
	}
	return s.Replay(ctx, orderID)
}

// Reconcile replays captured payments untouched for at least minAge. It
// returns how many were recorded.
func (s *Service) Reconcile(ctx context.Context, minAge time.Duration, limit int64) (int, error) {
	pending, err := s.captures.ListPending(ctx, time.Now().UTC().Add(-minAge), limit)
	if err != nil {
		return 0, err
	}

	recorded := 0
	for _, pc := range pending {
		if ctx.Err() != nil {
			return recorded, ctx.Err()
		}
		out, err := s.record(ctx, pc, 1)
		if err != nil {
			s.log.Warn("replay capture", zap.String("order_id", pc.ID), zap.Error(err))
			continue
		}
		if out.Status == models.CaptureRecorded {
			recorded++
		}
	}
	return recorded, nil
}

// record writes the donation for a captured payment, trying up to tries
// times with linear backoff. A failure is counted against the capture,
// which stays captured for the reconciler until it runs out of attempts.
func (s *Service) record(ctx context.Context, pc models.PaymentCapture, tries int) (models.PaymentCapture, error) {
	in := ledger.NewDonation{
		CampaignID: pc.CampaignID,
		Amount:     pc.Amount,
		DonorName:  pc.DonorName,
		Anonymous:  pc.Anonymous,
		PaymentRef: pc.ID,
	}

	var lastErr error
	for attempt := 1; attempt <= tries; attempt++ {
		d, created, err := s.ledger.RecordDonation(ctx, in)
		if err == nil {
			if err := s.captures.MarkRecorded(ctx, pc.ID, d.ID); err != nil {
				return models.PaymentCapture{}, err
			}
			if created && s.feed != nil {
				s.feed.Publish(livefeed.EventFor(d))
			}
			pc.Status = models.CaptureRecorded
			pc.DonationID = &d.ID
			pc.LastError = ""
			return pc, nil
		}

		lastErr = err
		if !retryable(err) || attempt == tries {
			break
		}
		if !sleep(ctx, time.Duration(attempt)*s.cfg.Backoff) {
			lastErr = ctx.Err()
			break
		}
	}

	maxAttempts := s.cfg.MaxAttempts
	if !retryable(lastErr) {
		maxAttempts = 1
	}
	// The request context may already be done.
	out, err := s.captures.RecordAttemptFailure(context.WithoutCancel(ctx), pc.ID, lastErr, maxAttempts)
	if err != nil {
		return models.PaymentCapture{}, err
	}
	if out.Status == models.CaptureNeedsReview {
		s.log.Error("capture needs review",
			zap.String("order_id", pc.ID),
			zap.Int("attempts", out.Attempts),
			zap.Error(lastErr))
	} else {
		s.log.Warn("recording capture failed, will retry",
			zap.String("order_id", pc.ID),
			zap.Int("attempts", out.Attempts),
			zap.Error(lastErr))
	}
	return out, nil
}

// retryable reports whether a failed recording may succeed later. Missing
// campaigns and bad amounts will not fix themselves.
func retryable(err error) bool {
	return err != nil && !apperr.IsNotFound(err) && !apperr.IsValidation(err)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
