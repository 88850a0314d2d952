// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/fundhub/internal/app/store/audit"
	"github.com/dalemusser/fundhub/internal/app/system/auth"
	"github.com/dalemusser/fundhub/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login, logout).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for admin actions (moderation, ledger corrections, payouts).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Actor identifies the signed-in user who performed an action.
type Actor struct {
	UID   string
	Email string
}

// ActorFrom returns the signed-in user of r. It is empty for anonymous
// requests.
func ActorFrom(r *http.Request) Actor {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return Actor{}
	}
	return Actor{UID: u.UID, Email: u.Email}
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.Actor != "" {
		fields = append(fields, zap.String("actor", event.Actor))
	}
	if event.Target != "" {
		fields = append(fields, zap.String("target", event.Target))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = "all"
	}
	if setting == "" {
		setting = "all"
	}

	if setting == "off" {
		return
	}
	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if (setting == "all" || setting == "db") && l.store != nil {
		// Outlives the request context.
		if err := l.store.Log(context.WithoutCancel(ctx), event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func (l *Logger) admin(ctx context.Context, r *http.Request, eventType string, actor Actor, target string, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		Actor:     actor.Email,
		ActorUID:  actor.UID,
		Target:    target,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   details,
	})
}

// --- Authentication Events ---

// LoginSuccess logs a completed Google sign-in.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, actor Actor) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		Actor:     actor.Email,
		ActorUID:  actor.UID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"auth_method": "google"},
	})
}

// LoginFailed logs a sign-in that did not complete.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailed,
		IP:            ratelimit.ClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: reason,
		Details:       map[string]string{"auth_method": "google"},
	})
}

// Logout logs a sign-out.
func (l *Logger) Logout(ctx context.Context, r *http.Request, actor Actor) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		Actor:     actor.Email,
		ActorUID:  actor.UID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// --- Admin Events ---

// CampaignStatusChanged logs a moderation decision.
func (l *Logger) CampaignStatusChanged(ctx context.Context, r *http.Request, actor Actor, campaignID, status string) {
	l.admin(ctx, r, audit.EventCampaignStatusChanged, actor, campaignID, map[string]string{"status": status})
}

// CampaignDeleted logs a campaign removal and how many donations were purged.
func (l *Logger) CampaignDeleted(ctx context.Context, r *http.Request, actor Actor, campaignID, purged string) {
	l.admin(ctx, r, audit.EventCampaignDeleted, actor, campaignID, map[string]string{"donations_purged": purged})
}

// DonationCorrected logs an amount correction.
func (l *Logger) DonationCorrected(ctx context.Context, r *http.Request, actor Actor, campaignID, donationID, oldAmount, newAmount string) {
	l.admin(ctx, r, audit.EventDonationCorrected, actor, donationID, map[string]string{
		"campaign_id": campaignID,
		"old_amount":  oldAmount,
		"new_amount":  newAmount,
	})
}

// DonationDeleted logs a ledger entry removal.
func (l *Logger) DonationDeleted(ctx context.Context, r *http.Request, actor Actor, campaignID, donationID, amount string) {
	l.admin(ctx, r, audit.EventDonationDeleted, actor, donationID, map[string]string{
		"campaign_id": campaignID,
		"amount":      amount,
	})
}

// WithdrawalDecided logs a payout decision.
func (l *Logger) WithdrawalDecided(ctx context.Context, r *http.Request, actor Actor, requestID, status string) {
	l.admin(ctx, r, audit.EventWithdrawalDecided, actor, requestID, map[string]string{"status": status})
}

// UserDeleted logs removal of a user mirror entry.
func (l *Logger) UserDeleted(ctx context.Context, r *http.Request, actor Actor, uid string) {
	l.admin(ctx, r, audit.EventUserDeleted, actor, uid, nil)
}

// CaptureRetried logs a manual replay of a payment capture.
func (l *Logger) CaptureRetried(ctx context.Context, r *http.Request, actor Actor, orderID, outcome string) {
	l.admin(ctx, r, audit.EventCaptureRetried, actor, orderID, map[string]string{"outcome": outcome})
}
