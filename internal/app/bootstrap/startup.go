// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/fundhub/internal/app/store/audit"
	"github.com/dalemusser/fundhub/internal/app/store/oauthstate"
	"github.com/dalemusser/fundhub/internal/app/system/auditlog"
	"github.com/dalemusser/fundhub/internal/app/system/auth"
	"github.com/dalemusser/fundhub/internal/app/system/authz"
	"github.com/dalemusser/fundhub/internal/app/system/ledger"
	"github.com/dalemusser/fundhub/internal/app/system/livefeed"
	"github.com/dalemusser/fundhub/internal/app/system/payments"
	"github.com/dalemusser/fundhub/internal/app/system/tasks"
	"github.com/dalemusser/fundhub/internal/app/system/timeouts"
	"github.com/dalemusser/fundhub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.uber.org/zap"
)

const (
	// Requests record a paid capture this many times before leaving it to
	// the reconciler.
	inlineRecordRetries = 2
	inlineRecordBackoff = 200 * time.Millisecond

	// The reconciler leaves captures younger than this to the request
	// that is still recording them.
	reconcileMinAge = 30 * time.Second
)

// Services are the long-lived components built at startup and shared by
// the handlers.
type Services struct {
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	Storage    storage.Store
	Feed       *livefeed.Hub
	Ledger     *ledger.Ledger
	Payments   *payments.Service
	Reconciler *workers.CaptureReconciler
	Scheduler  *tasks.Scheduler
}

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It builds
// the shared services and starts the background workers.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n))
	}

	db := deps.FundHubMongoDatabase
	svc := deps.Services

	admins := authz.NewAdmins(authz.ParseList(appCfg.AdminEmails))
	if admins.Len() == 0 {
		logger.Warn("admin_emails is empty; admin routes will reject everyone")
	}

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain,
		appCfg.SessionMaxAge, secure, admins, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return err
	}
	svc.SessionMgr = sessionMgr

	svc.AuditLog = auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	if err := initStorage(ctx, appCfg, svc, logger); err != nil {
		return err
	}

	svc.Feed = livefeed.NewHub(logger)
	svc.Feed.Start()

	if appCfg.PaymentServerKey == "" {
		logger.Warn("payment_server_key is empty; checkouts will fail at the provider")
	}
	svc.Ledger = ledger.New(db, logger)
	svc.Payments = payments.New(db,
		payments.NewMidtrans(appCfg.PaymentServerKey, appCfg.PaymentProduction),
		svc.Ledger, svc.Feed, logger,
		payments.Config{
			MaxAttempts:   appCfg.ReconcileMaxAttempts,
			InlineRetries: inlineRecordRetries,
			Backoff:       inlineRecordBackoff,
			Currency:      appCfg.PaymentCurrency,
		})

	svc.Reconciler = workers.NewCaptureReconciler(svc.Payments, logger, appCfg.ReconcileInterval, reconcileMinAge)
	svc.Reconciler.Start()

	svc.Scheduler = tasks.NewScheduler(logger, timeouts.Medium(),
		tasks.OAuthStateCleanupJob(oauthstate.New(db), logger))
	svc.Scheduler.Start()

	logger.Info("fundhub services started",
		zap.Int("admins", admins.Len()),
		zap.String("storage", appCfg.StorageType),
		zap.Bool("payment_production", appCfg.PaymentProduction))
	return nil
}

// initStorage picks the image storage backend from storage_type.
func initStorage(ctx context.Context, appCfg AppConfig, svc *Services, logger *zap.Logger) error {
	switch appCfg.StorageType {
	case "s3":
		s3, err := storage.NewS3(ctx, storage.S3Config{
			Region:                   appCfg.StorageS3Region,
			Bucket:                   appCfg.StorageS3Bucket,
			Prefix:                   appCfg.StorageS3Prefix,
			CloudFrontURL:            appCfg.StorageCFURL,
			CloudFrontKeyPairID:      appCfg.StorageCFKeyPairID,
			CloudFrontPrivateKeyPath: appCfg.StorageCFKeyPath,
		})
		if err != nil {
			logger.Error("s3 storage init failed", zap.Error(err))
			return fmt.Errorf("init s3 storage: %w", err)
		}
		svc.Storage = s3
	default:
		local, err := storage.NewLocal(storage.LocalConfig{BasePath: appCfg.StorageLocalPath, BaseURL: appCfg.StorageLocalURL})
		if err != nil {
			logger.Error("local storage init failed", zap.Error(err))
			return fmt.Errorf("init local storage: %w", err)
		}
		svc.Storage = local
	}
	return nil
}
