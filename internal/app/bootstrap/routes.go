// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"strings"
	"time"

	auditlogfeature "github.com/dalemusser/fundhub/internal/app/features/auditlog"
	authgooglefeature "github.com/dalemusser/fundhub/internal/app/features/authgoogle"
	campaignsfeature "github.com/dalemusser/fundhub/internal/app/features/campaigns"
	dashboardfeature "github.com/dalemusser/fundhub/internal/app/features/dashboard"
	donationsfeature "github.com/dalemusser/fundhub/internal/app/features/donations"
	errorsfeature "github.com/dalemusser/fundhub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/fundhub/internal/app/features/health"
	logoutfeature "github.com/dalemusser/fundhub/internal/app/features/logout"
	systemusersfeature "github.com/dalemusser/fundhub/internal/app/features/systemusers"
	userinfofeature "github.com/dalemusser/fundhub/internal/app/features/userinfo"
	withdrawalsfeature "github.com/dalemusser/fundhub/internal/app/features/withdrawals"
	"github.com/dalemusser/fundhub/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed, so deps.Services is populated.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	return newRouter(deps.FundHubMongoClient, deps.FundHubMongoDatabase, appCfg, deps.Services, logger), nil
}

func newRouter(client *mongo.Client, db *mongo.Database, appCfg AppConfig, svc *Services, logger *zap.Logger) chi.Router {
	sm := svc.SessionMgr

	r := chi.NewRouter()
	r.NotFound(errorsfeature.NotFound)
	r.MethodNotAllowed(errorsfeature.MethodNotAllowed)

	// Client IP for rate limits and audit entries; validated at startup.
	proxies, err := ratelimit.ParseProxies(appCfg.TrustedProxies)
	if err != nil {
		logger.Warn("ignoring trusted_proxies", zap.Error(err))
	}
	r.Use(proxies.Middleware)

	// Global auth middleware: loads SessionUser into context if signed in.
	// This makes the current user available to all handlers via auth.CurrentUser(r).
	r.Use(sm.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(client, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Uploaded campaign images, when stored on local disk
	if _, ok := svc.Storage.(*storage.Local); ok {
		prefix := strings.TrimRight(appCfg.StorageLocalURL, "/")
		r.Handle(prefix+"/*", fileserver.Handler(prefix, appCfg.StorageLocalPath))
	}

	// Authentication
	googleHandler := authgooglefeature.NewHandler(db, sm, svc.AuditLog,
		appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, logger)
	r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))

	logoutHandler := logoutfeature.NewHandler(sm, svc.AuditLog, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	userinfofeature.MountRoutes(r, userinfofeature.NewHandler(sm), sm)

	// Campaigns and organizer withdrawals
	campaignsHandler := campaignsfeature.NewHandler(db, svc.Storage, svc.Feed, sm, svc.AuditLog,
		appCfg.RecentDonationsLimit, logger)
	withdrawalsHandler := withdrawalsfeature.NewHandler(db, sm, svc.AuditLog, logger)
	r.Route("/campaigns", func(cr chi.Router) {
		campaignsfeature.MountRoutes(cr, campaignsHandler)
		withdrawalsfeature.MountCampaignRoutes(cr, withdrawalsHandler)
	})
	r.Mount("/withdrawals", withdrawalsfeature.Routes(withdrawalsHandler))

	// Donations and the payment webhook, limited per client IP
	donationsHandler := donationsfeature.NewHandler(db, svc.Payments, svc.Ledger, svc.AuditLog, logger)
	limiter := ratelimit.New(appCfg.CheckoutRatePerMinute, time.Minute, appCfg.CheckoutRatePerMinute)
	r.Group(func(pr chi.Router) {
		pr.Use(ratelimit.Middleware(limiter, logger))
		pr.Mount("/donations", donationsfeature.Routes(donationsHandler))
		donationsfeature.MountWebhook(pr, donationsHandler)
	})

	// Administration
	dashboardHandler := dashboardfeature.NewHandler(db, logger)
	sysUsersHandler := systemusersfeature.NewHandler(db, svc.AuditLog, logger)
	auditHandler := auditlogfeature.NewHandler(db, logger)
	r.Route("/admin", func(ar chi.Router) {
		ar.Use(sm.RequireAdmin)
		campaignsfeature.MountAdminRoutes(ar, campaignsHandler)
		donationsfeature.MountAdminRoutes(ar, donationsHandler)
		withdrawalsfeature.MountAdminRoutes(ar, withdrawalsHandler)
		dashboardfeature.MountAdminRoutes(ar, dashboardHandler)
		systemusersfeature.MountAdminRoutes(ar, sysUsersHandler)
		auditlogfeature.MountAdminRoutes(ar, auditHandler)
	})

	return r
}
