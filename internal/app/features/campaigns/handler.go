// internal/app/features/campaigns/handler.go
package campaigns

import (
	campaignstore "github.com/dalemusser/fundhub/internal/app/store/campaigns"
	donationstore "github.com/dalemusser/fundhub/internal/app/store/donations"
	"github.com/dalemusser/fundhub/internal/app/system/auditlog"
	"github.com/dalemusser/fundhub/internal/app/system/auth"
	"github.com/dalemusser/fundhub/internal/app/system/livefeed"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves campaign pages for donors and organizers, and campaign
// moderation for administrators.
type Handler struct {
	DB         *mongo.Database
	Campaigns  *campaignstore.Store
	Donations  *donationstore.Store
	Storage    storage.Store // nil disables image upload
	Feed       *livefeed.Hub
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	Log        *zap.Logger

	// RecentLimit is the default size of the recent donations list.
	RecentLimit int
}

func NewHandler(
	db *mongo.Database,
	store storage.Store,
	feed *livefeed.Hub,
	sessionMgr *auth.SessionManager,
	audit *auditlog.Logger,
	recentLimit int,
	logger *zap.Logger,
) *Handler {
	if recentLimit <= 0 {
		recentLimit = donationstore.DefaultRecentLimit
	}
	return &Handler{
		DB:          db,
		Campaigns:   campaignstore.New(db),
		Donations:   donationstore.New(db),
		Storage:     store,
		Feed:        feed,
		SessionMgr:  sessionMgr,
		AuditLog:    audit,
		Log:         logger,
		RecentLimit: recentLimit,
	}
}
