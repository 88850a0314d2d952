// internal/app/features/donations/handler.go
package donations

import (
	capturestore "github.com/dalemusser/fundhub/internal/app/store/captures"
	donationstore "github.com/dalemusser/fundhub/internal/app/store/donations"
	"github.com/dalemusser/fundhub/internal/app/system/auditlog"
	"github.com/dalemusser/fundhub/internal/app/system/ledger"
	"github.com/dalemusser/fundhub/internal/app/system/payments"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the donor payment flow and the administrators' ledger
// tools.
type Handler struct {
	Payments  *payments.Service
	Ledger    *ledger.Ledger
	Donations *donationstore.Store
	Captures  *capturestore.Store
	AuditLog  *auditlog.Logger
	Log       *zap.Logger
}

func NewHandler(db *mongo.Database, svc *payments.Service, l *ledger.Ledger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Payments:  svc,
		Ledger:    l,
		Donations: donationstore.New(db),
		Captures:  capturestore.New(db),
		AuditLog:  audit,
		Log:       logger,
	}
}
