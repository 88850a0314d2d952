// internal/app/features/systemusers/handler.go
package systemusers

import (
	userstore "github.com/dalemusser/fundhub/internal/app/store/users"
	"github.com/dalemusser/fundhub/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the administrators' view of users mirrored from sign-in.
type Handler struct {
	Users    *userstore.Store
	Log      *zap.Logger
	AuditLog *auditlog.Logger
}

// NewHandler constructs a System Users feature handler bound to
// the given Mongo database and logger.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    userstore.New(db),
		Log:      logger,
		AuditLog: audit,
	}
}
