// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops the background workers, closes live feed connections and
// disconnects MongoDB, in that order.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if svc := deps.Services; svc != nil {
		if svc.Reconciler != nil {
			svc.Reconciler.Stop()
		}
		if svc.Scheduler != nil {
			svc.Scheduler.Stop()
		}
		if svc.Feed != nil {
			svc.Feed.Stop()
		}
	}

	if deps.FundHubMongoClient != nil {
		logger.Info("disconnecting FundHub MongoDB client")
		if err := deps.FundHubMongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
