// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// Services is allocated by ConnectDB and filled in by Startup, so the
// later hooks, which receive DBDeps by value, share the same instances.
type DBDeps struct {
	FundHubMongoClient   *mongo.Client
	FundHubMongoDatabase *mongo.Database
	Services             *Services
}
