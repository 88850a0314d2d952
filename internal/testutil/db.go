// internal/testutil/db.go
package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultTestMongoURI points at a local single-node replica set, which is
// what the ledger tests need for transactions.
const DefaultTestMongoURI = "mongodb://localhost:27017/?replicaSet=rs0&directConnection=true"

var (
	clientOnce sync.Once
	client     *mongo.Client
	clientErr  error
	replicaSet bool
)

func sharedClient() (*mongo.Client, error) {
	clientOnce.Do(func() {
		uri := os.Getenv("FUNDHUB_TEST_MONGO_URI")
		if uri == "" {
			uri = DefaultTestMongoURI
		}

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		c, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(2*time.Second))
		if err != nil {
			clientErr = err
			return
		}
		if err := c.Ping(ctx, readpref.Primary()); err != nil {
			_ = c.Disconnect(context.Background())
			clientErr = err
			return
		}

		var hello bson.M
		if err := c.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err == nil {
			_, replicaSet = hello["setName"]
		}
		client = c
	})
	return client, clientErr
}

// SetupTestDB returns a fresh, uniquely named database and drops it when the
// test finishes. The test is skipped when MongoDB is not reachable.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	c, err := sharedClient()
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	name := fmt.Sprintf("fundhub_test_%s_%d", sanitizeDBName(t.Name()), time.Now().UnixNano())
	if len(name) > 60 {
		name = fmt.Sprintf("fundhub_test_%d", time.Now().UnixNano())
	}
	db := c.Database(name)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
	})
	return db
}

// SetupTxnDB is SetupTestDB for tests that need multi-document
// transactions. The test is skipped unless the server is a replica set member.
func SetupTxnDB(t *testing.T) *mongo.Database {
	t.Helper()
	db := SetupTestDB(t)
	if !replicaSet {
		t.Skip("MongoDB is not a replica set; transactions unavailable")
	}
	return db
}

// TestContext returns a context with a timeout suitable for database tests.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func sanitizeDBName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
}
