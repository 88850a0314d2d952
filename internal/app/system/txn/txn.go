// internal/app/system/txn/txn.go
package txn

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/fundhub/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

// codeWriteConflict is the server code for a write conflict between
// concurrent transactions.
const codeWriteConflict = 112

// Run executes fn inside a multi-document transaction.
//
// The driver re-runs fn from the start when the server labels a failure
// TransientTransactionError and retries the commit on
// UnknownTransactionCommitResult, so fn must not have side effects outside
// the database. All reads and writes inside fn must use the ctx it receives.
//
// Errors returned by fn are passed through unchanged. Conflicts that survive
// the driver's retries, and deployments that cannot run transactions, are
// reported as *apperr.ConflictError. There is no non-transactional fallback.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		return classify(log, err)
	}
	defer sess.EndSession(ctx)

	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, opts)
	if err != nil {
		return classify(log, err)
	}
	return nil
}

func classify(log *zap.Logger, err error) error {
	if isAppError(err) {
		return err
	}
	if IsNotSupported(err) {
		log.Error("transactions are not supported by this deployment; a replica set is required", zap.Error(err))
		return apperr.Conflict("transactions unavailable", err)
	}
	if IsConflict(err) {
		log.Warn("transaction conflict persisted after retries", zap.Error(err))
		return apperr.Conflict("concurrent update, try again", err)
	}
	return err
}

func isAppError(err error) bool {
	return apperr.IsValidation(err) || apperr.IsNotFound(err) || apperr.IsConflict(err) ||
		apperr.IsForbidden(err) || apperr.IsExternal(err)
}

// IsConflict reports whether err is a transaction conflict the driver gave
// up retrying.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorLabel("TransientTransactionError") ||
			se.HasErrorLabel("UnknownTransactionCommitResult") ||
			se.HasErrorCode(codeWriteConflict) {
			return true
		}
	}
	return false
}

// IsNotSupported reports whether err indicates that the server cannot run
// transactions (a standalone mongod, for instance).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, // IllegalOperation: transaction numbers only allowed on replica sets
			51,  // legacy IllegalOperation
			263: // OperationNotSupportedInTransaction
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	mentionsTxn := strings.Contains(msg, "transaction") || strings.Contains(msg, "session")
	if !mentionsTxn {
		return false
	}
	return strings.Contains(msg, "replica set") ||
		strings.Contains(msg, "not supported") ||
		strings.Contains(msg, "illegal operation") ||
		(strings.Contains(msg, "transaction") && strings.Contains(msg, "session"))
}
