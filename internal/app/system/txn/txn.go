// internal/app/system/txn/txn.go

// Package txn wraps multi-document MongoDB transactions.
//
// Transactions require a replica set (or mongos). Development often runs a
// standalone mongod, so Run falls back to executing the callback without a
// transaction when the server reports transactions as unsupported. Callers
// must therefore keep their callbacks safe to apply non-atomically in dev.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn inside a multi-document transaction on db's client.
//
// The context passed to fn is a session context; all collection operations
// inside fn must use it for their reads/writes to join the transaction. If
// the server does not support transactions, fn is re-run once outside a
// transaction (the aborted attempt left no writes behind).
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			log.Debug("mongo sessions unavailable; running without transaction")
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		log.Debug("mongo transactions unavailable; running without transaction")
		return fn(ctx)
	}
	return err
}

// Server error codes that indicate transactions are not available on this
// deployment (standalone server, or an operation illegal in a transaction).
var notSupportedCodes = map[int32]bool{
	20:  true, // IllegalOperation (e.g. "Transaction numbers are only allowed on a replica set member")
	51:  true, // no such command / illegal operation variants on older servers
	263: true, // OperationNotSupportedInTransaction
}

// IsNotSupported reports whether err indicates the server cannot run
// multi-document transactions. It matches both structured command errors and
// the loose error strings some driver paths produce.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return notSupportedCodes[cmdErr.Code]
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "illegal operation") {
		return true
	}
	if strings.Contains(msg, "transaction") &&
		(strings.Contains(msg, "replica set") || strings.Contains(msg, "session")) {
		return true
	}
	if strings.Contains(msg, "session") && strings.Contains(msg, "not supported") {
		return true
	}
	return false
}
