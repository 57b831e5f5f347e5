// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/assesshub/internal/app/assignsync"
	"github.com/dalemusser/assesshub/internal/app/system/indexes"
	"github.com/dalemusser/assesshub/internal/app/system/timeouts"
	"github.com/dalemusser/assesshub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectDB establishes the MongoDB connection and builds the sync engine
// and background workers on top of it.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(appCfg.MongoDatabase)

	engine := assignsync.New(db, logger, assignsync.Config{
		OrgChunkSize:       appCfg.OrgChunkSize,
		WriteBatchSize:     appCfg.WriteBatchSize,
		IndexCap:           appCfg.IndexCap,
		FullUpdateRollback: appCfg.FullUpdateRollback,
	})

	deps := DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		Engine:        engine,
		StateCleanup:  workers.NewOAuthStateCleanup(db, logger),
	}
	if appCfg.WatchChanges {
		deps.Watcher = workers.NewChangeWatcher(db, engine, logger)
	}

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Bool("watch_changes", appCfg.WatchChanges))

	return deps, nil
}

// EnsureSchema reconciles indexes and enables change-stream pre-images on the
// collections the watcher observes.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	if appCfg.WatchChanges {
		// The user change handler needs the pre-image to diff memberships.
		for _, coll := range []string{"administrations", "users"} {
			if err := enablePreImages(ctx, deps.MongoDatabase, coll); err != nil {
				return fmt.Errorf("enable pre-images on %s: %w", coll, err)
			}
		}
	}

	return nil
}

// enablePreImages turns on changeStreamPreAndPostImages for a collection,
// creating it first if it does not exist yet.
func enablePreImages(ctx context.Context, db *mongo.Database, coll string) error {
	if err := db.CreateCollection(ctx, coll); err != nil {
		var cmdErr mongo.CommandError
		// NamespaceExists (48) means the collection is already there.
		if !(errors.As(err, &cmdErr) && cmdErr.Code == 48) {
			return err
		}
	}

	cmd := bson.D{
		{Key: "collMod", Value: coll},
		{Key: "changeStreamPreAndPostImages", Value: bson.D{{Key: "enabled", Value: true}}},
	}
	return db.RunCommand(ctx, cmd).Err()
}
