// internal/app/system/workers/changewatcher.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/assesshub/internal/app/assignsync"
	"github.com/dalemusser/assesshub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ChangeWatcher tails change streams on the administrations and users
// collections and feeds before/after document pairs to the sync engine.
// This is the second assignment-consistency path: direct writes to either
// collection (imports, console edits) converge to the same assignment state
// as API-driven writes.
//
// Both collections must have changeStreamPreAndPostImages enabled so delete
// and update events carry the prior document.
type ChangeWatcher struct {
	db     *mongo.Database
	engine *assignsync.Engine
	log    *zap.Logger
	stopCh chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewChangeWatcher creates a change watcher over the given database.
func NewChangeWatcher(db *mongo.Database, engine *assignsync.Engine, logger *zap.Logger) *ChangeWatcher {
	return &ChangeWatcher{
		db:     db,
		engine: engine,
		log:    logger,
		stopCh: make(chan struct{}),
	}
}

// Start opens one change stream per watched collection and begins consuming.
func (w *ChangeWatcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	w.wg.Add(2)
	go w.watch(ctx, "administrations", w.handleAdministrationEvent)
	go w.watch(ctx, "users", w.handleUserEvent)

	w.log.Info("change watcher started",
		zap.Strings("collections", []string{"administrations", "users"}))
}

// Stop closes the streams and waits for the consumers to finish.
func (w *ChangeWatcher) Stop() {
	close(w.stopCh)
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.log.Info("change watcher stopped")
}

type changeEvent struct {
	OperationType string   `bson:"operationType"`
	FullDocument  bson.Raw `bson:"fullDocument"`
	BeforeChange  bson.Raw `bson:"fullDocumentBeforeChange"`
}

func (w *ChangeWatcher) watch(ctx context.Context, collection string, handle func(context.Context, changeEvent)) {
	defer w.wg.Done()

	opts := options.ChangeStream().
		SetFullDocument(options.UpdateLookup).
		SetFullDocumentBeforeChange(options.WhenAvailable)

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		stream, err := w.db.Collection(collection).Watch(ctx, mongo.Pipeline{}, opts)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Error("failed to open change stream; retrying",
				zap.String("collection", collection),
				zap.Error(err))
			select {
			case <-w.stopCh:
				return
			case <-time.After(5 * time.Second):
				continue
			}
		}

		w.consume(ctx, collection, stream, handle)
		stream.Close(context.Background())
	}
}

func (w *ChangeWatcher) consume(ctx context.Context, collection string, stream *mongo.ChangeStream, handle func(context.Context, changeEvent)) {
	for stream.Next(ctx) {
		var ev changeEvent
		if err := stream.Decode(&ev); err != nil {
			w.log.Error("failed to decode change event",
				zap.String("collection", collection),
				zap.Error(err))
			continue
		}
		handle(ctx, ev)
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		w.log.Warn("change stream ended; reopening",
			zap.String("collection", collection),
			zap.Error(err))
	}
}

func (w *ChangeWatcher) handleAdministrationEvent(ctx context.Context, ev changeEvent) {
	before := decodeAdministration(w.log, ev.BeforeChange)
	after := decodeAdministration(w.log, ev.FullDocument)
	if before == nil && after == nil {
		return
	}
	if err := w.engine.HandleAdministrationChange(ctx, before, after); err != nil {
		w.log.Error("administration change sync failed",
			zap.String("operation", ev.OperationType),
			zap.Error(err))
	}
}

func (w *ChangeWatcher) handleUserEvent(ctx context.Context, ev changeEvent) {
	before := decodeUser(w.log, ev.BeforeChange)
	after := decodeUser(w.log, ev.FullDocument)
	if before == nil && after == nil {
		return
	}
	if err := w.engine.HandleUserChange(ctx, before, after); err != nil {
		w.log.Error("user change sync failed",
			zap.String("operation", ev.OperationType),
			zap.Error(err))
	}
}

func decodeAdministration(log *zap.Logger, raw bson.Raw) *models.Administration {
	if len(raw) == 0 {
		return nil
	}
	var a models.Administration
	if err := bson.Unmarshal(raw, &a); err != nil {
		log.Error("failed to unmarshal administration document", zap.Error(err))
		return nil
	}
	return &a
}

func decodeUser(log *zap.Logger, raw bson.Raw) *models.User {
	if len(raw) == 0 {
		return nil
	}
	var u models.User
	if err := bson.Unmarshal(raw, &u); err != nil {
		log.Error("failed to unmarshal user document", zap.Error(err))
		return nil
	}
	return &u
}
