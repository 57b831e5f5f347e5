// internal/app/assignsync/rollback.go
package assignsync

import (
	"context"

	"github.com/dalemusser/assesshub/internal/app/system/timeouts"
	"github.com/dalemusser/assesshub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Coordinator tracks every user successfully mutated across the chunks of
// one logical sync operation so that a later chunk failure can be unwound.
//
// All bookkeeping lives here on the call stack for the duration of one
// operation; nothing is persisted. Chunks are recorded sequentially by the
// engine, which is what keeps the accumulation trivially safe — parallel
// chunk application would need the results merged under a single
// accumulator first.
type Coordinator struct {
	db    *mongo.Database
	log   *zap.Logger
	stats *Stats

	opID      string
	admin     models.Administration
	isNew     bool
	batchSize int

	chunks []ChunkResult
}

// NewCoordinator begins bookkeeping for one logical create/update of admin.
// isNew marks a brand-new administration, whose record itself must be torn
// down if any chunk fails: an administration must never survive a failed
// creation with zero or partial assignments.
func NewCoordinator(db *mongo.Database, logger *zap.Logger, stats *Stats, admin models.Administration, isNew bool, batchSize int) *Coordinator {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Coordinator{
		db:        db,
		log:       logger,
		stats:     stats,
		opID:      uuid.NewString(),
		admin:     admin,
		isNew:     isNew,
		batchSize: batchSize,
	}
}

// OpID returns the correlation id for this operation's log lines.
func (c *Coordinator) OpID() string { return c.opID }

// Record accumulates one chunk's result. Partial results from a failed
// chunk must be recorded too — the writer returns whatever committed before
// the failure, and those users need compensation like any other.
func (c *Coordinator) Record(res ChunkResult) {
	c.chunks = append(c.chunks, res)
}

// Rollback reverses every recorded chunk: the assignment documents created
// by this operation are deleted, the administration id is stripped from the
// affected users' assigned index, and each chunk's stats increment is
// reversed with the same atomic primitive that applied it.
//
// For a brand-new administration it then deletes the administration record
// and removes its id from the creator's created index. Compensation runs on
// a fresh context so a canceled request cannot abandon it, and its own
// failures are logged — never returned — so the original chunk error is
// always what reaches the caller.
func (c *Coordinator) Rollback(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), timeouts.Batch())
	defer cancel()

	var created []primitive.ObjectID
	var assigned int64
	for _, ch := range c.chunks {
		created = append(created, ch.CreatedUserIDs...)
		assigned += ch.Assigned
	}

	c.log.Warn("rolling back assignment sync",
		zap.String("op", c.opID),
		zap.String("administration", c.admin.ID.Hex()),
		zap.Bool("new_administration", c.isNew),
		zap.Int("chunks", len(c.chunks)),
		zap.Int("created_users", len(created)))

	// Each compensating batch pairs one DeleteMany with one UpdateMany, so
	// the user-id window is half the operation budget.
	perBatch := c.batchSize / 2
	if perBatch < 1 {
		perBatch = 1
	}
	for start := 0; start < len(created); start += perBatch {
		end := start + perBatch
		if end > len(created) {
			end = len(created)
		}
		batch := created[start:end]

		if _, err := c.db.Collection("assignments").DeleteMany(ctx, bson.M{
			"administration_id": c.admin.ID,
			"user_id":           bson.M{"$in": batch},
		}); err != nil {
			c.log.Error("rollback: assignment delete batch failed",
				zap.String("op", c.opID), zap.Int("batch_users", len(batch)), zap.Error(err))
		}
		if _, err := c.db.Collection("users").UpdateMany(ctx,
			bson.M{"_id": bson.M{"$in": batch}},
			bson.M{"$pull": bson.M{"administrations": c.admin.ID}}); err != nil {
			c.log.Error("rollback: user index strip batch failed",
				zap.String("op", c.opID), zap.Int("batch_users", len(batch)), zap.Error(err))
		}
	}

	// Reverse the increments chunk by chunk, mirroring how they were earned.
	for _, ch := range c.chunks {
		if ch.Assigned == 0 {
			continue
		}
		if err := c.stats.IncrementAssigned(ctx, c.admin.ID, -ch.Assigned); err != nil {
			c.log.Error("rollback: stats decrement failed",
				zap.String("op", c.opID), zap.Int64("delta", -ch.Assigned), zap.Error(err))
		}
	}

	if !c.isNew {
		return
	}

	if _, err := c.db.Collection("administrations").DeleteOne(ctx, bson.M{"_id": c.admin.ID}); err != nil {
		c.log.Error("rollback: administration delete failed",
			zap.String("op", c.opID), zap.Error(err))
	}
	if _, err := c.db.Collection("users").UpdateOne(ctx,
		bson.M{"_id": c.admin.CreatedBy},
		bson.M{"$pull": bson.M{"administrations_created": c.admin.ID}}); err != nil {
		c.log.Error("rollback: creator index strip failed",
			zap.String("op", c.opID), zap.Error(err))
	}
}
