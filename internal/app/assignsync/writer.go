// internal/app/assignsync/writer.go
package assignsync

import (
	"context"
	"time"

	"github.com/dalemusser/assesshub/internal/app/system/txn"
	"github.com/dalemusser/assesshub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Mode selects what ApplyChunk does to each affected user's assignment.
type Mode int

const (
	// ModeAdd creates the assignment document if absent; an existing one is
	// left untouched.
	ModeAdd Mode = iota
	// ModeUpdate merges the administration's current content into existing
	// assignments without touching per-user progress fields.
	ModeUpdate
	// ModeRemove deletes the assignment and strips the administration id
	// from the user's assigned index. Tolerant of already-absent records.
	ModeRemove
)

func (m Mode) String() string {
	switch m {
	case ModeAdd:
		return "add"
	case ModeUpdate:
		return "update"
	case ModeRemove:
		return "remove"
	}
	return "unknown"
}

// ChunkResult reports what one ApplyChunk call committed. On failure the
// writer still returns everything committed by earlier sub-chunks, so the
// rollback coordinator never loses track of applied work.
type ChunkResult struct {
	// UserIDs are all users whose writes committed.
	UserIDs []primitive.ObjectID
	// CreatedUserIDs are the users whose assignment document was newly
	// created by this call (subset of UserIDs; Add mode only). Rollback
	// compensates exactly these, leaving pre-existing assignments alone.
	CreatedUserIDs []primitive.ObjectID
	// Assigned is the number of newly created assignments, i.e. the delta
	// applied to the administration's assigned counter.
	Assigned int64
	// Removed is the number of assignments deleted (Remove mode).
	Removed int64
	// SkippedOverCap counts users skipped because their assigned index
	// reached the configured cap.
	SkippedOverCap int
}

func (r *ChunkResult) merge(other ChunkResult) {
	r.UserIDs = append(r.UserIDs, other.UserIDs...)
	r.CreatedUserIDs = append(r.CreatedUserIDs, other.CreatedUserIDs...)
	r.Assigned += other.Assigned
	r.Removed += other.Removed
	r.SkippedOverCap += other.SkippedOverCap
}

// SplitTargets partitions a target set into chunks of at most size units
// each, preserving kind. This bounds the read cost of each chunk's user
// resolution before the per-user write batching kicks in.
func SplitTargets(orgs models.OrgRefs, size int) []models.OrgRefs {
	if size <= 0 {
		size = 100
	}
	var chunks []models.OrgRefs
	var cur models.OrgRefs
	n := 0
	for _, kind := range models.UnitKinds {
		for _, id := range orgs.Of(kind) {
			cur.Add(kind, id)
			n++
			if n == size {
				chunks = append(chunks, cur)
				cur = models.OrgRefs{}
				n = 0
			}
		}
	}
	if n > 0 {
		chunks = append(chunks, cur)
	}
	return chunks
}

// Writer applies one closure chunk's assignment mutations to the store.
//
// Each sub-chunk of users is committed as its own transaction, bounded by
// batchSize write operations; cross-sub-chunk atomicity is given up by
// necessity and compensated by the rollback coordinator.
type Writer struct {
	db       *mongo.Database
	log      *zap.Logger
	resolver *Resolver
	stats    *Stats

	batchSize int // max write operations per transaction
	indexCap  int // max entries in a user's assigned index; 0 disables
}

// NewWriter constructs a Writer. batchSize caps write operations per
// transaction (500 if non-positive); indexCap bounds the per-user assigned
// index (0 disables the check).
func NewWriter(db *mongo.Database, logger *zap.Logger, resolver *Resolver, stats *Stats, batchSize, indexCap int) *Writer {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Writer{
		db:        db,
		log:       logger,
		resolver:  resolver,
		stats:     stats,
		batchSize: batchSize,
		indexCap:  indexCap,
	}
}

// ApplyChunk resolves the chunk's member users and applies mode to each.
//
// Remove includes archived users (stale assignments must still be cleaned
// up); Add and Update do not. Every write is idempotent, so re-applying the
// same chunk — by either the synchronous or the change-triggered path — is
// safe and does not double-count stats.
func (w *Writer) ApplyChunk(ctx context.Context, chunk models.OrgRefs, admin models.Administration, mode Mode) (ChunkResult, error) {
	var result ChunkResult

	includeArchived := mode == ModeRemove
	userIDs, err := w.resolver.UsersOf(ctx, chunk, includeArchived)
	if err != nil {
		return result, err
	}

	if mode == ModeAdd && w.indexCap > 0 {
		userIDs, result.SkippedOverCap, err = w.dropOverCap(ctx, userIDs, admin.ID)
		if err != nil {
			return result, err
		}
	}
	if len(userIDs) == 0 {
		return result, nil
	}

	// Add and Remove issue two operations per user (assignment + index);
	// Update touches only the assignment document.
	opsPerUser := 2
	if mode == ModeUpdate {
		opsPerUser = 1
	}
	perBatch := w.batchSize / opsPerUser
	if perBatch < 1 {
		perBatch = 1
	}

	for start := 0; start < len(userIDs); start += perBatch {
		end := start + perBatch
		if end > len(userIDs) {
			end = len(userIDs)
		}
		sub := userIDs[start:end]

		var subRes ChunkResult
		err := txn.Run(ctx, w.db, w.log, func(ctx context.Context) error {
			var err error
			switch mode {
			case ModeAdd:
				subRes, err = w.applyAdd(ctx, sub, admin)
			case ModeUpdate:
				subRes, err = w.applyUpdate(ctx, sub, admin)
			case ModeRemove:
				subRes, err = w.applyRemove(ctx, sub, admin)
			}
			return err
		})
		if err != nil {
			w.log.Error("assignment sub-chunk failed",
				zap.String("administration", admin.ID.Hex()),
				zap.String("mode", mode.String()),
				zap.Int("sub_chunk_users", len(sub)),
				zap.Int("committed_users", len(result.UserIDs)),
				zap.Error(err))
			return result, err
		}
		result.merge(subRes)
	}

	return result, nil
}

// dropOverCap filters out users whose assigned index is already at the cap,
// unless they already hold this administration (re-application must stay
// idempotent). Skipped users are logged, not fatal.
func (w *Writer) dropOverCap(ctx context.Context, userIDs []primitive.ObjectID, adminID primitive.ObjectID) ([]primitive.ObjectID, int, error) {
	if len(userIDs) == 0 {
		return userIDs, 0, nil
	}
	cur, err := w.db.Collection("users").Find(ctx, bson.M{
		"_id":             bson.M{"$in": userIDs},
		"administrations": bson.M{"$ne": adminID},
		"$expr":           bson.M{"$gte": bson.A{bson.M{"$size": bson.M{"$ifNull": bson.A{"$administrations", bson.A{}}}}, w.indexCap}},
	}, findIDsOnly())
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	over := make(map[primitive.ObjectID]struct{})
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, 0, err
		}
		over[row.ID] = struct{}{}
	}
	if err := cur.Err(); err != nil {
		return nil, 0, err
	}
	if len(over) == 0 {
		return userIDs, 0, nil
	}

	kept := userIDs[:0]
	for _, id := range userIDs {
		if _, skip := over[id]; skip {
			w.log.Warn("assigned index at cap; skipping user",
				zap.String("user", id.Hex()),
				zap.String("administration", adminID.Hex()),
				zap.Int("cap", w.indexCap))
			continue
		}
		kept = append(kept, id)
	}
	return kept, len(over), nil
}

func (w *Writer) applyAdd(ctx context.Context, userIDs []primitive.ObjectID, admin models.Administration) (ChunkResult, error) {
	var res ChunkResult
	now := time.Now().UTC()

	assignOps := make([]mongo.WriteModel, 0, len(userIDs))
	userOps := make([]mongo.WriteModel, 0, len(userIDs))
	for _, uid := range userIDs {
		assignOps = append(assignOps, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"user_id": uid, "administration_id": admin.ID}).
			SetUpdate(bson.M{"$setOnInsert": bson.M{
				"user_id":           uid,
				"administration_id": admin.ID,
				"assessments":       admin.Assessments,
				"sequential":        admin.Sequential,
				"date_opened":       admin.DateOpened,
				"date_closed":       admin.DateClosed,
				"started":           false,
				"completed":         false,
				"date_assigned":     now,
				"created_at":        now,
				"updated_at":        now,
			}}).
			SetUpsert(true))
		userOps = append(userOps, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": uid}).
			SetUpdate(bson.M{"$addToSet": bson.M{"administrations": admin.ID}}))
	}

	bulkRes, err := w.db.Collection("assignments").
		BulkWrite(ctx, assignOps, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return res, err
	}
	if _, err := w.db.Collection("users").
		BulkWrite(ctx, userOps, options.BulkWrite().SetOrdered(false)); err != nil {
		return res, err
	}

	// UpsertedIDs is keyed by operation index, which maps 1:1 onto userIDs.
	// Only newly created assignments count toward the assigned counter, so a
	// repeat application of the same chunk increments by zero.
	for idx := range bulkRes.UpsertedIDs {
		if idx >= 0 && int(idx) < len(userIDs) {
			res.CreatedUserIDs = append(res.CreatedUserIDs, userIDs[idx])
		}
	}
	res.UserIDs = append(res.UserIDs, userIDs...)
	res.Assigned = int64(len(res.CreatedUserIDs))

	if res.Assigned > 0 {
		if err := w.stats.IncrementAssigned(ctx, admin.ID, res.Assigned); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (w *Writer) applyUpdate(ctx context.Context, userIDs []primitive.ObjectID, admin models.Administration) (ChunkResult, error) {
	var res ChunkResult
	now := time.Now().UTC()

	ops := make([]mongo.WriteModel, 0, len(userIDs))
	for _, uid := range userIDs {
		// Content fields only; started/completed/progress stay untouched.
		ops = append(ops, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"user_id": uid, "administration_id": admin.ID}).
			SetUpdate(bson.M{"$set": bson.M{
				"assessments": admin.Assessments,
				"sequential":  admin.Sequential,
				"date_opened": admin.DateOpened,
				"date_closed": admin.DateClosed,
				"updated_at":  now,
			}}))
	}

	if _, err := w.db.Collection("assignments").
		BulkWrite(ctx, ops, options.BulkWrite().SetOrdered(false)); err != nil {
		return res, err
	}
	res.UserIDs = append(res.UserIDs, userIDs...)
	return res, nil
}

func (w *Writer) applyRemove(ctx context.Context, userIDs []primitive.ObjectID, admin models.Administration) (ChunkResult, error) {
	var res ChunkResult

	assignOps := make([]mongo.WriteModel, 0, len(userIDs))
	userOps := make([]mongo.WriteModel, 0, len(userIDs))
	for _, uid := range userIDs {
		assignOps = append(assignOps, mongo.NewDeleteOneModel().
			SetFilter(bson.M{"user_id": uid, "administration_id": admin.ID}))
		userOps = append(userOps, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": uid}).
			SetUpdate(bson.M{"$pull": bson.M{"administrations": admin.ID}}))
	}

	bulkRes, err := w.db.Collection("assignments").
		BulkWrite(ctx, assignOps, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return res, err
	}
	if _, err := w.db.Collection("users").
		BulkWrite(ctx, userOps, options.BulkWrite().SetOrdered(false)); err != nil {
		return res, err
	}

	res.UserIDs = append(res.UserIDs, userIDs...)
	res.Removed = bulkRes.DeletedCount

	// DeletedCount is zero on a repeat application, so the counter is never
	// double-decremented.
	if res.Removed > 0 {
		if err := w.stats.IncrementAssigned(ctx, admin.ID, -res.Removed); err != nil {
			return res, err
		}
	}
	return res, nil
}
