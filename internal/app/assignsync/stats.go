// internal/app/assignsync/stats.go
package assignsync

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Stats maintains the denormalized per-administration counters.
//
// Counters move only by atomic increments keyed to the chunk that earned
// them — never by recounting assignment documents, which would scan the
// whole fan-out on every sync. Negative deltas are the rollback
// coordinator's compensation path.
type Stats struct {
	c   *mongo.Collection
	log *zap.Logger
}

// NewStats constructs a Stats over the administrations collection.
func NewStats(db *mongo.Database, logger *zap.Logger) *Stats {
	return &Stats{c: db.Collection("administrations"), log: logger}
}

// IncrementAssigned applies a single atomic delta to the administration's
// assigned counter. A missing administration document (already deleted)
// matches nothing and is not an error.
func (s *Stats) IncrementAssigned(ctx context.Context, adminID primitive.ObjectID, delta int64) error {
	if delta == 0 {
		return nil
	}
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": adminID},
		bson.M{"$inc": bson.M{"stats.assigned": delta}})
	return err
}
