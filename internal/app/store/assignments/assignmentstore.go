package assignmentstore

import (
	"context"
	"time"

	"github.com/dalemusser/assesshub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c               *mongo.Collection
	administrations *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:               db.Collection("assignments"),
		administrations: db.Collection("administrations"),
	}
}

// Get returns the assignment for one user in one administration.
// Returns mongo.ErrNoDocuments when the user is not assigned.
func (s *Store) Get(ctx context.Context, userID, administrationID primitive.ObjectID) (models.Assignment, error) {
	var a models.Assignment
	err := s.c.FindOne(ctx, bson.M{
		"user_id":           userID,
		"administration_id": administrationID,
	}).Decode(&a)
	return a, err
}

// ListByUser returns all assignments held by a user, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Assignment, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "date_assigned", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Assignment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByAdministration returns the assignments for one administration.
func (s *Store) ListByAdministration(ctx context.Context, administrationID primitive.ObjectID) ([]models.Assignment, error) {
	cur, err := s.c.Find(ctx, bson.M{"administration_id": administrationID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Assignment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByAdministration counts assignment documents for one administration.
// This is the ground truth that the administration's stats.assigned counter
// tracks; the two can be compared to detect drift.
func (s *Store) CountByAdministration(ctx context.Context, administrationID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"administration_id": administrationID})
}

// MarkStarted records that the user has begun the administration. The first
// call bumps the administration's stats.started counter; repeat calls are
// no-ops so retried requests cannot double-count.
func (s *Store) MarkStarted(ctx context.Context, userID, administrationID primitive.ObjectID) error {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID, "administration_id": administrationID, "started": false},
		bson.M{"$set": bson.M{"started": true, "updated_at": now}})
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return nil
	}
	_, err = s.administrations.UpdateOne(ctx,
		bson.M{"_id": administrationID},
		bson.M{"$inc": bson.M{"stats.started": 1}})
	return err
}

// MarkCompleted records that the user has finished every assessment in the
// administration. Idempotent in the same way as MarkStarted.
func (s *Store) MarkCompleted(ctx context.Context, userID, administrationID primitive.ObjectID) error {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID, "administration_id": administrationID, "completed": false},
		bson.M{"$set": bson.M{"completed": true, "started": true, "updated_at": now}})
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return nil
	}
	_, err = s.administrations.UpdateOne(ctx,
		bson.M{"_id": administrationID},
		bson.M{"$inc": bson.M{"stats.completed": 1}})
	return err
}

// SetProgress stores the per-assessment progress marker for a user's
// assignment. Status is free-form ("started", "completed", ...).
func (s *Store) SetProgress(ctx context.Context, userID, administrationID primitive.ObjectID, taskID, status string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID, "administration_id": administrationID},
		bson.M{"$set": bson.M{
			"progress." + taskID: status,
			"updated_at":         time.Now().UTC(),
		}})
	return err
}
