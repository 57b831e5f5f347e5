// internal/app/store/administrations/administrationstore.go
package administrationstore

import (
	"context"
	"time"

	"github.com/dalemusser/assesshub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c     *mongo.Collection
	users *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:     db.Collection("administrations"),
		users: db.Collection("users"),
	}
}

// Create inserts a new administration and records it in the creator's
// created index. If ID is zero a new ObjectID is assigned.
func (s *Store) Create(ctx context.Context, a models.Administration) (models.Administration, error) {
	now := time.Now().UTC()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.NameCI = text.Fold(a.Name)
	a.CreatedAt = now
	a.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return a, err
	}
	_, err := s.users.UpdateOne(ctx,
		bson.M{"_id": a.CreatedBy},
		bson.M{"$addToSet": bson.M{"administrations_created": a.ID}})
	return a, err
}

// GetByID returns a single administration by its _id.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Administration, error) {
	var a models.Administration
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	return a, err
}

// Update replaces the definition fields of an existing administration.
// Stats are excluded: they move only by atomic increments.
func (s *Store) Update(ctx context.Context, a models.Administration) (models.Administration, error) {
	if a.ID.IsZero() {
		return a, mongo.ErrNilDocument
	}
	now := time.Now().UTC()
	a.NameCI = text.Fold(a.Name)
	a.UpdatedAt = now

	_, err := s.c.UpdateOne(ctx, bson.M{"_id": a.ID}, bson.M{"$set": bson.M{
		"name":         a.Name,
		"name_ci":      a.NameCI,
		"assessments":  a.Assessments,
		"date_opened":  a.DateOpened,
		"date_closed":  a.DateClosed,
		"minimal_orgs": a.MinimalOrgs,
		"orgs":         a.Orgs,
		"site_id":      a.SiteID,
		"sequential":   a.Sequential,
		"tags":         a.Tags,
		"legal":        a.Legal,
		"updated_at":   now,
	}})
	return a, err
}

// Delete removes the administration document. Assignment cleanup is the
// sync engine's job.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// List returns administrations, newest first.
func (s *Store) List(ctx context.Context) ([]models.Administration, error) {
	cur, err := s.c.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Administration
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByCreator returns administrations created by one user, newest first.
func (s *Store) ListByCreator(ctx context.Context, userID primitive.ObjectID) ([]models.Administration, error) {
	cur, err := s.c.Find(ctx, bson.M{"created_by": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Administration
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByOrg returns every administration whose standardized target set
// contains the given unit. Used by the cascading org-unit delete.
func (s *Store) ListByOrg(ctx context.Context, kind models.UnitKind, id primitive.ObjectID) ([]models.Administration, error) {
	cur, err := s.c.Find(ctx, bson.M{orgField(kind): id})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Administration
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PullOrg strips a deleted unit's id from every administration's target
// sets, both minimal and standardized.
func (s *Store) PullOrg(ctx context.Context, kind models.UnitKind, id primitive.ObjectID) (int64, error) {
	field := orgField(kind)
	minField := "minimal_" + field
	res, err := s.c.UpdateMany(ctx,
		bson.M{field: id},
		bson.M{"$pull": bson.M{field: id, minField: id}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func orgField(kind models.UnitKind) string {
	switch kind {
	case models.KindSite:
		return "orgs.site_ids"
	case models.KindSchool:
		return "orgs.school_ids"
	case models.KindClass:
		return "orgs.class_ids"
	case models.KindCohort:
		return "orgs.cohort_ids"
	}
	return ""
}
