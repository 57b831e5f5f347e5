// internal/app/store/orgunits/orgunitstore.go
package orgunitstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/assesshub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrCohortParentKind is returned when a cohort names a parent that is not
// a site. A cohort's parent, if set, must be a site.
var ErrCohortParentKind = errors.New("cohort parent must be a site")

// Store provides access to the four organizational-unit collections and
// maintains the denormalized child-id lists that form the containment
// adjacency index.
type Store struct {
	sites   *mongo.Collection
	schools *mongo.Collection
	classes *mongo.Collection
	cohorts *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		sites:   db.Collection("sites"),
		schools: db.Collection("schools"),
		classes: db.Collection("classes"),
		cohorts: db.Collection("cohorts"),
	}
}

func (s *Store) coll(kind models.UnitKind) *mongo.Collection {
	switch kind {
	case models.KindSite:
		return s.sites
	case models.KindSchool:
		return s.schools
	case models.KindClass:
		return s.classes
	case models.KindCohort:
		return s.cohorts
	}
	return nil
}

// UpsertSite inserts or replaces a site. If ID is zero a new ObjectID is
// assigned. Child-id lists are owned by attach/detach operations and are
// preserved on replace.
func (s *Store) UpsertSite(ctx context.Context, site models.Site) (models.Site, error) {
	now := time.Now().UTC()
	site.NameCI = text.Fold(site.Name)
	site.UpdatedAt = now

	if site.ID.IsZero() {
		site.ID = primitive.NewObjectID()
		site.CreatedAt = now
		_, err := s.sites.InsertOne(ctx, site)
		return site, err
	}

	// Keep existing child lists and created_at; callers only edit scalars.
	update := bson.M{"$set": bson.M{
		"name":       site.Name,
		"name_ci":    site.NameCI,
		"tags":       site.Tags,
		"updated_at": now,
	}, "$setOnInsert": bson.M{
		"school_ids": []primitive.ObjectID{},
		"class_ids":  []primitive.ObjectID{},
		"cohort_ids": []primitive.ObjectID{},
		"created_at": now,
	}}
	_, err := s.sites.UpdateOne(ctx, bson.M{"_id": site.ID}, update, options.Update().SetUpsert(true))
	return site, err
}

// UpsertSchool inserts or updates a school and registers it in its site's
// school_ids list.
func (s *Store) UpsertSchool(ctx context.Context, school models.School) (models.School, error) {
	now := time.Now().UTC()
	school.NameCI = text.Fold(school.Name)
	school.UpdatedAt = now

	if school.ID.IsZero() {
		school.ID = primitive.NewObjectID()
		school.CreatedAt = now
		if _, err := s.schools.InsertOne(ctx, school); err != nil {
			return school, err
		}
	} else {
		update := bson.M{"$set": bson.M{
			"name":       school.Name,
			"name_ci":    school.NameCI,
			"site_id":    school.SiteID,
			"updated_at": now,
		}, "$setOnInsert": bson.M{
			"class_ids":  []primitive.ObjectID{},
			"created_at": now,
		}}
		if _, err := s.schools.UpdateOne(ctx, bson.M{"_id": school.ID}, update, options.Update().SetUpsert(true)); err != nil {
			return school, err
		}
	}

	_, err := s.sites.UpdateOne(ctx,
		bson.M{"_id": school.SiteID},
		bson.M{"$addToSet": bson.M{"school_ids": school.ID}})
	return school, err
}

// UpsertClass inserts or updates a class and registers it on its parent:
// the school's class_ids when a school is set, otherwise the site's.
func (s *Store) UpsertClass(ctx context.Context, class models.Class) (models.Class, error) {
	now := time.Now().UTC()
	class.NameCI = text.Fold(class.Name)
	class.UpdatedAt = now

	if class.ID.IsZero() {
		class.ID = primitive.NewObjectID()
		class.CreatedAt = now
		if _, err := s.classes.InsertOne(ctx, class); err != nil {
			return class, err
		}
	} else {
		update := bson.M{"$set": bson.M{
			"name":       class.Name,
			"name_ci":    class.NameCI,
			"site_id":    class.SiteID,
			"school_id":  class.SchoolID,
			"updated_at": now,
		}, "$setOnInsert": bson.M{"created_at": now}}
		if _, err := s.classes.UpdateOne(ctx, bson.M{"_id": class.ID}, update, options.Update().SetUpsert(true)); err != nil {
			return class, err
		}
	}

	if class.SchoolID != nil {
		_, err := s.schools.UpdateOne(ctx,
			bson.M{"_id": *class.SchoolID},
			bson.M{"$addToSet": bson.M{"class_ids": class.ID}})
		return class, err
	}
	_, err := s.sites.UpdateOne(ctx,
		bson.M{"_id": class.SiteID},
		bson.M{"$addToSet": bson.M{"class_ids": class.ID}})
	return class, err
}

// UpsertCohort inserts or updates a cohort. The parent, when present, must
// be a site; the site's cohort_ids list is maintained.
func (s *Store) UpsertCohort(ctx context.Context, cohort models.Cohort) (models.Cohort, error) {
	now := time.Now().UTC()
	cohort.NameCI = text.Fold(cohort.Name)
	cohort.UpdatedAt = now

	if cohort.SiteID != nil {
		n, err := s.sites.CountDocuments(ctx, bson.M{"_id": *cohort.SiteID})
		if err != nil {
			return cohort, err
		}
		if n == 0 {
			return cohort, ErrCohortParentKind
		}
	}

	if cohort.ID.IsZero() {
		cohort.ID = primitive.NewObjectID()
		cohort.CreatedAt = now
		if _, err := s.cohorts.InsertOne(ctx, cohort); err != nil {
			return cohort, err
		}
	} else {
		update := bson.M{"$set": bson.M{
			"name":       cohort.Name,
			"name_ci":    cohort.NameCI,
			"site_id":    cohort.SiteID,
			"updated_at": now,
		}, "$setOnInsert": bson.M{"created_at": now}}
		if _, err := s.cohorts.UpdateOne(ctx, bson.M{"_id": cohort.ID}, update, options.Update().SetUpsert(true)); err != nil {
			return cohort, err
		}
	}

	if cohort.SiteID != nil {
		_, err := s.sites.UpdateOne(ctx,
			bson.M{"_id": *cohort.SiteID},
			bson.M{"$addToSet": bson.M{"cohort_ids": cohort.ID}})
		return cohort, err
	}
	return cohort, nil
}

// GetSite returns a site by id.
func (s *Store) GetSite(ctx context.Context, id primitive.ObjectID) (models.Site, error) {
	var site models.Site
	err := s.sites.FindOne(ctx, bson.M{"_id": id}).Decode(&site)
	return site, err
}

// GetSchool returns a school by id.
func (s *Store) GetSchool(ctx context.Context, id primitive.ObjectID) (models.School, error) {
	var school models.School
	err := s.schools.FindOne(ctx, bson.M{"_id": id}).Decode(&school)
	return school, err
}

// GetClass returns a class by id.
func (s *Store) GetClass(ctx context.Context, id primitive.ObjectID) (models.Class, error) {
	var class models.Class
	err := s.classes.FindOne(ctx, bson.M{"_id": id}).Decode(&class)
	return class, err
}

// GetCohort returns a cohort by id.
func (s *Store) GetCohort(ctx context.Context, id primitive.ObjectID) (models.Cohort, error) {
	var cohort models.Cohort
	err := s.cohorts.FindOne(ctx, bson.M{"_id": id}).Decode(&cohort)
	return cohort, err
}

// Exists reports whether a unit of the given kind exists.
func (s *Store) Exists(ctx context.Context, kind models.UnitKind, id primitive.ObjectID) (bool, error) {
	n, err := s.coll(kind).CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes a unit document and detaches it from its parent's child
// list. Stripping the unit from administration target sets (and the
// resulting assignment cleanup) is the caller's responsibility, via the
// sync engine.
func (s *Store) Delete(ctx context.Context, kind models.UnitKind, id primitive.ObjectID) error {
	switch kind {
	case models.KindSite:
		_, err := s.sites.DeleteOne(ctx, bson.M{"_id": id})
		return err
	case models.KindSchool:
		if _, err := s.sites.UpdateMany(ctx,
			bson.M{"school_ids": id},
			bson.M{"$pull": bson.M{"school_ids": id}}); err != nil {
			return err
		}
		_, err := s.schools.DeleteOne(ctx, bson.M{"_id": id})
		return err
	case models.KindClass:
		if _, err := s.sites.UpdateMany(ctx,
			bson.M{"class_ids": id},
			bson.M{"$pull": bson.M{"class_ids": id}}); err != nil {
			return err
		}
		if _, err := s.schools.UpdateMany(ctx,
			bson.M{"class_ids": id},
			bson.M{"$pull": bson.M{"class_ids": id}}); err != nil {
			return err
		}
		_, err := s.classes.DeleteOne(ctx, bson.M{"_id": id})
		return err
	case models.KindCohort:
		if _, err := s.sites.UpdateMany(ctx,
			bson.M{"cohort_ids": id},
			bson.M{"$pull": bson.M{"cohort_ids": id}}); err != nil {
			return err
		}
		_, err := s.cohorts.DeleteOne(ctx, bson.M{"_id": id})
		return err
	}
	return nil
}
