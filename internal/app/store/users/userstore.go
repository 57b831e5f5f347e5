package userstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/assesshub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errBadUserType    = errors.New(`user_type must be "student"|"parent"|"teacher"|"admin"|"guest"`)
)

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by normalized email. Returns
// mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalizeEmail(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user after normalizing and validating fields.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.NameCI = text.Fold(u.Name)
	u.Email = normalizeEmail(u.Email)

	switch u.UserType {
	case models.UserTypeStudent, models.UserTypeParent, models.UserTypeTeacher,
		models.UserTypeAdmin, models.UserTypeGuest:
	default:
		return models.User{}, errBadUserType
	}

	if u.Administrations == nil {
		u.Administrations = []primitive.ObjectID{}
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// SetMembership replaces a participant's *current* membership for one unit
// kind and folds the new ids into all-time membership. Assignment sync in
// response to this change is driven by the change watcher, not here.
func (s *Store) SetMembership(ctx context.Context, userID primitive.ObjectID, kind models.UnitKind, ids []primitive.ObjectID) error {
	field := membershipField(kind)
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{"orgs." + field: ids, "updated_at": now},
	}
	if len(ids) > 0 {
		update["$addToSet"] = bson.M{"orgs_all." + field: bson.M{"$each": ids}}
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, update)
	return err
}

// SetArchived flips a user's archived flag. Archived users keep their
// assignments but are skipped by assignment creation.
func (s *Store) SetArchived(ctx context.Context, userID primitive.ObjectID, archived bool) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"archived": archived, "updated_at": time.Now().UTC()}})
	return err
}

// PullMembership strips a deleted org unit from every user's current
// membership. All-time membership is left intact.
func (s *Store) PullMembership(ctx context.Context, kind models.UnitKind, id primitive.ObjectID) (int64, error) {
	field := "orgs." + membershipField(kind)
	res, err := s.c.UpdateMany(ctx,
		bson.M{field: id},
		bson.M{"$pull": bson.M{field: id}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// AssignedAdministrations returns the user's denormalized assigned index.
func (s *Store) AssignedAdministrations(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	var row struct {
		Administrations []primitive.ObjectID `bson:"administrations"`
	}
	err := s.c.FindOne(ctx, bson.M{"_id": userID}).Decode(&row)
	if err != nil {
		return nil, err
	}
	return row.Administrations, nil
}

func membershipField(kind models.UnitKind) string {
	switch kind {
	case models.KindSite:
		return "site_ids"
	case models.KindSchool:
		return "school_ids"
	case models.KindClass:
		return "class_ids"
	case models.KindCohort:
		return "cohort_ids"
	}
	return ""
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
