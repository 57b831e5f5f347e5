package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/assesshub/internal/app/system/authutil"
	"github.com/dalemusser/assesshub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
// Chained calls accumulate parameters on the same route context.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateSite creates a test site with the given name.
func (f *Fixtures) CreateSite(ctx context.Context, name string) models.Site {
	f.t.Helper()

	now := time.Now().UTC()
	site := models.Site{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("sites").InsertOne(ctx, site); err != nil {
		f.t.Fatalf("failed to create test site: %v", err)
	}
	return site
}

// CreateSchool creates a test school under the given site and records it in
// the site's child list.
func (f *Fixtures) CreateSchool(ctx context.Context, name string, siteID primitive.ObjectID) models.School {
	f.t.Helper()

	now := time.Now().UTC()
	school := models.School{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		SiteID:    siteID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("schools").InsertOne(ctx, school); err != nil {
		f.t.Fatalf("failed to create test school: %v", err)
	}
	f.addChild(ctx, "sites", siteID, "school_ids", school.ID)
	return school
}

// CreateClass creates a test class under the given site, with no school.
func (f *Fixtures) CreateClass(ctx context.Context, name string, siteID primitive.ObjectID) models.Class {
	f.t.Helper()
	return f.createClass(ctx, name, siteID, nil)
}

// CreateClassInSchool creates a test class under both a site and a school.
func (f *Fixtures) CreateClassInSchool(ctx context.Context, name string, siteID, schoolID primitive.ObjectID) models.Class {
	f.t.Helper()
	return f.createClass(ctx, name, siteID, &schoolID)
}

func (f *Fixtures) createClass(ctx context.Context, name string, siteID primitive.ObjectID, schoolID *primitive.ObjectID) models.Class {
	f.t.Helper()

	now := time.Now().UTC()
	class := models.Class{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		SiteID:    siteID,
		SchoolID:  schoolID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("classes").InsertOne(ctx, class); err != nil {
		f.t.Fatalf("failed to create test class: %v", err)
	}
	f.addChild(ctx, "sites", siteID, "class_ids", class.ID)
	if schoolID != nil {
		f.addChild(ctx, "schools", *schoolID, "class_ids", class.ID)
	}
	return class
}

// CreateCohort creates a test cohort, optionally under a site.
func (f *Fixtures) CreateCohort(ctx context.Context, name string, siteID *primitive.ObjectID) models.Cohort {
	f.t.Helper()

	now := time.Now().UTC()
	cohort := models.Cohort{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		SiteID:    siteID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("cohorts").InsertOne(ctx, cohort); err != nil {
		f.t.Fatalf("failed to create test cohort: %v", err)
	}
	if siteID != nil {
		f.addChild(ctx, "sites", *siteID, "cohort_ids", cohort.ID)
	}
	return cohort
}

func (f *Fixtures) addChild(ctx context.Context, coll string, parentID primitive.ObjectID, field string, childID primitive.ObjectID) {
	f.t.Helper()
	_, err := f.db.Collection(coll).UpdateOne(ctx,
		bson.M{"_id": parentID},
		bson.M{"$addToSet": bson.M{field: childID}})
	if err != nil {
		f.t.Fatalf("failed to link %s child: %v", coll, err)
	}
}

// CreateUser creates a test user of the given type with the given org
// membership. OrgsAll starts equal to Orgs.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, userType string, orgs models.OrgRefs) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:              primitive.NewObjectID(),
		Name:            name,
		NameCI:          text.Fold(name),
		Email:           email,
		UserType:        userType,
		Orgs:            orgs,
		OrgsAll:         orgs,
		Administrations: []primitive.ObjectID{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateUserWithPassword creates a test user with a bcrypt password hash so
// credential checks exercise the real verification path.
func (f *Fixtures) CreateUserWithPassword(ctx context.Context, name, email, userType, password string, orgs models.OrgRefs) models.User {
	f.t.Helper()

	user := f.CreateUser(ctx, name, email, userType, orgs)
	hash, err := authutil.HashPassword(password)
	if err != nil {
		f.t.Fatalf("failed to hash test password: %v", err)
	}
	_, err = f.db.Collection("users").UpdateByID(ctx, user.ID, bson.M{"$set": bson.M{"password_hash": hash}})
	if err != nil {
		f.t.Fatalf("failed to set test password: %v", err)
	}
	user.PasswordHash = hash
	return user
}

// CreateStudent creates a test student with the given org membership.
func (f *Fixtures) CreateStudent(ctx context.Context, email string, orgs models.OrgRefs) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, "Test Student", email, models.UserTypeStudent, orgs)
}

// CreateTeacher creates a test teacher with the given org membership.
func (f *Fixtures) CreateTeacher(ctx context.Context, email string, orgs models.OrgRefs) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, "Test Teacher", email, models.UserTypeTeacher, orgs)
}

// CreateAdmin creates a test admin user with no org membership.
func (f *Fixtures) CreateAdmin(ctx context.Context, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, "Test Admin", email, models.UserTypeAdmin, models.OrgRefs{})
}

// CreateAdministration inserts an administration document directly, with the
// given targeted org units stored as both minimal and expanded sets. Use the
// sync engine when a test needs the expanded set computed for real.
func (f *Fixtures) CreateAdministration(ctx context.Context, name string, createdBy primitive.ObjectID, orgs models.OrgRefs) models.Administration {
	f.t.Helper()

	now := time.Now().UTC()
	admin := models.Administration{
		ID:     primitive.NewObjectID(),
		Name:   name,
		NameCI: text.Fold(name),
		Assessments: []models.Assessment{
			{TaskID: "vocab", VariantID: "vocab-default"},
		},
		DateOpened:  now,
		DateClosed:  now.AddDate(0, 1, 0),
		MinimalOrgs: orgs,
		Orgs:        orgs,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := f.db.Collection("administrations").InsertOne(ctx, admin); err != nil {
		f.t.Fatalf("failed to create test administration: %v", err)
	}
	return admin
}

// CreateAssignment inserts an assignment document directly, copying the
// administration's definition fields the way the sync engine does.
func (f *Fixtures) CreateAssignment(ctx context.Context, user models.User, admin models.Administration) models.Assignment {
	f.t.Helper()

	now := time.Now().UTC()
	a := models.Assignment{
		ID:               primitive.NewObjectID(),
		UserID:           user.ID,
		AdministrationID: admin.ID,
		Assessments:      admin.Assessments,
		Sequential:       admin.Sequential,
		DateOpened:       admin.DateOpened,
		DateClosed:       admin.DateClosed,
		DateAssigned:     now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if _, err := f.db.Collection("assignments").InsertOne(ctx, a); err != nil {
		f.t.Fatalf("failed to create test assignment: %v", err)
	}
	return a
}
