package userstore_test

import (
	"testing"

	userstore "github.com/dalemusser/assesshub/internal/app/store/users"
	"github.com/dalemusser/assesshub/internal/domain/models"
	"github.com/dalemusser/assesshub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Create_Student(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := models.User{
		Name:     "Student User",
		Email:    "student@example.com",
		UserType: models.UserTypeStudent,
	}

	created, err := store.Create(ctx, user)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Verify ID was assigned
	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}

	// Verify normalized fields
	if created.NameCI == "" {
		t.Error("expected NameCI to be set")
	}

	// Verify timestamps
	if created.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
	if created.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}

	// Verify the assigned index starts empty, not nil
	if created.Administrations == nil {
		t.Error("expected Administrations to be initialized")
	}
}

func TestStore_Create_InvalidUserType(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := models.User{
		Name:     "Test User",
		Email:    "test@example.com",
		UserType: "superuser",
	}

	_, err := store.Create(ctx, user)
	if err == nil {
		t.Fatal("expected error for invalid user type")
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user1 := models.User{
		Name:     "User One",
		Email:    "duplicate@example.com",
		UserType: models.UserTypeAdmin,
	}

	_, err := store.Create(ctx, user1)
	if err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	user2 := models.User{
		Name:     "User Two",
		Email:    "duplicate@example.com",
		UserType: models.UserTypeAdmin,
	}

	_, err = store.Create(ctx, user2)
	if err != userstore.ErrDuplicateEmail {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fakeID := primitive.NewObjectID()
	_, err := store.GetByID(ctx, fakeID)
	if err != mongo.ErrNoDocuments {
		t.Errorf("expected mongo.ErrNoDocuments, got %v", err)
	}
}

func TestStore_GetByEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := models.User{
		Name:     "Email Test User",
		Email:    "FindMe@Example.COM",
		UserType: models.UserTypeTeacher,
	}

	created, err := store.Create(ctx, user)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Search with different case
	found, err := store.GetByEmail(ctx, "findme@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}

	if found.ID != created.ID {
		t.Errorf("ID: got %v, want %v", found.ID, created.ID)
	}
}

func TestStore_SetMembership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	site := fixtures.CreateSite(ctx, "Test Site")
	classA := fixtures.CreateClass(ctx, "Class A", site.ID)
	classB := fixtures.CreateClass(ctx, "Class B", site.ID)

	student := fixtures.CreateStudent(ctx, "student@example.com", models.OrgRefs{
		Classes: []primitive.ObjectID{classA.ID},
	})

	err := store.SetMembership(ctx, student.ID, models.KindClass, []primitive.ObjectID{classB.ID})
	if err != nil {
		t.Fatalf("SetMembership failed: %v", err)
	}

	found, err := store.GetByID(ctx, student.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	// Current membership replaced
	if len(found.Orgs.Classes) != 1 || found.Orgs.Classes[0] != classB.ID {
		t.Errorf("Orgs.Classes: got %v, want [%v]", found.Orgs.Classes, classB.ID)
	}

	// All-time membership accumulates
	if !found.OrgsAll.Contains(models.KindClass, classA.ID) {
		t.Error("expected all-time membership to keep the old class")
	}
	if !found.OrgsAll.Contains(models.KindClass, classB.ID) {
		t.Error("expected all-time membership to gain the new class")
	}
}

func TestStore_SetArchived(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	student := fixtures.CreateStudent(ctx, "archive@example.com", models.OrgRefs{})

	if err := store.SetArchived(ctx, student.ID, true); err != nil {
		t.Fatalf("SetArchived failed: %v", err)
	}

	found, err := store.GetByID(ctx, student.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !found.Archived {
		t.Error("expected user to be archived")
	}
}
