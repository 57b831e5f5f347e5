package administrationstore

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/assesshub/internal/domain/models"
	"github.com/dalemusser/assesshub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func setup(t *testing.T) (*Store, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return New(db), testutil.NewFixtures(t, db)
}

func sampleAdministration(createdBy primitive.ObjectID, orgs models.OrgRefs) models.Administration {
	now := time.Now().UTC()
	return models.Administration{
		Name:        "Fall Screener",
		Assessments: []models.Assessment{{TaskID: "vocab", VariantID: "vocab-default"}},
		DateOpened:  now,
		DateClosed:  now.AddDate(0, 1, 0),
		MinimalOrgs: orgs,
		Orgs:        orgs,
		CreatedBy:   createdBy,
	}
}

func TestCreate_AssignsIDAndRecordsCreator(t *testing.T) {
	s, f := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	creator := f.CreateAdmin(ctx, "creator@example.com")
	a, err := s.Create(ctx, sampleAdministration(creator.ID, models.OrgRefs{}))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if a.ID.IsZero() {
		t.Fatal("Create did not assign an id")
	}
	if a.NameCI != "fall screener" {
		t.Errorf("name_ci = %q, want folded name", a.NameCI)
	}

	var u models.User
	if err := f.DB().Collection("users").FindOne(ctx, bson.M{"_id": creator.ID}).Decode(&u); err != nil {
		t.Fatalf("failed to load creator: %v", err)
	}
	if len(u.AdministrationsCreated) != 1 || u.AdministrationsCreated[0] != a.ID {
		t.Errorf("creator index = %v, want [%s]", u.AdministrationsCreated, a.ID.Hex())
	}
}

func TestUpdate_ReplacesDefinitionNotStats(t *testing.T) {
	s, f := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	creator := f.CreateAdmin(ctx, "creator@example.com")
	a, err := s.Create(ctx, sampleAdministration(creator.ID, models.OrgRefs{}))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	// Counter moved by the sync engine; Update must not clobber it.
	if _, err := f.DB().Collection("administrations").UpdateByID(ctx, a.ID,
		bson.M{"$inc": bson.M{"stats.assigned": 7}}); err != nil {
		t.Fatalf("failed to bump stats: %v", err)
	}

	a.Name = "Winter Screener"
	a.Sequential = true
	a.Stats.Assigned = 0 // stale in-memory copy
	if _, err := s.Update(ctx, a); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := s.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Winter Screener" || !got.Sequential {
		t.Errorf("definition not updated: name=%q sequential=%v", got.Name, got.Sequential)
	}
	if got.Stats.Assigned != 7 {
		t.Errorf("stats.assigned = %d, want 7 (untouched by Update)", got.Stats.Assigned)
	}
}

func TestUpdate_ZeroIDRejected(t *testing.T) {
	s, f := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	creator := f.CreateAdmin(ctx, "creator@example.com")
	_, err := s.Update(ctx, sampleAdministration(creator.ID, models.OrgRefs{}))
	if err == nil {
		t.Fatal("Update with zero id must fail")
	}
}

func TestGetByID_NotFound(t *testing.T) {
	s, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := s.GetByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("err = %v, want ErrNoDocuments", err)
	}
}

func TestListByCreator(t *testing.T) {
	s, f := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c1 := f.CreateAdmin(ctx, "one@example.com")
	c2 := f.CreateAdmin(ctx, "two@example.com")
	a1, _ := s.Create(ctx, sampleAdministration(c1.ID, models.OrgRefs{}))
	if _, err := s.Create(ctx, sampleAdministration(c2.ID, models.OrgRefs{})); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := s.ListByCreator(ctx, c1.ID)
	if err != nil {
		t.Fatalf("ListByCreator failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != a1.ID {
		t.Errorf("got %d administrations, want only %s", len(got), a1.ID.Hex())
	}
}

func TestListByOrgAndPullOrg(t *testing.T) {
	s, f := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	classID := primitive.NewObjectID()
	otherClassID := primitive.NewObjectID()
	var orgs models.OrgRefs
	orgs.Add(models.KindClass, classID, otherClassID)

	creator := f.CreateAdmin(ctx, "creator@example.com")
	a, err := s.Create(ctx, sampleAdministration(creator.ID, orgs))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := s.ListByOrg(ctx, models.KindClass, classID)
	if err != nil {
		t.Fatalf("ListByOrg failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != a.ID {
		t.Fatalf("ListByOrg got %d administrations, want 1", len(got))
	}

	n, err := s.PullOrg(ctx, models.KindClass, classID)
	if err != nil {
		t.Fatalf("PullOrg failed: %v", err)
	}
	if n != 1 {
		t.Errorf("PullOrg modified %d documents, want 1", n)
	}

	refreshed, err := s.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if refreshed.Orgs.Contains(models.KindClass, classID) ||
		refreshed.MinimalOrgs.Contains(models.KindClass, classID) {
		t.Error("pulled unit still present in target sets")
	}
	if !refreshed.Orgs.Contains(models.KindClass, otherClassID) {
		t.Error("unrelated unit was pulled from the target set")
	}

	// Pulling a unit no administration targets touches nothing.
	n, err = s.PullOrg(ctx, models.KindClass, classID)
	if err != nil {
		t.Fatalf("repeated PullOrg failed: %v", err)
	}
	if n != 0 {
		t.Errorf("repeated PullOrg modified %d documents, want 0", n)
	}
}

func TestDelete(t *testing.T) {
	s, f := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	creator := f.CreateAdmin(ctx, "creator@example.com")
	a, _ := s.Create(ctx, sampleAdministration(creator.ID, models.OrgRefs{}))

	if err := s.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.GetByID(ctx, a.ID); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("err = %v after delete, want ErrNoDocuments", err)
	}
	// Idempotent.
	if err := s.Delete(ctx, a.ID); err != nil {
		t.Fatalf("repeated Delete failed: %v", err)
	}
}
