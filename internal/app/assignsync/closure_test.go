package assignsync

import (
	"testing"

	"github.com/dalemusser/assesshub/internal/domain/models"
	"github.com/dalemusser/assesshub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// buildHierarchy creates site → {school → class1, class2-directly-on-site,
// cohort} and returns everything by name.
type hierarchy struct {
	site   models.Site
	school models.School
	class1 models.Class
	class2 models.Class
	cohort models.Cohort
}

func buildHierarchy(t *testing.T, f *testutil.Fixtures) hierarchy {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	site := f.CreateSite(ctx, "District North")
	school := f.CreateSchool(ctx, "Lincoln Elementary", site.ID)
	class1 := f.CreateClassInSchool(ctx, "Grade 3A", site.ID, school.ID)
	class2 := f.CreateClass(ctx, "Afterschool Reading", site.ID)
	cohort := f.CreateCohort(ctx, "ELL Cohort", &site.ID)
	return hierarchy{site: site, school: school, class1: class1, class2: class2, cohort: cohort}
}

func TestClosure_ExpandsSiteToAllDescendants(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	h := buildHierarchy(t, f)
	r := NewResolver(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var targets models.OrgRefs
	targets.Add(models.KindSite, h.site.ID)

	closure, err := r.Closure(ctx, targets)
	if err != nil {
		t.Fatalf("Closure failed: %v", err)
	}

	for _, want := range []struct {
		kind models.UnitKind
		id   primitive.ObjectID
	}{
		{models.KindSite, h.site.ID},
		{models.KindSchool, h.school.ID},
		{models.KindClass, h.class1.ID},
		{models.KindClass, h.class2.ID},
		{models.KindCohort, h.cohort.ID},
	} {
		if !closure.Contains(want.kind, want.id) {
			t.Errorf("closure missing %s %s", want.kind, want.id.Hex())
		}
	}
	if closure.Len() != 5 {
		t.Errorf("closure has %d units, want 5", closure.Len())
	}
}

func TestClosure_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	h := buildHierarchy(t, f)
	r := NewResolver(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var targets models.OrgRefs
	targets.Add(models.KindSite, h.site.ID)

	once, err := r.Closure(ctx, targets)
	if err != nil {
		t.Fatalf("first Closure failed: %v", err)
	}
	twice, err := r.Closure(ctx, once)
	if err != nil {
		t.Fatalf("second Closure failed: %v", err)
	}

	if !sameRefs(once, twice) {
		t.Errorf("closure of a closure must be itself: %+v vs %+v", once, twice)
	}
}

func TestClosure_ContainsTargets(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	h := buildHierarchy(t, f)
	r := NewResolver(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var targets models.OrgRefs
	targets.Add(models.KindSchool, h.school.ID)
	targets.Add(models.KindCohort, h.cohort.ID)

	closure, err := r.Closure(ctx, targets)
	if err != nil {
		t.Fatalf("Closure failed: %v", err)
	}

	// Monotone: every target survives into the closure.
	if !closure.Contains(models.KindSchool, h.school.ID) || !closure.Contains(models.KindCohort, h.cohort.ID) {
		t.Error("closure must contain the original targets")
	}
	// School pulls in its class, but not the site above it or siblings.
	if !closure.Contains(models.KindClass, h.class1.ID) {
		t.Error("closure missing the school's class")
	}
	if closure.Contains(models.KindSite, h.site.ID) {
		t.Error("closure must not walk upward to the parent site")
	}
	if closure.Contains(models.KindClass, h.class2.ID) {
		t.Error("closure must not include sibling classes outside the school")
	}
}

func TestClosure_MonotoneOverTargets(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	h := buildHierarchy(t, f)
	r := NewResolver(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var subset models.OrgRefs
	subset.Add(models.KindSchool, h.school.ID)
	superset := subset
	superset.Add(models.KindSite, h.site.ID)

	small, err := r.Closure(ctx, subset)
	if err != nil {
		t.Fatalf("Closure of subset failed: %v", err)
	}
	large, err := r.Closure(ctx, superset)
	if err != nil {
		t.Fatalf("Closure of superset failed: %v", err)
	}

	// Growing the targets can only grow the closure.
	for _, kind := range models.UnitKinds {
		for _, id := range small.Of(kind) {
			if !large.Contains(kind, id) {
				t.Errorf("superset closure missing %s %s from subset closure", kind, id.Hex())
			}
		}
	}
	if large.Len() < small.Len() {
		t.Errorf("superset closure has %d units, subset has %d", large.Len(), small.Len())
	}
}

func TestClosure_DanglingIDExcluded(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	h := buildHierarchy(t, f)
	r := NewResolver(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var targets models.OrgRefs
	targets.Add(models.KindClass, h.class1.ID)
	targets.Add(models.KindClass, primitive.NewObjectID()) // no such document

	closure, err := r.Closure(ctx, targets)
	if err != nil {
		t.Fatalf("Closure failed: %v", err)
	}
	if closure.Len() != 1 || !closure.Contains(models.KindClass, h.class1.ID) {
		t.Errorf("dangling id must be dropped, got %+v", closure)
	}
}

func TestClosure_DuplicateTargetsCollapse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	h := buildHierarchy(t, f)
	r := NewResolver(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var targets models.OrgRefs
	targets.Add(models.KindSite, h.site.ID, h.site.ID)
	targets.Add(models.KindSchool, h.school.ID) // already implied by the site

	closure, err := r.Closure(ctx, targets)
	if err != nil {
		t.Fatalf("Closure failed: %v", err)
	}
	if closure.Len() != 5 {
		t.Errorf("closure has %d units, want 5 (duplicates collapsed)", closure.Len())
	}
}

func TestUsersOf_MembershipAndArchived(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	h := buildHierarchy(t, f)
	r := NewResolver(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var inClass models.OrgRefs
	inClass.Add(models.KindClass, h.class1.ID)
	var inCohort models.OrgRefs
	inCohort.Add(models.KindCohort, h.cohort.ID)

	active := f.CreateStudent(ctx, "active@example.com", inClass)
	archived := f.CreateStudent(ctx, "archived@example.com", inClass)
	f.CreateStudent(ctx, "elsewhere@example.com", inCohort)

	if _, err := db.Collection("users").UpdateByID(ctx, archived.ID,
		bson.M{"$set": bson.M{"archived": true}}); err != nil {
		t.Fatalf("failed to archive user: %v", err)
	}

	got, err := r.UsersOf(ctx, inClass, false)
	if err != nil {
		t.Fatalf("UsersOf failed: %v", err)
	}
	if len(got) != 1 || got[0] != active.ID {
		t.Errorf("without archived: got %v, want only %s", got, active.ID.Hex())
	}

	got, err = r.UsersOf(ctx, inClass, true)
	if err != nil {
		t.Fatalf("UsersOf failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("with archived: got %d users, want 2", len(got))
	}
}

func TestUsersOf_DeduplicatesAcrossKinds(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	h := buildHierarchy(t, f)
	r := NewResolver(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var both models.OrgRefs
	both.Add(models.KindClass, h.class1.ID)
	both.Add(models.KindCohort, h.cohort.ID)

	u := f.CreateStudent(ctx, "both@example.com", both)

	got, err := r.UsersOf(ctx, both, false)
	if err != nil {
		t.Fatalf("UsersOf failed: %v", err)
	}
	if len(got) != 1 || got[0] != u.ID {
		t.Errorf("user in two targeted units must appear once, got %v", got)
	}
}
