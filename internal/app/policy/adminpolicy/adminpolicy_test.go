package adminpolicy_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/assesshub/internal/app/policy/adminpolicy"
	"github.com/dalemusser/assesshub/internal/domain/models"
	"github.com/dalemusser/assesshub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func requestAs(u models.User) *http.Request {
	return testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.TestUser{
		ID:       u.ID.Hex(),
		Name:     u.Name,
		Email:    u.Email,
		UserType: u.UserType,
	})
}

func TestTeachesAtSite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	site := f.CreateSite(ctx, "District North")
	otherSite := f.CreateSite(ctx, "District South")
	school := f.CreateSchool(ctx, "Lincoln", site.ID)
	class := f.CreateClassInSchool(ctx, "Grade 3A", site.ID, school.ID)
	cohort := f.CreateCohort(ctx, "ELL", &site.ID)

	var direct models.OrgRefs
	direct.Add(models.KindSite, site.ID)
	var viaSchool models.OrgRefs
	viaSchool.Add(models.KindSchool, school.ID)
	var viaClass models.OrgRefs
	viaClass.Add(models.KindClass, class.ID)
	var viaCohort models.OrgRefs
	viaCohort.Add(models.KindCohort, cohort.ID)
	var elsewhere models.OrgRefs
	elsewhere.Add(models.KindSite, otherSite.ID)

	cases := []struct {
		name string
		user models.User
		want bool
	}{
		{"direct site membership", f.CreateTeacher(ctx, "direct@example.com", direct), true},
		{"via school", f.CreateTeacher(ctx, "school@example.com", viaSchool), true},
		{"via class", f.CreateTeacher(ctx, "class@example.com", viaClass), true},
		{"via cohort", f.CreateTeacher(ctx, "cohort@example.com", viaCohort), true},
		{"other site only", f.CreateTeacher(ctx, "other@example.com", elsewhere), false},
		{"no memberships", f.CreateTeacher(ctx, "none@example.com", models.OrgRefs{}), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := adminpolicy.TeachesAtSite(ctx, db, site.ID, tc.user.ID)
			if err != nil {
				t.Fatalf("TeachesAtSite failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("TeachesAtSite = %v, want %v", got, tc.want)
			}
		})
	}

	// Unknown users simply have no site membership.
	got, err := adminpolicy.TeachesAtSite(ctx, db, site.ID, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("TeachesAtSite failed: %v", err)
	}
	if got {
		t.Error("unknown user must not teach anywhere")
	}
}

func TestCanManageAdministration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	site := f.CreateSite(ctx, "District North")
	var atSite models.OrgRefs
	atSite.Add(models.KindSite, site.ID)

	admin := f.CreateAdmin(ctx, "admin@example.com")
	creator := f.CreateTeacher(ctx, "creator@example.com", models.OrgRefs{})
	siteTeacher := f.CreateTeacher(ctx, "colleague@example.com", atSite)
	outsider := f.CreateTeacher(ctx, "outsider@example.com", models.OrgRefs{})
	student := f.CreateStudent(ctx, "student@example.com", atSite)

	target := f.CreateAdministration(ctx, "Screener", creator.ID, atSite)
	target.SiteID = site.ID

	cases := []struct {
		name string
		user models.User
		want bool
	}{
		{"admin", admin, true},
		{"creator", creator, true},
		{"teacher at the site", siteTeacher, true},
		{"unrelated teacher", outsider, false},
		{"student at the site", student, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := adminpolicy.CanManageAdministration(ctx, db, requestAs(tc.user), &target)
			if err != nil {
				t.Fatalf("CanManageAdministration failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("CanManageAdministration = %v, want %v", got, tc.want)
			}
		})
	}

	// Unauthenticated requests are denied, not errored.
	got, err := adminpolicy.CanManageAdministration(ctx, db, testutil.NewRequest(http.MethodGet, "/"), &target)
	if err != nil || got {
		t.Errorf("unauthenticated: got %v, %v; want false, nil", got, err)
	}

	// Without a resolved site, non-creator teachers have nothing to match.
	noSite := target
	noSite.SiteID = primitive.NilObjectID
	got, err = adminpolicy.CanManageAdministration(ctx, db, requestAs(siteTeacher), &noSite)
	if err != nil || got {
		t.Errorf("siteless administration: got %v, %v; want false, nil", got, err)
	}
}

func TestCanCreateAdministration(t *testing.T) {
	if !adminpolicy.CanCreateAdministration(testutil.NewAuthenticatedRequest(http.MethodPost, "/", testutil.AdminUser())) {
		t.Error("admin must be allowed to create")
	}
	if !adminpolicy.CanCreateAdministration(testutil.NewAuthenticatedRequest(http.MethodPost, "/", testutil.TeacherUser())) {
		t.Error("teacher must be allowed to create")
	}
	if adminpolicy.CanCreateAdministration(testutil.NewAuthenticatedRequest(http.MethodPost, "/", testutil.StudentUser())) {
		t.Error("student must not be allowed to create")
	}
	if adminpolicy.CanCreateAdministration(testutil.NewRequest(http.MethodPost, "/")) {
		t.Error("unauthenticated request must not be allowed to create")
	}
}

func TestCanViewAssignments(t *testing.T) {
	subject := primitive.NewObjectID()

	self := testutil.TestUser{ID: subject.Hex(), Name: "Self", UserType: "student"}
	if !adminpolicy.CanViewAssignments(testutil.NewAuthenticatedRequest(http.MethodGet, "/", self), subject) {
		t.Error("users must be able to view their own assignments")
	}
	if !adminpolicy.CanViewAssignments(testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.AdminUser()), subject) {
		t.Error("admins must be able to view any assignments")
	}
	if !adminpolicy.CanViewAssignments(testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.TeacherUser()), subject) {
		t.Error("teachers must be able to view assignments")
	}
	if adminpolicy.CanViewAssignments(testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.StudentUser()), subject) {
		t.Error("other students must not view someone else's assignments")
	}
	if adminpolicy.CanViewAssignments(testutil.NewRequest(http.MethodGet, "/"), subject) {
		t.Error("unauthenticated requests must be denied")
	}
}
