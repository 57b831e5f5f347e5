package assignments_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/assesshub/internal/app/features/assignments"
	"github.com/dalemusser/assesshub/internal/domain/models"
	"github.com/dalemusser/assesshub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*assignments.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return assignments.NewHandler(db, zap.NewNop()), testutil.NewFixtures(t, db)
}

func asUser(r *http.Request, u models.User) *http.Request {
	return testutil.WithUser(r, testutil.TestUser{
		ID:       u.ID.Hex(),
		Name:     u.Name,
		Email:    u.Email,
		UserType: u.UserType,
	})
}

func TestServeList_OwnAssignmentsOnly(t *testing.T) {
	h, f := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := f.CreateTeacher(ctx, "teacher@example.com", models.OrgRefs{})
	admin := f.CreateAdministration(ctx, "Fall Vocab", teacher.ID, models.OrgRefs{})

	student := f.CreateStudent(ctx, "student@example.com", models.OrgRefs{})
	other := f.CreateStudent(ctx, "other@example.com", models.OrgRefs{})
	f.CreateAssignment(ctx, student, admin)
	f.CreateAssignment(ctx, other, admin)

	req := asUser(testutil.NewRequest("GET", "/api/assignments"), student)
	rec := httptest.NewRecorder()
	h.ServeList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), admin.ID.Hex()) {
		t.Error("expected the student's assignment in the response")
	}
	if strings.Contains(rec.Body.String(), other.ID.Hex()) {
		t.Error("response must not contain another user's assignment")
	}
}

func TestServeList_Unauthenticated(t *testing.T) {
	h, _ := setup(t)

	req := testutil.NewRequest("GET", "/api/assignments")
	rec := httptest.NewRecorder()
	h.ServeList(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestServeStart_BumpsStartedOnce(t *testing.T) {
	h, f := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := f.CreateTeacher(ctx, "teacher@example.com", models.OrgRefs{})
	admin := f.CreateAdministration(ctx, "Fall Vocab", teacher.ID, models.OrgRefs{})
	student := f.CreateStudent(ctx, "student@example.com", models.OrgRefs{})
	f.CreateAssignment(ctx, student, admin)

	start := func() int {
		req := asUser(testutil.NewRequest("POST", "/api/assignments/"+admin.ID.Hex()+"/start"), student)
		req = testutil.WithChiURLParam(req, "administrationID", admin.ID.Hex())
		rec := httptest.NewRecorder()
		h.ServeStart(rec, req)
		return rec.Code
	}

	if code := start(); code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", code)
	}
	// A retried request must not double-count.
	if code := start(); code != http.StatusNoContent {
		t.Fatalf("expected 204 on retry, got %d", code)
	}

	var got models.Administration
	if err := f.DB().Collection("administrations").FindOne(ctx, bson.M{"_id": admin.ID}).Decode(&got); err != nil {
		t.Fatalf("failed to reload administration: %v", err)
	}
	if got.Stats.Started != 1 {
		t.Errorf("stats.started: got %d, want 1", got.Stats.Started)
	}
}

func TestServeStart_NoAssignment(t *testing.T) {
	h, f := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := f.CreateTeacher(ctx, "teacher@example.com", models.OrgRefs{})
	admin := f.CreateAdministration(ctx, "Fall Vocab", teacher.ID, models.OrgRefs{})
	student := f.CreateStudent(ctx, "student@example.com", models.OrgRefs{})

	req := asUser(testutil.NewRequest("POST", "/api/assignments/"+admin.ID.Hex()+"/start"), student)
	req = testutil.WithChiURLParam(req, "administrationID", admin.ID.Hex())
	rec := httptest.NewRecorder()
	h.ServeStart(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when the user holds no assignment, got %d", rec.Code)
	}
}

func TestServeComplete_MarksStartedToo(t *testing.T) {
	h, f := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := f.CreateTeacher(ctx, "teacher@example.com", models.OrgRefs{})
	admin := f.CreateAdministration(ctx, "Fall Vocab", teacher.ID, models.OrgRefs{})
	student := f.CreateStudent(ctx, "student@example.com", models.OrgRefs{})
	f.CreateAssignment(ctx, student, admin)

	req := asUser(testutil.NewRequest("POST", "/api/assignments/"+admin.ID.Hex()+"/complete"), student)
	req = testutil.WithChiURLParam(req, "administrationID", admin.ID.Hex())
	rec := httptest.NewRecorder()
	h.ServeComplete(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	var a models.Assignment
	err := f.DB().Collection("assignments").FindOne(ctx,
		bson.M{"user_id": student.ID, "administration_id": admin.ID}).Decode(&a)
	if err != nil {
		t.Fatalf("failed to reload assignment: %v", err)
	}
	if !a.Completed || !a.Started {
		t.Errorf("expected completed and started, got completed=%v started=%v", a.Completed, a.Started)
	}
}

func TestServeProgress(t *testing.T) {
	h, f := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := f.CreateTeacher(ctx, "teacher@example.com", models.OrgRefs{})
	admin := f.CreateAdministration(ctx, "Fall Vocab", teacher.ID, models.OrgRefs{})
	student := f.CreateStudent(ctx, "student@example.com", models.OrgRefs{})
	f.CreateAssignment(ctx, student, admin)

	body := strings.NewReader(`{"status":"completed"}`)
	req := asUser(testutil.NewJSONRequest("PUT", "/api/assignments/"+admin.ID.Hex()+"/progress/vocab", body), student)
	req = testutil.WithChiURLParam(req, "administrationID", admin.ID.Hex())
	req = testutil.WithChiURLParam(req, "taskID", "vocab")
	rec := httptest.NewRecorder()
	h.ServeProgress(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	var a models.Assignment
	err := f.DB().Collection("assignments").FindOne(ctx,
		bson.M{"user_id": student.ID, "administration_id": admin.ID}).Decode(&a)
	if err != nil {
		t.Fatalf("failed to reload assignment: %v", err)
	}
	if a.Progress["vocab"] != "completed" {
		t.Errorf("progress: got %q, want %q", a.Progress["vocab"], "completed")
	}
}

func TestServeProgress_UnknownTask(t *testing.T) {
	h, f := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := f.CreateTeacher(ctx, "teacher@example.com", models.OrgRefs{})
	admin := f.CreateAdministration(ctx, "Fall Vocab", teacher.ID, models.OrgRefs{})
	student := f.CreateStudent(ctx, "student@example.com", models.OrgRefs{})
	f.CreateAssignment(ctx, student, admin)

	body := strings.NewReader(`{"status":"completed"}`)
	req := asUser(testutil.NewJSONRequest("PUT", "/api/assignments/"+admin.ID.Hex()+"/progress/no-such-task", body), student)
	req = testutil.WithChiURLParam(req, "administrationID", admin.ID.Hex())
	req = testutil.WithChiURLParam(req, "taskID", "no-such-task")
	rec := httptest.NewRecorder()
	h.ServeProgress(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a task not in the assignment, got %d", rec.Code)
	}
}
