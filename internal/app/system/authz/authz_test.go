package authz_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/assesshub/internal/app/system/auth"
	"github.com/dalemusser/assesshub/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// testUserID returns a valid ObjectID hex string for tests.
func testUserID() string {
	return primitive.NewObjectID().Hex()
}

func TestIsAdmin_True(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{
		ID:       testUserID(),
		UserType: "admin",
	})

	if !authz.IsAdmin(req) {
		t.Error("expected IsAdmin to return true for admin user")
	}
}

func TestIsAdmin_False_Teacher(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{
		ID:       testUserID(),
		UserType: "teacher",
	})

	if authz.IsAdmin(req) {
		t.Error("expected IsAdmin to return false for teacher user")
	}
}

func TestIsAdmin_False_NoUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)

	if authz.IsAdmin(req) {
		t.Error("expected IsAdmin to return false when no user")
	}
}

func TestUserCtx_ValidUser(t *testing.T) {
	id := primitive.NewObjectID()
	req := httptest.NewRequest("GET", "/test", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{
		ID:       id.Hex(),
		Name:     "Test Teacher",
		UserType: "Teacher",
	})

	ut, name, userID, ok := authz.UserCtx(req)
	if !ok {
		t.Fatal("expected ok for valid user")
	}
	if ut != "teacher" {
		t.Errorf("expected lowercased user type, got %q", ut)
	}
	if name != "Test Teacher" {
		t.Errorf("name: got %q", name)
	}
	if userID != id {
		t.Errorf("userID: got %v, want %v", userID, id)
	}
}

func TestUserCtx_MalformedID(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{
		ID:       "not-an-object-id",
		UserType: "admin",
	})

	ut, _, userID, ok := authz.UserCtx(req)
	if ok {
		t.Error("expected ok=false for malformed user ID")
	}
	if ut != "visitor" {
		t.Errorf("expected visitor, got %q", ut)
	}
	if userID != primitive.NilObjectID {
		t.Error("expected NilObjectID for malformed user ID")
	}
}

func TestHasAnyUserType(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{
		ID:       testUserID(),
		UserType: "teacher",
	})

	if !authz.HasAnyUserType(req, "admin", "teacher") {
		t.Error("expected true when user type is in the allowed list")
	}
	if authz.HasAnyUserType(req, "admin", "student") {
		t.Error("expected false when user type is not in the allowed list")
	}
}

func TestHasAnyUserType_NoUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)

	if authz.HasAnyUserType(req, "admin") {
		t.Error("expected false when no user is signed in")
	}
}
