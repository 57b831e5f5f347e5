// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/assesshub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's type (lowercased), name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false. This ensures callers can trust that
// ok=true means a valid, authenticated user with a valid ObjectID.
func UserCtx(r *http.Request) (userType string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session - fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.UserType), user.Name, userID, true
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	ut, _, _, ok := UserCtx(r)
	return ok && ut == "admin"
}

// IsTeacher reports whether the current request's user is a teacher.
func IsTeacher(r *http.Request) bool {
	ut, _, _, ok := UserCtx(r)
	return ok && ut == "teacher"
}

// IsStudent reports whether the current request's user is a student.
func IsStudent(r *http.Request) bool {
	ut, _, _, ok := UserCtx(r)
	return ok && ut == "student"
}

// HasAnyUserType reports whether the current request's user has any of the
// given user types. Returns false if no user is present.
func HasAnyUserType(r *http.Request, types ...string) bool {
	ut, _, _, ok := UserCtx(r)
	if !ok {
		return false
	}
	for _, want := range types {
		if ut == strings.ToLower(strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}
