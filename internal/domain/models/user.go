// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents every account on the platform: participants (students,
// parents, teachers), administrators, and guests.
//
// NOTE:
//   - Orgs is the user's *current* membership and is what the sync engine
//     matches closures against. OrgsAll is all-time membership, retained for
//     history and never consulted for assignment creation.
//   - Administrations is the denormalized index of administration ids the
//     user currently holds an assignment for.
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	NameCI   string             `bson:"name_ci" json:"name_ci"`
	Email    string             `bson:"email,omitempty" json:"email,omitempty"`
	UserType string             `bson:"user_type" json:"user_type"` // student | parent | teacher | admin | guest
	Archived bool               `bson:"archived" json:"archived"`

	Orgs    OrgRefs `bson:"orgs" json:"orgs"`
	OrgsAll OrgRefs `bson:"orgs_all" json:"orgs_all"`

	Administrations        []primitive.ObjectID `bson:"administrations" json:"administrations"`
	AdministrationsCreated []primitive.ObjectID `bson:"administrations_created,omitempty" json:"administrations_created,omitempty"`

	// Administrators only; bcrypt hash for the password login path.
	PasswordHash string `bson:"password_hash,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// User types.
const (
	UserTypeStudent = "student"
	UserTypeParent  = "parent"
	UserTypeTeacher = "teacher"
	UserTypeAdmin   = "admin"
	UserTypeGuest   = "guest"
)

// IsParticipant reports whether the user type receives assignments.
func (u User) IsParticipant() bool {
	switch u.UserType {
	case UserTypeStudent, UserTypeParent, UserTypeTeacher:
		return true
	}
	return false
}
