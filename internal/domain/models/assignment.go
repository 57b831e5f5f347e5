// internal/domain/models/assignment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Assignment binds one administration's content to one user's individual
// progress. Exactly one document per (user_id, administration_id), enforced
// by a unique index.
//
// Ownership: the administration is the source of truth for Assessments and
// the open/close dates (merged in on administration updates); the progress
// fields (Started, Completed, Progress) belong to the user and are never
// touched by the sync engine's content merges.
type Assignment struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID           primitive.ObjectID `bson:"user_id" json:"user_id"`
	AdministrationID primitive.ObjectID `bson:"administration_id" json:"administration_id"`

	Assessments []Assessment `bson:"assessments" json:"assessments"`
	Sequential  bool         `bson:"sequential" json:"sequential"`
	DateOpened  time.Time    `bson:"date_opened" json:"date_opened"`
	DateClosed  time.Time    `bson:"date_closed" json:"date_closed"`

	Started   bool              `bson:"started" json:"started"`
	Completed bool              `bson:"completed" json:"completed"`
	Progress  map[string]string `bson:"progress,omitempty" json:"progress,omitempty"`

	DateAssigned time.Time `bson:"date_assigned" json:"date_assigned"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}
