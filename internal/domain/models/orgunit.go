// internal/domain/models/orgunit.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Site is the top-level organizational unit (a district, project, or
// deployment region). Child-unit ids are denormalized onto the site so the
// sync engine can expand a closure without multi-hop joins.
type Site struct {
	ID        primitive.ObjectID   `bson:"_id" json:"id"`
	Name      string               `bson:"name" json:"name"`
	NameCI    string               `bson:"name_ci" json:"name_ci"`
	SchoolIDs []primitive.ObjectID `bson:"school_ids" json:"school_ids"`
	ClassIDs  []primitive.ObjectID `bson:"class_ids" json:"class_ids"`
	CohortIDs []primitive.ObjectID `bson:"cohort_ids" json:"cohort_ids"`
	Tags      []string             `bson:"tags,omitempty" json:"tags,omitempty"`
	CreatedAt time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time            `bson:"updated_at" json:"updated_at"`
}

// School belongs to exactly one site and denormalizes its class ids.
type School struct {
	ID        primitive.ObjectID   `bson:"_id" json:"id"`
	Name      string               `bson:"name" json:"name"`
	NameCI    string               `bson:"name_ci" json:"name_ci"`
	SiteID    primitive.ObjectID   `bson:"site_id" json:"site_id"`
	ClassIDs  []primitive.ObjectID `bson:"class_ids" json:"class_ids"`
	CreatedAt time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time            `bson:"updated_at" json:"updated_at"`
}

// Class belongs to a site and optionally to a school within that site.
type Class struct {
	ID        primitive.ObjectID  `bson:"_id" json:"id"`
	Name      string              `bson:"name" json:"name"`
	NameCI    string              `bson:"name_ci" json:"name_ci"`
	SiteID    primitive.ObjectID  `bson:"site_id" json:"site_id"`
	SchoolID  *primitive.ObjectID `bson:"school_id,omitempty" json:"school_id,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time           `bson:"updated_at" json:"updated_at"`
}

// Cohort is an ad-hoc grouping of users. Its parent, if set, must be a site;
// no other parent kind is permitted.
type Cohort struct {
	ID        primitive.ObjectID  `bson:"_id" json:"id"`
	Name      string              `bson:"name" json:"name"`
	NameCI    string              `bson:"name_ci" json:"name_ci"`
	SiteID    *primitive.ObjectID `bson:"site_id,omitempty" json:"site_id,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time           `bson:"updated_at" json:"updated_at"`
}

// CollectionFor maps a unit kind to its collection name.
func CollectionFor(kind UnitKind) string {
	switch kind {
	case KindSite:
		return "sites"
	case KindSchool:
		return "schools"
	case KindClass:
		return "classes"
	case KindCohort:
		return "cohorts"
	}
	return ""
}
