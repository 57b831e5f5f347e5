// internal/domain/models/administration.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Assessment is one task inside an administration. The variant params are an
// opaque document copied verbatim onto each user's assignment.
type Assessment struct {
	TaskID    string `bson:"task_id" json:"task_id"`
	VariantID string `bson:"variant_id,omitempty" json:"variant_id,omitempty"`
	Params    bson.M `bson:"params,omitempty" json:"params,omitempty"`
}

// AdministrationStats holds denormalized per-administration counters. They
// are maintained by atomic increments as chunks are processed, never by
// recounting assignment documents.
type AdministrationStats struct {
	Assigned  int64 `bson:"assigned" json:"assigned"`
	Started   int64 `bson:"started" json:"started"`
	Completed int64 `bson:"completed" json:"completed"`
}

// Legal carries the consent/assent metadata an administration may attach.
type Legal struct {
	Consent      string `bson:"consent,omitempty" json:"consent,omitempty"`
	Assent       string `bson:"assent,omitempty" json:"assent,omitempty"`
	ExpectedTime string `bson:"expected_time,omitempty" json:"expected_time,omitempty"`
}

// Administration is a globally defined assessment campaign targeted at
// organizational units.
//
// MinimalOrgs preserves exactly what the caller supplied. Orgs is the
// standardized target set: always the exhaustive closure of MinimalOrgs,
// never a partial expansion. SiteID is the governing top-level unit resolved
// at creation.
type Administration struct {
	ID          primitive.ObjectID   `bson:"_id" json:"id"`
	Name        string               `bson:"name" json:"name"`
	NameCI      string               `bson:"name_ci" json:"name_ci"`
	Assessments []Assessment         `bson:"assessments" json:"assessments"`
	DateOpened  time.Time            `bson:"date_opened" json:"date_opened"`
	DateClosed  time.Time            `bson:"date_closed" json:"date_closed"`
	MinimalOrgs OrgRefs              `bson:"minimal_orgs" json:"minimal_orgs"`
	Orgs        OrgRefs              `bson:"orgs" json:"orgs"`
	SiteID      primitive.ObjectID   `bson:"site_id" json:"site_id"`
	CreatedBy   primitive.ObjectID   `bson:"created_by" json:"created_by"`
	Sequential  bool                 `bson:"sequential" json:"sequential"`
	Tags        []string             `bson:"tags,omitempty" json:"tags,omitempty"`
	Legal       *Legal               `bson:"legal,omitempty" json:"legal,omitempty"`
	Stats       AdministrationStats  `bson:"stats" json:"stats"`
	CreatedAt   time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updated_at"`
}
