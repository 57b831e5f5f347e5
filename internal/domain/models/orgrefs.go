// internal/domain/models/orgrefs.go
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrgRefs holds a set of organizational-unit ids, one slice per unit kind.
//
// It is the value passed around by the sync engine: administration targets,
// closures, diffs, and chunks are all OrgRefs. The zero value is an empty set.
type OrgRefs struct {
	Sites   []primitive.ObjectID `bson:"site_ids" json:"site_ids"`
	Schools []primitive.ObjectID `bson:"school_ids" json:"school_ids"`
	Classes []primitive.ObjectID `bson:"class_ids" json:"class_ids"`
	Cohorts []primitive.ObjectID `bson:"cohort_ids" json:"cohort_ids"`
}

// UnitKind names one of the four organizational-unit kinds.
type UnitKind string

const (
	KindSite   UnitKind = "site"
	KindSchool UnitKind = "school"
	KindClass  UnitKind = "class"
	KindCohort UnitKind = "cohort"
)

// UnitKinds lists the four kinds in containment order (parents first).
var UnitKinds = []UnitKind{KindSite, KindSchool, KindClass, KindCohort}

// Of returns the id slice for the given kind.
func (o OrgRefs) Of(kind UnitKind) []primitive.ObjectID {
	switch kind {
	case KindSite:
		return o.Sites
	case KindSchool:
		return o.Schools
	case KindClass:
		return o.Classes
	case KindCohort:
		return o.Cohorts
	}
	return nil
}

// Set replaces the id slice for the given kind.
func (o *OrgRefs) Set(kind UnitKind, ids []primitive.ObjectID) {
	switch kind {
	case KindSite:
		o.Sites = ids
	case KindSchool:
		o.Schools = ids
	case KindClass:
		o.Classes = ids
	case KindCohort:
		o.Cohorts = ids
	}
}

// Add appends ids of the given kind that are not already present.
// Returns the number of ids actually added.
func (o *OrgRefs) Add(kind UnitKind, ids ...primitive.ObjectID) int {
	have := make(map[primitive.ObjectID]struct{}, len(o.Of(kind)))
	for _, id := range o.Of(kind) {
		have[id] = struct{}{}
	}
	added := 0
	out := o.Of(kind)
	for _, id := range ids {
		if _, ok := have[id]; ok {
			continue
		}
		have[id] = struct{}{}
		out = append(out, id)
		added++
	}
	o.Set(kind, out)
	return added
}

// Contains reports whether the set holds the given id under the given kind.
func (o OrgRefs) Contains(kind UnitKind, id primitive.ObjectID) bool {
	for _, v := range o.Of(kind) {
		if v == id {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the set holds no ids of any kind.
func (o OrgRefs) IsEmpty() bool {
	return len(o.Sites) == 0 && len(o.Schools) == 0 && len(o.Classes) == 0 && len(o.Cohorts) == 0
}

// Len returns the total number of ids across all kinds.
func (o OrgRefs) Len() int {
	return len(o.Sites) + len(o.Schools) + len(o.Classes) + len(o.Cohorts)
}

// Union returns a new set holding every id of o and other, deduplicated.
func (o OrgRefs) Union(other OrgRefs) OrgRefs {
	var out OrgRefs
	for _, kind := range UnitKinds {
		out.Add(kind, o.Of(kind)...)
		out.Add(kind, other.Of(kind)...)
	}
	return out
}

// Dedupe returns a copy of the set with duplicate ids removed per kind.
func (o OrgRefs) Dedupe() OrgRefs {
	var out OrgRefs
	for _, kind := range UnitKinds {
		out.Add(kind, o.Of(kind)...)
	}
	return out
}

// Intersects reports whether the two sets share at least one id of any kind.
func (o OrgRefs) Intersects(other OrgRefs) bool {
	for _, kind := range UnitKinds {
		have := make(map[primitive.ObjectID]struct{}, len(o.Of(kind)))
		for _, id := range o.Of(kind) {
			have[id] = struct{}{}
		}
		for _, id := range other.Of(kind) {
			if _, ok := have[id]; ok {
				return true
			}
		}
	}
	return false
}
