// internal/app/features/administrations/types.go
package administrations

import (
	"fmt"
	"time"

	"github.com/dalemusser/assesshub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// orgRefsPayload carries targeted org units as hex strings on the wire.
type orgRefsPayload struct {
	SiteIDs   []string `json:"site_ids,omitempty"`
	SchoolIDs []string `json:"school_ids,omitempty"`
	ClassIDs  []string `json:"class_ids,omitempty"`
	CohortIDs []string `json:"cohort_ids,omitempty"`
}

func (p orgRefsPayload) toRefs() (models.OrgRefs, error) {
	var refs models.OrgRefs
	for _, kv := range []struct {
		kind models.UnitKind
		hex  []string
	}{
		{models.KindSite, p.SiteIDs},
		{models.KindSchool, p.SchoolIDs},
		{models.KindClass, p.ClassIDs},
		{models.KindCohort, p.CohortIDs},
	} {
		ids := make([]primitive.ObjectID, 0, len(kv.hex))
		for _, h := range kv.hex {
			oid, err := primitive.ObjectIDFromHex(h)
			if err != nil {
				return models.OrgRefs{}, fmt.Errorf("invalid %s id %q", kv.kind, h)
			}
			ids = append(ids, oid)
		}
		refs.Set(kv.kind, ids)
	}
	return refs.Dedupe(), nil
}

// administrationRequest is the JSON body for create and update. Update is a
// full replacement of the definition; fields left out fall back to zero
// values, the same as create.
type administrationRequest struct {
	Name        string              `json:"name"`
	Assessments []models.Assessment `json:"assessments"`
	DateOpened  time.Time           `json:"date_opened"`
	DateClosed  time.Time           `json:"date_closed"`
	Orgs        orgRefsPayload      `json:"orgs"`
	Sequential  bool                `json:"sequential"`
	Tags        []string            `json:"tags,omitempty"`
	Legal       *models.Legal       `json:"legal,omitempty"`
}

func (req *administrationRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if len(req.Assessments) == 0 {
		return "at least one assessment is required"
	}
	for i, a := range req.Assessments {
		if a.TaskID == "" {
			return fmt.Sprintf("assessments[%d]: task_id is required", i)
		}
	}
	if req.DateOpened.IsZero() || req.DateClosed.IsZero() {
		return "date_opened and date_closed are required"
	}
	if req.DateClosed.Before(req.DateOpened) {
		return "date_closed must not be before date_opened"
	}
	return ""
}
