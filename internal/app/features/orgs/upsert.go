// internal/app/features/orgs/upsert.go
package orgs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/assesshub/internal/app/features/apierr"
	orgunitstore "github.com/dalemusser/assesshub/internal/app/store/orgunits"
	"github.com/dalemusser/assesshub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/assesshub/internal/app/system/timeouts"
	"github.com/dalemusser/assesshub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// unitRequest is the JSON body for creating or updating an org unit. Parent
// fields are interpreted per kind: schools and classes require site_id,
// classes may carry school_id, cohorts may carry site_id.
type unitRequest struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	SiteID   string `json:"site_id,omitempty"`
	SchoolID string `json:"school_id,omitempty"`
}

func parseOptionalID(hex string) (*primitive.ObjectID, error) {
	if hex == "" {
		return nil, nil
	}
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil, err
	}
	return &oid, nil
}

// ServeUpsert handles POST /api/orgs/{kind}.
func (h *Handler) ServeUpsert(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(w, r)
	if !ok {
		return
	}

	var req unitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, apierr.CodeInvalidArgument, "malformed JSON body")
		return
	}
	if req.Name == "" {
		apierr.Write(w, apierr.CodeInvalidArgument, "name is required")
		return
	}
	name := htmlsanitize.StripTags(req.Name)

	var id primitive.ObjectID
	if req.ID != "" {
		oid, err := primitive.ObjectIDFromHex(req.ID)
		if err != nil {
			apierr.Write(w, apierr.CodeInvalidArgument, "invalid org unit id")
			return
		}
		id = oid
	}
	siteID, err := parseOptionalID(req.SiteID)
	if err != nil {
		apierr.Write(w, apierr.CodeInvalidArgument, "invalid site_id")
		return
	}
	schoolID, err := parseOptionalID(req.SchoolID)
	if err != nil {
		apierr.Write(w, apierr.CodeInvalidArgument, "invalid school_id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var (
		out    any
		upsErr error
	)
	switch kind {
	case models.KindSite:
		out, upsErr = h.Units.UpsertSite(ctx, models.Site{ID: id, Name: name})
	case models.KindSchool:
		if siteID == nil {
			apierr.Write(w, apierr.CodeInvalidArgument, "site_id is required for schools")
			return
		}
		out, upsErr = h.Units.UpsertSchool(ctx, models.School{ID: id, Name: name, SiteID: *siteID})
	case models.KindClass:
		if siteID == nil {
			apierr.Write(w, apierr.CodeInvalidArgument, "site_id is required for classes")
			return
		}
		out, upsErr = h.Units.UpsertClass(ctx, models.Class{ID: id, Name: name, SiteID: *siteID, SchoolID: schoolID})
	case models.KindCohort:
		out, upsErr = h.Units.UpsertCohort(ctx, models.Cohort{ID: id, Name: name, SiteID: siteID})
	}
	if upsErr != nil {
		if errors.Is(upsErr, orgunitstore.ErrCohortParentKind) {
			apierr.Write(w, apierr.CodeInvalidArgument, upsErr.Error())
			return
		}
		apierr.Internal(w, h.Log, "failed to save org unit", upsErr)
		return
	}

	status := http.StatusOK
	if req.ID == "" {
		status = http.StatusCreated
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(out)
}
