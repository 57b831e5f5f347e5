// internal/app/features/administrations/upsert.go
package administrations

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/assesshub/internal/app/assignsync"
	"github.com/dalemusser/assesshub/internal/app/features/apierr"
	"github.com/dalemusser/assesshub/internal/app/policy/adminpolicy"
	"github.com/dalemusser/assesshub/internal/app/system/authz"
	"github.com/dalemusser/assesshub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/assesshub/internal/app/system/timeouts"
	"github.com/dalemusser/assesshub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ServeCreate handles POST /api/administrations.
//
// The standardized target set, governing site, administration document, and
// every user's assignment are produced inside this request. A mid-flight
// failure rolls the whole creation back, so the caller never observes a
// half-created administration.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	if !adminpolicy.CanCreateAdministration(r) {
		apierr.Write(w, apierr.CodePermissionDenied, "only admins and teachers can create administrations")
		return
	}
	_, _, uid, _ := authz.UserCtx(r)

	var req administrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, apierr.CodeInvalidArgument, "malformed JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		apierr.Write(w, apierr.CodeInvalidArgument, msg)
		return
	}

	minimal, err := req.Orgs.toRefs()
	if err != nil {
		apierr.Write(w, apierr.CodeInvalidArgument, err.Error())
		return
	}
	if minimal.IsEmpty() {
		apierr.Write(w, apierr.CodeInvalidArgument, "at least one target org unit is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	if msg, err := h.checkUnitsExist(ctx, minimal); err != nil {
		apierr.Internal(w, h.Log, "failed to verify target org units", err)
		return
	} else if msg != "" {
		apierr.Write(w, apierr.CodeInvalidArgument, msg)
		return
	}

	orgs, err := h.Engine.Standardize(ctx, minimal)
	if err != nil {
		apierr.Internal(w, h.Log, "failed to expand target org units", err)
		return
	}
	siteID, err := h.Engine.ResolveSiteID(ctx, orgs)
	if err != nil {
		if errors.Is(err, assignsync.ErrNoSite) {
			apierr.Write(w, apierr.CodeInvalidArgument, "targets do not resolve to a site")
			return
		}
		apierr.Internal(w, h.Log, "failed to resolve governing site", err)
		return
	}

	admin := models.Administration{
		Name:        htmlsanitize.StripTags(req.Name),
		Assessments: req.Assessments,
		DateOpened:  req.DateOpened.UTC(),
		DateClosed:  req.DateClosed.UTC(),
		MinimalOrgs: minimal,
		Orgs:        orgs,
		SiteID:      siteID,
		CreatedBy:   uid,
		Sequential:  req.Sequential,
		Tags:        req.Tags,
		Legal:       sanitizeLegal(req.Legal),
	}

	created, err := h.Admins.Create(ctx, admin)
	if err != nil {
		apierr.Internal(w, h.Log, "failed to create administration", err)
		return
	}

	if err := h.Engine.SyncCreate(ctx, created); err != nil {
		// The engine has already rolled the creation back, including the
		// administration document itself.
		h.Log.Error("assignment sync failed; creation rolled back",
			zap.String("administration_id", created.ID.Hex()),
			zap.Error(err))
		apierr.Write(w, apierr.CodeInternal, "assignment sync failed; administration was not created")
		return
	}

	h.respondWithFresh(w, ctx, created.ID, http.StatusCreated)
}

// ServeUpdate handles PUT /api/administrations/{administrationID}.
//
// The body is a full replacement of the definition. Retargeting is a diff
// against the previous standardized set: newly covered users gain
// assignments, no-longer-covered users lose them, and everyone kept gets the
// refreshed content.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req administrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, apierr.CodeInvalidArgument, "malformed JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		apierr.Write(w, apierr.CodeInvalidArgument, msg)
		return
	}

	minimal, err := req.Orgs.toRefs()
	if err != nil {
		apierr.Write(w, apierr.CodeInvalidArgument, err.Error())
		return
	}
	if minimal.IsEmpty() {
		apierr.Write(w, apierr.CodeInvalidArgument, "at least one target org unit is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	prev, err := h.Admins.GetByID(ctx, id)
	if err != nil {
		apierr.NotFoundOrInternal(w, h.Log, "administration", err)
		return
	}
	if allowed, err := adminpolicy.CanManageAdministration(ctx, h.DB, r, &prev); err != nil {
		apierr.Internal(w, h.Log, "authorization check failed", err)
		return
	} else if !allowed {
		apierr.Write(w, apierr.CodePermissionDenied, "not allowed to manage this administration")
		return
	}

	if msg, err := h.checkUnitsExist(ctx, minimal); err != nil {
		apierr.Internal(w, h.Log, "failed to verify target org units", err)
		return
	} else if msg != "" {
		apierr.Write(w, apierr.CodeInvalidArgument, msg)
		return
	}

	orgs, err := h.Engine.Standardize(ctx, minimal)
	if err != nil {
		apierr.Internal(w, h.Log, "failed to expand target org units", err)
		return
	}
	siteID, err := h.Engine.ResolveSiteID(ctx, orgs)
	if err != nil {
		if errors.Is(err, assignsync.ErrNoSite) {
			apierr.Write(w, apierr.CodeInvalidArgument, "targets do not resolve to a site")
			return
		}
		apierr.Internal(w, h.Log, "failed to resolve governing site", err)
		return
	}

	curr := prev
	curr.Name = htmlsanitize.StripTags(req.Name)
	curr.Assessments = req.Assessments
	curr.DateOpened = req.DateOpened.UTC()
	curr.DateClosed = req.DateClosed.UTC()
	curr.MinimalOrgs = minimal
	curr.Orgs = orgs
	curr.SiteID = siteID
	curr.Sequential = req.Sequential
	curr.Tags = req.Tags
	curr.Legal = sanitizeLegal(req.Legal)

	if _, err := h.Admins.Update(ctx, curr); err != nil {
		apierr.Internal(w, h.Log, "failed to update administration", err)
		return
	}

	if err := h.Engine.SyncUpdate(ctx, prev, curr); err != nil {
		h.Log.Error("assignment sync failed during update",
			zap.String("administration_id", curr.ID.Hex()),
			zap.Error(err))
		apierr.Write(w, apierr.CodeInternal, syncUpdateFailureMessage(h.Engine.FullUpdateRollback()))
		return
	}

	h.respondWithFresh(w, ctx, curr.ID, http.StatusOK)
}

// syncUpdateFailureMessage describes what state a failed update sync left
// behind. Under the default partial policy the updated definition stays
// committed and only this operation's assignment writes were compensated;
// under full rollback the previous definition was restored.
func syncUpdateFailureMessage(fullRollback bool) string {
	if fullRollback {
		return "assignment sync failed; the administration was restored to its previous state"
	}
	return "assignment sync failed; the update is saved and assignments will reconcile in the background"
}

// checkUnitsExist verifies every explicitly targeted unit id refers to a
// real document. Returns a caller-facing message for the first missing unit.
func (h *Handler) checkUnitsExist(ctx context.Context, refs models.OrgRefs) (string, error) {
	for _, kind := range models.UnitKinds {
		for _, id := range refs.Of(kind) {
			ok, err := h.OrgUnits.Exists(ctx, kind, id)
			if err != nil {
				return "", err
			}
			if !ok {
				return "unknown " + string(kind) + " id " + id.Hex(), nil
			}
		}
	}
	return "", nil
}

func sanitizeLegal(l *models.Legal) *models.Legal {
	if l == nil {
		return nil
	}
	return &models.Legal{
		Consent:      htmlsanitize.Sanitize(l.Consent),
		Assent:       htmlsanitize.Sanitize(l.Assent),
		ExpectedTime: htmlsanitize.StripTags(l.ExpectedTime),
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "administrationID"))
	if err != nil {
		apierr.Write(w, apierr.CodeInvalidArgument, "invalid administration id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// respondWithFresh reloads the administration so the response carries the
// stats the sync just produced.
func (h *Handler) respondWithFresh(w http.ResponseWriter, ctx context.Context, id primitive.ObjectID, status int) {
	fresh, err := h.Admins.GetByID(ctx, id)
	if err != nil {
		apierr.Internal(w, h.Log, "failed to reload administration", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(fresh)
}
