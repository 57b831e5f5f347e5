// internal/app/features/administrations/list.go
package administrations

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/assesshub/internal/app/features/apierr"
	"github.com/dalemusser/assesshub/internal/app/policy/adminpolicy"
	"github.com/dalemusser/assesshub/internal/app/system/authz"
	"github.com/dalemusser/assesshub/internal/app/system/timeouts"
	"github.com/dalemusser/assesshub/internal/domain/models"
)

// ServeList handles GET /api/administrations.
// Admins see every administration; teachers see the ones they created.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ut, _, uid, ok := authz.UserCtx(r)
	if !ok {
		apierr.Write(w, apierr.CodeUnauthorized, "unauthorized")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var (
		admins []models.Administration
		err    error
	)
	switch ut {
	case "admin":
		admins, err = h.Admins.List(ctx)
	case "teacher":
		admins, err = h.Admins.ListByCreator(ctx, uid)
	default:
		apierr.Write(w, apierr.CodePermissionDenied, "forbidden")
		return
	}
	if err != nil {
		apierr.Internal(w, h.Log, "failed to list administrations", err)
		return
	}
	if admins == nil {
		admins = []models.Administration{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(admins)
}

// ServeGet handles GET /api/administrations/{administrationID}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	admin, err := h.Admins.GetByID(ctx, id)
	if err != nil {
		apierr.NotFoundOrInternal(w, h.Log, "administration", err)
		return
	}
	if allowed, err := adminpolicy.CanManageAdministration(ctx, h.DB, r, &admin); err != nil {
		apierr.Internal(w, h.Log, "authorization check failed", err)
		return
	} else if !allowed {
		apierr.Write(w, apierr.CodePermissionDenied, "not allowed to view this administration")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(admin)
}

// ServeAssignments handles GET /api/administrations/{administrationID}/assignments.
func (h *Handler) ServeAssignments(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	admin, err := h.Admins.GetByID(ctx, id)
	if err != nil {
		apierr.NotFoundOrInternal(w, h.Log, "administration", err)
		return
	}
	if allowed, err := adminpolicy.CanManageAdministration(ctx, h.DB, r, &admin); err != nil {
		apierr.Internal(w, h.Log, "authorization check failed", err)
		return
	} else if !allowed {
		apierr.Write(w, apierr.CodePermissionDenied, "not allowed to view this administration")
		return
	}

	assignments, err := h.Assignments.ListByAdministration(ctx, id)
	if err != nil {
		apierr.Internal(w, h.Log, "failed to list assignments", err)
		return
	}
	if assignments == nil {
		assignments = []models.Assignment{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(assignments)
}
