// internal/app/features/administrations/delete.go
package administrations

import (
	"context"
	"net/http"

	"github.com/dalemusser/assesshub/internal/app/features/apierr"
	"github.com/dalemusser/assesshub/internal/app/policy/adminpolicy"
	"github.com/dalemusser/assesshub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ServeDelete handles DELETE /api/administrations/{administrationID}.
//
// The document is removed first, then every assignment it produced. Removal
// needs no rollback: a partial removal is re-driven to completion by the
// change-triggered path, and removing an already-removed assignment is a
// no-op.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
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
		apierr.Write(w, apierr.CodePermissionDenied, "not allowed to manage this administration")
		return
	}

	if err := h.Admins.Delete(ctx, id); err != nil {
		apierr.Internal(w, h.Log, "failed to delete administration", err)
		return
	}

	if err := h.Engine.SyncDelete(ctx, admin); err != nil {
		// Assignments that survived this attempt are cleaned up by the
		// change-triggered path, so the delete itself still succeeded.
		h.Log.Error("assignment cleanup incomplete after delete",
			zap.String("administration_id", id.Hex()),
			zap.Error(err))
	}

	w.WriteHeader(http.StatusNoContent)
}
