// internal/app/features/orgs/delete.go
package orgs

import (
	"context"
	"net/http"

	"github.com/dalemusser/assesshub/internal/app/features/apierr"
	"github.com/dalemusser/assesshub/internal/app/system/timeouts"
	"github.com/dalemusser/assesshub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ServeDelete handles DELETE /api/orgs/{kind}/{unitID}.
//
// Deleting a unit retargets every administration that covered it: the unit
// is removed from the minimal set and the standardized set is recomputed, so
// descendants the unit brought in drop out unless targeted independently.
// Users who belonged only to the unit lose the affected assignments through
// the same diff.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(w, r)
	if !ok {
		return
	}
	id, ok := parseUnitID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	if exists, err := h.Units.Exists(ctx, kind, id); err != nil {
		apierr.Internal(w, h.Log, "failed to load org unit", err)
		return
	} else if !exists {
		apierr.Write(w, apierr.CodeNotFound, "org unit not found")
		return
	}

	if err := h.retargetAdministrations(ctx, kind, id); err != nil {
		apierr.Internal(w, h.Log, "failed to retarget administrations", err)
		return
	}

	// Strip the unit from user memberships. The change-triggered path picks
	// up each membership change and reconciles that user's assignments.
	if n, err := h.Users.PullMembership(ctx, kind, id); err != nil {
		apierr.Internal(w, h.Log, "failed to remove unit from user memberships", err)
		return
	} else if n > 0 {
		h.Log.Info("removed deleted unit from user memberships",
			zap.String("kind", string(kind)),
			zap.String("unit_id", id.Hex()),
			zap.Int64("users", n))
	}

	if err := h.Units.Delete(ctx, kind, id); err != nil {
		apierr.Internal(w, h.Log, "failed to delete org unit", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// retargetAdministrations rewrites each administration that targeted the
// deleted unit and syncs the resulting assignment diff.
func (h *Handler) retargetAdministrations(ctx context.Context, kind models.UnitKind, id primitive.ObjectID) error {
	affected, err := h.Admins.ListByOrg(ctx, kind, id)
	if err != nil {
		return err
	}

	for _, prev := range affected {
		minimal := withoutUnit(prev.MinimalOrgs, kind, id)

		orgs, err := h.Engine.Standardize(ctx, minimal)
		if err != nil {
			return err
		}

		curr := prev
		curr.MinimalOrgs = minimal
		curr.Orgs = orgs
		if _, err := h.Admins.Update(ctx, curr); err != nil {
			return err
		}
		if err := h.Engine.SyncUpdate(ctx, prev, curr); err != nil {
			return err
		}
	}

	// Administrations written between the snapshot above and now may still
	// reference the unit; strip it so no stale reference survives.
	if n, err := h.Admins.PullOrg(ctx, kind, id); err != nil {
		return err
	} else if n > 0 {
		h.Log.Warn("stripped deleted unit from administrations written mid-delete",
			zap.String("kind", string(kind)),
			zap.String("unit_id", id.Hex()),
			zap.Int64("administrations", n))
	}
	return nil
}

func withoutUnit(refs models.OrgRefs, kind models.UnitKind, id primitive.ObjectID) models.OrgRefs {
	out := refs
	kept := make([]primitive.ObjectID, 0, len(refs.Of(kind)))
	for _, v := range refs.Of(kind) {
		if v != id {
			kept = append(kept, v)
		}
	}
	out.Set(kind, kept)
	return out
}
