// internal/app/assignsync/userchange.go
package assignsync

import (
	"context"
	"time"

	"github.com/dalemusser/assesshub/internal/app/system/txn"
	"github.com/dalemusser/assesshub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// HandleUserChange re-syncs a single user after a write to their document.
//
// It derives everything from the snapshots and the store: the user's
// assignments must end up equal to the set of administrations whose
// standardized closure intersects the user's *current* membership. Archived
// users keep existing assignments but gain none. A deleted user loses all
// assignments.
//
// Like the administration path this is idempotent: re-delivery of the same
// change, or overlap with the synchronous path, converges on the same state.
func (e *Engine) HandleUserChange(ctx context.Context, before, after *models.User) error {
	if after == nil {
		if before == nil {
			return nil
		}
		return e.removeAllAssignments(ctx, before.ID)
	}

	// Membership and archival state drive assignment sync; other profile
	// edits are not our concern.
	if before != nil && before.Archived == after.Archived && sameRefs(before.Orgs, after.Orgs) {
		return nil
	}

	want, err := e.administrationsCovering(ctx, after.Orgs)
	if err != nil {
		return err
	}
	have, err := e.assignmentsHeld(ctx, after.ID)
	if err != nil {
		return err
	}

	var toAdd []models.Administration
	if !after.Archived {
		for _, admin := range want {
			if _, ok := have[admin.ID]; !ok {
				toAdd = append(toAdd, admin)
			}
		}
	}
	wantIDs := make(map[primitive.ObjectID]struct{}, len(want))
	for _, admin := range want {
		wantIDs[admin.ID] = struct{}{}
	}
	var toRemove []primitive.ObjectID
	for id := range have {
		if _, ok := wantIDs[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}

	if len(toAdd) == 0 && len(toRemove) == 0 {
		return nil
	}

	e.log.Info("user membership change sync",
		zap.String("user", after.ID.Hex()),
		zap.Int("adding", len(toAdd)),
		zap.Int("removing", len(toRemove)))

	return txn.Run(ctx, e.db, e.log, func(ctx context.Context) error {
		now := time.Now().UTC()
		for _, admin := range toAdd {
			res, err := e.db.Collection("assignments").UpdateOne(ctx,
				bson.M{"user_id": after.ID, "administration_id": admin.ID},
				bson.M{"$setOnInsert": bson.M{
					"user_id":           after.ID,
					"administration_id": admin.ID,
					"assessments":       admin.Assessments,
					"sequential":        admin.Sequential,
					"date_opened":       admin.DateOpened,
					"date_closed":       admin.DateClosed,
					"started":           false,
					"completed":         false,
					"date_assigned":     now,
					"created_at":        now,
					"updated_at":        now,
				}},
				options.Update().SetUpsert(true))
			if err != nil {
				return err
			}
			if _, err := e.db.Collection("users").UpdateOne(ctx,
				bson.M{"_id": after.ID},
				bson.M{"$addToSet": bson.M{"administrations": admin.ID}}); err != nil {
				return err
			}
			if res.UpsertedCount > 0 {
				if err := e.stats.IncrementAssigned(ctx, admin.ID, 1); err != nil {
					return err
				}
			}
		}
		for _, adminID := range toRemove {
			res, err := e.db.Collection("assignments").DeleteOne(ctx,
				bson.M{"user_id": after.ID, "administration_id": adminID})
			if err != nil {
				return err
			}
			if _, err := e.db.Collection("users").UpdateOne(ctx,
				bson.M{"_id": after.ID},
				bson.M{"$pull": bson.M{"administrations": adminID}}); err != nil {
				return err
			}
			if res.DeletedCount > 0 {
				if err := e.stats.IncrementAssigned(ctx, adminID, -1); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// administrationsCovering returns every administration whose standardized
// target set intersects the given membership. Because stored targets are
// always the exhaustive closure, a direct per-kind $in match suffices — no
// hierarchy walk at query time.
func (e *Engine) administrationsCovering(ctx context.Context, orgs models.OrgRefs) ([]models.Administration, error) {
	var or []bson.M
	if len(orgs.Sites) > 0 {
		or = append(or, bson.M{"orgs.site_ids": bson.M{"$in": orgs.Sites}})
	}
	if len(orgs.Schools) > 0 {
		or = append(or, bson.M{"orgs.school_ids": bson.M{"$in": orgs.Schools}})
	}
	if len(orgs.Classes) > 0 {
		or = append(or, bson.M{"orgs.class_ids": bson.M{"$in": orgs.Classes}})
	}
	if len(orgs.Cohorts) > 0 {
		or = append(or, bson.M{"orgs.cohort_ids": bson.M{"$in": orgs.Cohorts}})
	}
	if len(or) == 0 {
		return nil, nil
	}

	cur, err := e.db.Collection("administrations").Find(ctx, bson.M{"$or": or})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Administration
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// assignmentsHeld returns the administration ids the user currently holds
// an assignment for, read from the assignment documents themselves rather
// than the denormalized index.
func (e *Engine) assignmentsHeld(ctx context.Context, userID primitive.ObjectID) (map[primitive.ObjectID]struct{}, error) {
	cur, err := e.db.Collection("assignments").Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetProjection(bson.M{"administration_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[primitive.ObjectID]struct{})
	for cur.Next(ctx) {
		var row struct {
			AdministrationID primitive.ObjectID `bson:"administration_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.AdministrationID] = struct{}{}
	}
	return out, cur.Err()
}

// removeAllAssignments clears a deleted user's assignments and reverses the
// assigned counter of each affected administration.
func (e *Engine) removeAllAssignments(ctx context.Context, userID primitive.ObjectID) error {
	held, err := e.assignmentsHeld(ctx, userID)
	if err != nil {
		return err
	}
	if len(held) == 0 {
		return nil
	}
	if _, err := e.db.Collection("assignments").DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return err
	}
	for adminID := range held {
		if err := e.stats.IncrementAssigned(ctx, adminID, -1); err != nil {
			return err
		}
	}
	return nil
}

// sameRefs reports per-kind set equality of two org ref sets.
func sameRefs(a, b models.OrgRefs) bool {
	return subtract(a, b).IsEmpty() && subtract(b, a).IsEmpty()
}
