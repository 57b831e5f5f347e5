// internal/app/assignsync/closure.go
package assignsync

import (
	"context"
	"sort"

	"github.com/dalemusser/assesshub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Resolver expands organizational-unit target sets to their exhaustive
// closure and resolves closures to member users.
//
// Containment is followed through the denormalized child-id lists on parent
// units: site→schools, site→classes (classes attached directly to a site),
// site→cohorts, school→classes. Ids whose documents no longer exist are
// silently excluded; the batched existence read below is what drops them.
type Resolver struct {
	db  *mongo.Database
	log *zap.Logger
}

// NewResolver constructs a Resolver over the given database.
func NewResolver(db *mongo.Database, logger *zap.Logger) *Resolver {
	return &Resolver{db: db, log: logger}
}

// unitDoc is the projection fetched during closure expansion: identity plus
// whichever child-list fields the unit kind carries.
type unitDoc struct {
	ID        primitive.ObjectID   `bson:"_id"`
	SchoolIDs []primitive.ObjectID `bson:"school_ids,omitempty"`
	ClassIDs  []primitive.ObjectID `bson:"class_ids,omitempty"`
	CohortIDs []primitive.ObjectID `bson:"cohort_ids,omitempty"`
}

// Closure computes the exhaustive closure of targets: every descendant unit
// implied by containment, starting from the supplied ids per kind.
//
// The expansion loops to a fixed point, one batched read per (kind,
// iteration). Dangling references are excluded rather than failing. Any
// store error aborts the whole computation.
func (r *Resolver) Closure(ctx context.Context, targets models.OrgRefs) (models.OrgRefs, error) {
	var closure models.OrgRefs
	frontier := targets.Dedupe()

	for !frontier.IsEmpty() {
		var next models.OrgRefs

		for _, kind := range models.UnitKinds {
			ids := frontier.Of(kind)
			if len(ids) == 0 {
				continue
			}

			docs, err := r.fetchUnits(ctx, kind, ids)
			if err != nil {
				return models.OrgRefs{}, err
			}

			for _, doc := range docs {
				if closure.Add(kind, doc.ID) == 0 {
					continue // already expanded
				}
				switch kind {
				case models.KindSite:
					next.Add(models.KindSchool, doc.SchoolIDs...)
					next.Add(models.KindClass, doc.ClassIDs...)
					next.Add(models.KindCohort, doc.CohortIDs...)
				case models.KindSchool:
					next.Add(models.KindClass, doc.ClassIDs...)
				}
			}
		}

		// Drop anything the closure already holds before the next pass.
		frontier = subtract(next, closure)
	}

	return closure, nil
}

// fetchUnits performs the batched existence read for one kind: a single
// $in query projecting only _id and child-list fields. Ids that match no
// document simply do not come back.
func (r *Resolver) fetchUnits(ctx context.Context, kind models.UnitKind, ids []primitive.ObjectID) ([]unitDoc, error) {
	coll := r.db.Collection(models.CollectionFor(kind))
	proj := options.Find().SetProjection(bson.M{
		"_id": 1, "school_ids": 1, "class_ids": 1, "cohort_ids": 1,
	})
	cur, err := coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, proj)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []unitDoc
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func findIDsOnly() *options.FindOptions {
	return options.Find().SetProjection(bson.M{"_id": 1})
}

// membershipField maps a unit kind to the users-collection field holding
// *current* membership of that kind.
func membershipField(kind models.UnitKind) string {
	switch kind {
	case models.KindSite:
		return "orgs.site_ids"
	case models.KindSchool:
		return "orgs.school_ids"
	case models.KindClass:
		return "orgs.class_ids"
	case models.KindCohort:
		return "orgs.cohort_ids"
	}
	return ""
}

// UsersOf resolves the set of users whose *current* membership intersects
// targets. Archived users are excluded unless includeArchived is set:
// removal paths pass true so stale assignments still get cleaned up,
// creation paths pass false so archived users never gain assignments.
//
// A kind with an empty id list is a no-op. The result is deduplicated and
// sorted for deterministic chunking.
func (r *Resolver) UsersOf(ctx context.Context, targets models.OrgRefs, includeArchived bool) ([]primitive.ObjectID, error) {
	users := r.db.Collection("users")
	seen := make(map[primitive.ObjectID]struct{})

	for _, kind := range models.UnitKinds {
		ids := targets.Of(kind)
		if len(ids) == 0 {
			continue
		}

		filter := bson.M{membershipField(kind): bson.M{"$in": ids}}
		if !includeArchived {
			filter["archived"] = bson.M{"$ne": true}
		}

		cur, err := users.Find(ctx, filter, findIDsOnly())
		if err != nil {
			return nil, err
		}
		for cur.Next(ctx) {
			var row struct {
				ID primitive.ObjectID `bson:"_id"`
			}
			if err := cur.Decode(&row); err != nil {
				cur.Close(ctx)
				return nil, err
			}
			seen[row.ID] = struct{}{}
		}
		if err := cur.Err(); err != nil {
			cur.Close(ctx)
			return nil, err
		}
		cur.Close(ctx)
	}

	out := make([]primitive.ObjectID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out, nil
}
