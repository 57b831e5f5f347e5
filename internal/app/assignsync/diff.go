// internal/app/assignsync/diff.go
package assignsync

import (
	"github.com/dalemusser/assesshub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Diff computes the per-kind set difference between a previous and a current
// target set: removed = prev \ curr, added = curr \ prev. Pure set
// arithmetic, no I/O.
//
// Used only on update. Creation treats the entire current set as added and
// deletion treats the entire stored set as removed; callers handle those
// cases directly.
func Diff(prev, curr models.OrgRefs) (added, removed models.OrgRefs) {
	return subtract(curr, prev), subtract(prev, curr)
}

// subtract returns a \ b per unit kind.
func subtract(a, b models.OrgRefs) models.OrgRefs {
	var out models.OrgRefs
	for _, kind := range models.UnitKinds {
		have := make(map[primitive.ObjectID]struct{}, len(b.Of(kind)))
		for _, id := range b.Of(kind) {
			have[id] = struct{}{}
		}
		for _, id := range a.Of(kind) {
			if _, ok := have[id]; !ok {
				out.Add(kind, id)
			}
		}
	}
	return out
}
