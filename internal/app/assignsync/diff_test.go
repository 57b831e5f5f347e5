package assignsync

import (
	"testing"
	"time"

	"github.com/dalemusser/assesshub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func refs(sites, schools, classes, cohorts []primitive.ObjectID) models.OrgRefs {
	var o models.OrgRefs
	o.Set(models.KindSite, sites)
	o.Set(models.KindSchool, schools)
	o.Set(models.KindClass, classes)
	o.Set(models.KindCohort, cohorts)
	return o
}

func ids(n int) []primitive.ObjectID {
	out := make([]primitive.ObjectID, n)
	for i := range out {
		out[i] = primitive.NewObjectID()
	}
	return out
}

func TestDiff(t *testing.T) {
	shared := ids(2)
	onlyPrev := ids(1)
	onlyCurr := ids(1)

	prev := refs(nil, nil, append(append([]primitive.ObjectID{}, shared...), onlyPrev...), nil)
	curr := refs(nil, nil, append(append([]primitive.ObjectID{}, shared...), onlyCurr...), nil)

	added, removed := Diff(prev, curr)

	if added.Len() != 1 || !added.Contains(models.KindClass, onlyCurr[0]) {
		t.Errorf("added: got %+v, want exactly the new class", added)
	}
	if removed.Len() != 1 || !removed.Contains(models.KindClass, onlyPrev[0]) {
		t.Errorf("removed: got %+v, want exactly the dropped class", removed)
	}
}

func TestDiff_Identical(t *testing.T) {
	set := refs(ids(1), ids(2), ids(3), nil)
	added, removed := Diff(set, set)
	if !added.IsEmpty() || !removed.IsEmpty() {
		t.Errorf("identical sets must diff to empty, got added=%+v removed=%+v", added, removed)
	}
}

func TestDiff_CompletenessAcrossKinds(t *testing.T) {
	// Every id must land in exactly one of kept/added/removed.
	prev := refs(ids(2), ids(2), ids(2), ids(2))
	curr := refs(prev.Sites[:1], ids(2), prev.Classes, nil)

	added, removed := Diff(prev, curr)
	kept := subtract(curr, added)

	for _, kind := range models.UnitKinds {
		for _, id := range curr.Of(kind) {
			inAdded := added.Contains(kind, id)
			inKept := kept.Contains(kind, id)
			if inAdded == inKept {
				t.Errorf("%s %s: must be in exactly one of added/kept", kind, id.Hex())
			}
		}
		for _, id := range prev.Of(kind) {
			inRemoved := removed.Contains(kind, id)
			inKept := kept.Contains(kind, id)
			if inRemoved && inKept {
				t.Errorf("%s %s: cannot be both removed and kept", kind, id.Hex())
			}
			if !inRemoved && !curr.Contains(kind, id) {
				t.Errorf("%s %s: dropped from curr but not marked removed", kind, id.Hex())
			}
		}
	}

	if added.Len()+kept.Len() != curr.Len() {
		t.Errorf("added+kept = %d, want %d", added.Len()+kept.Len(), curr.Len())
	}
}

func TestSameRefs(t *testing.T) {
	classes := ids(2)
	a := refs(nil, nil, classes, nil)
	b := refs(nil, nil, []primitive.ObjectID{classes[1], classes[0]}, nil)
	if !sameRefs(a, b) {
		t.Error("order must not affect set equality")
	}

	c := refs(nil, nil, classes[:1], nil)
	if sameRefs(a, c) {
		t.Error("different sets reported equal")
	}
}

func TestSplitTargets(t *testing.T) {
	orgs := refs(ids(3), ids(3), ids(3), ids(3))

	chunks := SplitTargets(orgs, 5)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks of <=5 from 12 units, got %d", len(chunks))
	}

	total := 0
	var union models.OrgRefs
	for i, c := range chunks {
		if c.Len() > 5 {
			t.Errorf("chunk %d has %d units, cap is 5", i, c.Len())
		}
		total += c.Len()
		union = union.Union(c)
	}
	if total != orgs.Len() {
		t.Errorf("chunks hold %d units, want %d", total, orgs.Len())
	}
	if !sameRefs(union, orgs) {
		t.Error("union of chunks must equal the input set")
	}
}

func TestSplitTargets_Empty(t *testing.T) {
	if chunks := SplitTargets(models.OrgRefs{}, 10); len(chunks) != 0 {
		t.Errorf("empty set must yield no chunks, got %d", len(chunks))
	}
}

func TestSplitTargets_DefaultSize(t *testing.T) {
	orgs := refs(nil, nil, ids(150), nil)
	chunks := SplitTargets(orgs, 0)
	if len(chunks) != 2 {
		t.Errorf("size 0 must fall back to 100 per chunk: got %d chunks", len(chunks))
	}
}

func TestModeString(t *testing.T) {
	cases := map[Mode]string{ModeAdd: "add", ModeUpdate: "update", ModeRemove: "remove", Mode(99): "unknown"}
	for m, want := range cases {
		if got := m.String(); got != want {
			t.Errorf("Mode(%d).String(): got %q, want %q", m, got, want)
		}
	}
}

func TestAssignmentContentEqual(t *testing.T) {
	opened := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	closed := opened.AddDate(0, 1, 0)
	base := models.Administration{
		Sequential: true,
		DateOpened: opened,
		DateClosed: closed,
		Assessments: []models.Assessment{
			{TaskID: "vocab", VariantID: "vocab-default"},
		},
	}

	same := base
	// Equal instants in different locations still count as equal.
	same.DateOpened = opened.In(time.FixedZone("X", 3600))
	if !assignmentContentEqual(base, same) {
		t.Error("expected equal content to compare equal")
	}

	flipped := base
	flipped.Sequential = false
	if assignmentContentEqual(base, flipped) {
		t.Error("sequential flag change must not compare equal")
	}

	variant := base
	variant.Assessments = []models.Assessment{{TaskID: "vocab", VariantID: "vocab-es"}}
	if assignmentContentEqual(base, variant) {
		t.Error("variant change must not compare equal")
	}

	extra := base
	extra.Assessments = append([]models.Assessment{}, base.Assessments...)
	extra.Assessments = append(extra.Assessments, models.Assessment{TaskID: "sre", VariantID: "sre-default"})
	if assignmentContentEqual(base, extra) {
		t.Error("added assessment must not compare equal")
	}
}
