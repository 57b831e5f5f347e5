// internal/app/assignsync/engine.go

// Package assignsync is the administration-to-assignment synchronization
// engine: given an administration targeting organizational units, it
// determines every affected user, creates or updates per-user assignment
// documents, and keeps that mapping consistent as the administration or a
// user's membership changes.
//
// Two entry points feed the same pipeline: the synchronous path (the
// administrations API handlers) and the change-triggered path (the change
// stream watcher). Both are safe to run for the same mutation, in either
// order, any number of times: every write is idempotent and the triggered
// path derives its actions purely from the before/after snapshots, never
// from a processed flag.
package assignsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/assesshub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ErrNoSite is returned when an administration's governing site cannot be
// resolved from its targets.
var ErrNoSite = errors.New("no governing site resolvable from targets")

// Config tunes the engine's chunking and rollback behavior.
type Config struct {
	// OrgChunkSize is the number of organizational units per closure chunk
	// (default 100). This bounds the read phase of each chunk.
	OrgChunkSize int
	// WriteBatchSize is the maximum write operations per transaction
	// (default 500). This is the store's bounded-atomic-unit budget.
	WriteBatchSize int
	// IndexCap bounds a user's assigned-administrations index; a user at
	// the cap is skipped with a warning rather than failing the batch.
	// 0 disables the check.
	IndexCap int
	// FullUpdateRollback selects the stricter update policy: when the sync
	// step of an update fails, the administration document itself is
	// restored to its previous state instead of being left committed for
	// the triggered path to finish. Off by default, matching the
	// availability-over-consistency posture of the create/update asymmetry.
	FullUpdateRollback bool
}

func (c Config) withDefaults() Config {
	if c.OrgChunkSize <= 0 {
		c.OrgChunkSize = 100
	}
	if c.WriteBatchSize <= 0 {
		c.WriteBatchSize = 500
	}
	return c
}

// ChunkApplier applies one closure chunk. *Writer is the production
// implementation; tests substitute failing wrappers to exercise rollback.
type ChunkApplier interface {
	ApplyChunk(ctx context.Context, chunk models.OrgRefs, admin models.Administration, mode Mode) (ChunkResult, error)
}

// Engine orchestrates closure expansion, chunked application, stats, and
// rollback for one administration mutation at a time. Chunks are processed
// sequentially; all coordination state lives on the call stack.
type Engine struct {
	db  *mongo.Database
	log *zap.Logger
	cfg Config

	resolver *Resolver
	stats    *Stats
	applier  ChunkApplier
}

// New constructs an Engine with the production writer as its chunk applier.
func New(db *mongo.Database, logger *zap.Logger, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	resolver := NewResolver(db, logger)
	stats := NewStats(db, logger)
	return &Engine{
		db:       db,
		log:      logger,
		cfg:      cfg,
		resolver: resolver,
		stats:    stats,
		applier:  NewWriter(db, logger, resolver, stats, cfg.WriteBatchSize, cfg.IndexCap),
	}
}

// Resolver exposes the engine's hierarchy resolver.
func (e *Engine) Resolver() *Resolver { return e.resolver }

// FullUpdateRollback reports whether a failed update sync restores the
// administration document itself, rather than leaving the committed
// definition for the triggered path to reconcile.
func (e *Engine) FullUpdateRollback() bool { return e.cfg.FullUpdateRollback }

// Standardize expands targets to their exhaustive closure. The stored
// target set of an administration is always the closure, never a partial
// expansion.
func (e *Engine) Standardize(ctx context.Context, targets models.OrgRefs) (models.OrgRefs, error) {
	return e.resolver.Closure(ctx, targets)
}

// ResolveSiteID determines the governing top-level site for a target set:
// the first explicitly targeted site, or the parent site walked up from
// whatever unit is targeted. Returns ErrNoSite when nothing resolves.
func (e *Engine) ResolveSiteID(ctx context.Context, targets models.OrgRefs) (primitive.ObjectID, error) {
	if len(targets.Sites) > 0 {
		return targets.Sites[0], nil
	}

	type parentDoc struct {
		SiteID *primitive.ObjectID `bson:"site_id"`
	}
	lookups := []struct {
		kind models.UnitKind
		ids  []primitive.ObjectID
	}{
		{models.KindSchool, targets.Schools},
		{models.KindClass, targets.Classes},
		{models.KindCohort, targets.Cohorts},
	}
	for _, l := range lookups {
		if len(l.ids) == 0 {
			continue
		}
		var doc parentDoc
		err := e.db.Collection(models.CollectionFor(l.kind)).
			FindOne(ctx, bson.M{"_id": bson.M{"$in": l.ids}},
				options.FindOne().SetProjection(bson.M{"site_id": 1})).
			Decode(&doc)
		if err == mongo.ErrNoDocuments {
			continue
		}
		if err != nil {
			return primitive.NilObjectID, err
		}
		if doc.SiteID != nil && !doc.SiteID.IsZero() {
			return *doc.SiteID, nil
		}
	}
	return primitive.NilObjectID, ErrNoSite
}

// SyncCreate fans a brand-new administration out to every member of its
// closure. If any chunk fails, everything committed so far — including the
// administration record itself — is rolled back before the error surfaces:
// a created administration is all-or-nothing from the caller's view.
func (e *Engine) SyncCreate(ctx context.Context, admin models.Administration) error {
	coord := NewCoordinator(e.db, e.log, e.stats, admin, true, e.cfg.WriteBatchSize)
	chunks := SplitTargets(admin.Orgs, e.cfg.OrgChunkSize)

	e.log.Info("administration create sync started",
		zap.String("op", coord.OpID()),
		zap.String("administration", admin.ID.Hex()),
		zap.Int("target_units", admin.Orgs.Len()),
		zap.Int("chunks", len(chunks)))

	for i, chunk := range chunks {
		res, err := e.applier.ApplyChunk(ctx, chunk, admin, ModeAdd)
		coord.Record(res)
		if err != nil {
			coord.Rollback(ctx)
			return fmt.Errorf("create sync chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}

	e.log.Info("administration create sync complete",
		zap.String("op", coord.OpID()),
		zap.String("administration", admin.ID.Hex()))
	return nil
}

// SyncUpdate reconciles assignments after an administration definition
// change: members of removed units lose their assignment, members of added
// units gain one, and everyone still inside the closure gets the new
// content merged in (progress untouched).
//
// On chunk failure the user-level effects of this operation are compensated
// but the administration document stays committed — callers treat the
// result as eventually consistent, with the change-triggered path as the
// safety net — unless FullUpdateRollback is set, in which case the previous
// document is restored as well.
func (e *Engine) SyncUpdate(ctx context.Context, prev, curr models.Administration) error {
	added, removed := Diff(prev.Orgs, curr.Orgs)
	kept := subtract(curr.Orgs, added)

	coord := NewCoordinator(e.db, e.log, e.stats, curr, false, e.cfg.WriteBatchSize)

	type pass struct {
		mode Mode
		orgs models.OrgRefs
	}
	passes := []pass{
		{ModeRemove, removed},
		{ModeAdd, added},
		{ModeUpdate, kept},
	}

	e.log.Info("administration update sync started",
		zap.String("op", coord.OpID()),
		zap.String("administration", curr.ID.Hex()),
		zap.Int("added_units", added.Len()),
		zap.Int("removed_units", removed.Len()),
		zap.Int("kept_units", kept.Len()))

	for _, p := range passes {
		if p.orgs.IsEmpty() {
			continue
		}
		for i, chunk := range SplitTargets(p.orgs, e.cfg.OrgChunkSize) {
			res, err := e.applier.ApplyChunk(ctx, chunk, curr, p.mode)
			coord.Record(res)
			if err != nil {
				coord.Rollback(ctx)
				if e.cfg.FullUpdateRollback {
					e.restoreAdministration(ctx, prev, coord.OpID())
				}
				return fmt.Errorf("update sync %s chunk %d: %w", p.mode, i+1, err)
			}
		}
	}

	e.log.Info("administration update sync complete",
		zap.String("op", coord.OpID()),
		zap.String("administration", curr.ID.Hex()))
	return nil
}

// restoreAdministration puts the previous administration document back
// (strict update-rollback policy only). Failure is logged, not returned:
// the chunk error is the one the caller must see.
func (e *Engine) restoreAdministration(ctx context.Context, prev models.Administration, opID string) {
	ctx = context.WithoutCancel(ctx)
	if _, err := e.db.Collection("administrations").
		ReplaceOne(ctx, bson.M{"_id": prev.ID}, prev); err != nil {
		e.log.Error("strict update rollback: administration restore failed",
			zap.String("op", opID),
			zap.String("administration", prev.ID.Hex()),
			zap.Error(err))
	}
}

// SyncDelete desubscribes every user in the administration's stored closure
// — archived users included, so stale assignments are cleaned up — and
// strips the id from the creator's created index. Idempotent and
// re-runnable; there is nothing to roll back on a deletion.
func (e *Engine) SyncDelete(ctx context.Context, admin models.Administration) error {
	chunks := SplitTargets(admin.Orgs, e.cfg.OrgChunkSize)

	e.log.Info("administration delete sync started",
		zap.String("administration", admin.ID.Hex()),
		zap.Int("chunks", len(chunks)))

	for i, chunk := range chunks {
		if _, err := e.applier.ApplyChunk(ctx, chunk, admin, ModeRemove); err != nil {
			return fmt.Errorf("delete sync chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}

	// Repeating this on the triggered path is harmless; $pull of an absent
	// id matches nothing.
	if _, err := e.db.Collection("users").UpdateOne(ctx,
		bson.M{"_id": admin.CreatedBy},
		bson.M{"$pull": bson.M{"administrations_created": admin.ID}}); err != nil {
		return err
	}
	return nil
}

// HandleAdministrationChange is the change-triggered entry point for
// administration writes. Absent-before means creation, absent-after means
// deletion, both present means update. It is a pure function of the
// snapshot pair and idempotent with the synchronous path's output.
func (e *Engine) HandleAdministrationChange(ctx context.Context, before, after *models.Administration) error {
	switch {
	case before == nil && after == nil:
		return nil
	case before == nil:
		return e.SyncCreate(ctx, *after)
	case after == nil:
		return e.SyncDelete(ctx, *before)
	default:
		// Writes that touch neither targeting nor assignment content (stats
		// counters, tags) need no sync. This also keeps the change watcher
		// from reacting to the engine's own bookkeeping writes.
		if sameRefs(before.Orgs, after.Orgs) && assignmentContentEqual(*before, *after) {
			return nil
		}
		return e.SyncUpdate(ctx, *before, *after)
	}
}

// assignmentContentEqual compares the administration fields that are copied
// into assignment documents.
func assignmentContentEqual(a, b models.Administration) bool {
	if a.Sequential != b.Sequential ||
		!a.DateOpened.Equal(b.DateOpened) ||
		!a.DateClosed.Equal(b.DateClosed) ||
		len(a.Assessments) != len(b.Assessments) {
		return false
	}
	for i := range a.Assessments {
		if a.Assessments[i].TaskID != b.Assessments[i].TaskID ||
			a.Assessments[i].VariantID != b.Assessments[i].VariantID {
			return false
		}
	}
	return true
}
