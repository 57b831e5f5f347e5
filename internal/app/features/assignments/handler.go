// internal/app/features/assignments/handler.go
package assignments

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/assesshub/internal/app/features/apierr"
	assignmentstore "github.com/dalemusser/assesshub/internal/app/store/assignments"
	"github.com/dalemusser/assesshub/internal/app/system/auth"
	"github.com/dalemusser/assesshub/internal/app/system/timeouts"
	"github.com/dalemusser/assesshub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves a signed-in user's own assignments: listing them and
// recording start/completion/progress as they work through an administration.
type Handler struct {
	DB          *mongo.Database
	Log         *zap.Logger
	Assignments *assignmentstore.Store
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		Log:         logger,
		Assignments: assignmentstore.New(db),
	}
}

// ServeList returns the current user's assignments, newest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Assignments.ListByUser(ctx, userID)
	if err != nil {
		apierr.Internal(w, h.Log, "failed to list assignments", err)
		return
	}
	if list == nil {
		list = []models.Assignment{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

// ServeGet returns one of the current user's assignments.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	adminID, ok := parseAdministrationID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	a, err := h.Assignments.Get(ctx, userID, adminID)
	if err != nil {
		apierr.NotFoundOrInternal(w, h.Log, "assignment", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a)
}

// ServeStart marks the current user's assignment as started. Safe to retry:
// only the first call bumps the administration's started counter.
func (h *Handler) ServeStart(w http.ResponseWriter, r *http.Request) {
	h.mark(w, r, h.Assignments.MarkStarted)
}

// ServeComplete marks the current user's assignment as completed.
func (h *Handler) ServeComplete(w http.ResponseWriter, r *http.Request) {
	h.mark(w, r, h.Assignments.MarkCompleted)
}

func (h *Handler) mark(w http.ResponseWriter, r *http.Request, op func(context.Context, primitive.ObjectID, primitive.ObjectID) error) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	adminID, ok := parseAdministrationID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	// The store treats an absent assignment as a no-op; surface it as 404
	// instead.
	if _, err := h.Assignments.Get(ctx, userID, adminID); err != nil {
		apierr.NotFoundOrInternal(w, h.Log, "assignment", err)
		return
	}

	if err := op(ctx, userID, adminID); err != nil {
		apierr.Internal(w, h.Log, "failed to update assignment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type progressRequest struct {
	Status string `json:"status"`
}

// ServeProgress records per-task progress on the current user's assignment.
func (h *Handler) ServeProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	adminID, ok := parseAdministrationID(w, r)
	if !ok {
		return
	}
	taskID := chi.URLParam(r, "taskID")
	if taskID == "" {
		apierr.Write(w, apierr.CodeInvalidArgument, "task id is required")
		return
	}

	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		apierr.Write(w, apierr.CodeInvalidArgument, "status is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	a, err := h.Assignments.Get(ctx, userID, adminID)
	if err != nil {
		apierr.NotFoundOrInternal(w, h.Log, "assignment", err)
		return
	}
	if !taskInAssignment(a.Assessments, taskID) {
		apierr.Write(w, apierr.CodeInvalidArgument, "unknown task id")
		return
	}

	if err := h.Assignments.SetProgress(ctx, userID, adminID, taskID, req.Status); err != nil {
		apierr.Internal(w, h.Log, "failed to record progress", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func taskInAssignment(assessments []models.Assessment, taskID string) bool {
	for _, a := range assessments {
		if a.TaskID == taskID {
			return true
		}
	}
	return false
}

func currentUserID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok || u == nil {
		apierr.Write(w, apierr.CodeUnauthorized, "sign-in required")
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		apierr.Write(w, apierr.CodeUnauthorized, "sign-in required")
		return primitive.NilObjectID, false
	}
	return id, true
}

func parseAdministrationID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "administrationID"))
	if err != nil {
		apierr.Write(w, apierr.CodeInvalidArgument, "invalid administration id")
		return primitive.NilObjectID, false
	}
	return id, true
}
