// internal/app/features/orgs/handler.go
package orgs

import (
	"net/http"

	"github.com/dalemusser/assesshub/internal/app/assignsync"
	"github.com/dalemusser/assesshub/internal/app/features/apierr"
	administrationstore "github.com/dalemusser/assesshub/internal/app/store/administrations"
	orgunitstore "github.com/dalemusser/assesshub/internal/app/store/orgunits"
	userstore "github.com/dalemusser/assesshub/internal/app/store/users"
	"github.com/dalemusser/assesshub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the org-unit API: site/school/class/cohort CRUD plus the
// administration retargeting cascade on unit deletion.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	Units  *orgunitstore.Store
	Admins *administrationstore.Store
	Users  *userstore.Store
	Engine *assignsync.Engine
}

// NewHandler constructs an orgs Handler.
func NewHandler(db *mongo.Database, logger *zap.Logger, engine *assignsync.Engine) *Handler {
	return &Handler{
		DB:     db,
		Log:    logger,
		Units:  orgunitstore.New(db),
		Admins: administrationstore.New(db),
		Users:  userstore.New(db),
		Engine: engine,
	}
}

// parseKind maps the {kind} URL segment to a unit kind.
func parseKind(w http.ResponseWriter, r *http.Request) (models.UnitKind, bool) {
	switch chi.URLParam(r, "kind") {
	case "sites":
		return models.KindSite, true
	case "schools":
		return models.KindSchool, true
	case "classes":
		return models.KindClass, true
	case "cohorts":
		return models.KindCohort, true
	default:
		apierr.Write(w, apierr.CodeInvalidArgument, "unknown org unit kind")
		return "", false
	}
}

func parseUnitID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "unitID"))
	if err != nil {
		apierr.Write(w, apierr.CodeInvalidArgument, "invalid org unit id")
		return primitive.NilObjectID, false
	}
	return id, true
}
