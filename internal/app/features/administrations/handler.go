// internal/app/features/administrations/handler.go
package administrations

import (
	"github.com/dalemusser/assesshub/internal/app/assignsync"
	administrationstore "github.com/dalemusser/assesshub/internal/app/store/administrations"
	assignmentstore "github.com/dalemusser/assesshub/internal/app/store/assignments"
	orgunitstore "github.com/dalemusser/assesshub/internal/app/store/orgunits"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the administration API: definition CRUD plus the
// synchronous assignment fan-out that runs inside each write request.
type Handler struct {
	DB          *mongo.Database
	Log         *zap.Logger
	Admins      *administrationstore.Store
	Assignments *assignmentstore.Store
	OrgUnits    *orgunitstore.Store
	Engine      *assignsync.Engine
}

// NewHandler constructs an administrations Handler.
func NewHandler(db *mongo.Database, logger *zap.Logger, engine *assignsync.Engine) *Handler {
	return &Handler{
		DB:          db,
		Log:         logger,
		Admins:      administrationstore.New(db),
		Assignments: assignmentstore.New(db),
		OrgUnits:    orgunitstore.New(db),
		Engine:      engine,
	}
}
