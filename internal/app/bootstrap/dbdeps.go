// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/assesshub/internal/app/assignsync"
	"github.com/dalemusser/assesshub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
// It is created in ConnectDB and passed to the later lifecycle hooks.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Engine runs the assignment synchronization passes. It is shared by
	// the HTTP handlers and the change watcher.
	Engine *assignsync.Engine

	// Watcher reconciles assignments from change streams. Nil when
	// watch_changes is off.
	Watcher *workers.ChangeWatcher

	// StateCleanup prunes abandoned OAuth state tokens.
	StateCleanup *workers.OAuthStateCleanup
}
