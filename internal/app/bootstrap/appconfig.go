// internal/app/bootstrap/appconfig.go
package bootstrap

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings like HTTP ports, TLS,
// logging level, and request limits. AppConfig is everything specific to
// AssessHub: database connection, sessions, OAuth, and the assignment sync
// engine's tuning knobs.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionDomain string // Cookie domain (blank means current host)

	// Base URL for OAuth callbacks
	BaseURL string // e.g., "https://assesshub.example.org" or "http://localhost:3000"

	// Google OAuth configuration
	GoogleClientID     string
	GoogleClientSecret string

	// Assignment sync engine tuning
	OrgChunkSize       int  // Org units per closure chunk
	WriteBatchSize     int  // Max write operations per transaction (hard cap 500)
	IndexCap           int  // Bound on a user's assigned-administrations index
	FullUpdateRollback bool // Restore the previous assignment set when an update sync fails

	// Change-stream reconciliation
	WatchChanges bool // Run the change watcher (requires a replica set)

	// Admin bootstrap
	AdminEmail string // Email of the initial admin user (promotes/creates on startup)
}
