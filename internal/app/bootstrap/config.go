// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// maxWriteBatchSize is the ceiling on operations per sync transaction.
// Batches above this size risk oversized transactions on the server.
const maxWriteBatchSize = 500

// appConfigKeys defines the configuration keys for AssessHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_key, etc.
//   - Environment variables: ASSESSHUB_MONGO_URI, ASSESSHUB_SESSION_KEY, etc.
//   - Command-line flags: --mongo_uri, --session_key, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "assesshub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	{Name: "base_url", Default: "http://localhost:3000", Desc: "Externally visible base URL for OAuth callbacks"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	// Assignment sync engine tuning
	{Name: "org_chunk_size", Default: 100, Desc: "Org units per closure chunk when splitting a sync"},
	{Name: "write_batch_size", Default: 500, Desc: "Max write operations per sync transaction (1-500)"},
	{Name: "index_cap", Default: 0, Desc: "Bound on a user's assigned-administrations index (0 = unbounded)"},
	{Name: "full_update_rollback", Default: false, Desc: "Restore the previous assignment set when an update sync fails"},

	// Change-stream reconciliation
	{Name: "watch_changes", Default: true, Desc: "Run the change watcher (requires a MongoDB replica set)"},

	// Admin bootstrap
	{Name: "admin_email", Default: "", Desc: "Email of the initial admin user (promotes/creates on startup)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, ASSESSHUB_* for app), and
// command-line flags, merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "ASSESSHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionDomain: appValues.String("session_domain"),

		BaseURL: appValues.String("base_url"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		OrgChunkSize:       appValues.Int("org_chunk_size"),
		WriteBatchSize:     appValues.Int("write_batch_size"),
		IndexCap:           appValues.Int("index_cap"),
		FullUpdateRollback: appValues.Bool("full_update_rollback"),

		WatchChanges: appValues.Bool("watch_changes"),

		AdminEmail: appValues.String("admin_email"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// This catches configuration errors early, before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.WriteBatchSize < 1 || appCfg.WriteBatchSize > maxWriteBatchSize {
		return fmt.Errorf("write_batch_size must be between 1 and %d, got %d", maxWriteBatchSize, appCfg.WriteBatchSize)
	}
	if appCfg.OrgChunkSize < 1 {
		return fmt.Errorf("org_chunk_size must be positive, got %d", appCfg.OrgChunkSize)
	}
	if appCfg.IndexCap < 0 {
		return fmt.Errorf("index_cap must not be negative, got %d", appCfg.IndexCap)
	}

	return nil
}
