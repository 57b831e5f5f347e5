// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	administrationsfeature "github.com/dalemusser/assesshub/internal/app/features/administrations"
	assignmentsfeature "github.com/dalemusser/assesshub/internal/app/features/assignments"
	authgooglefeature "github.com/dalemusser/assesshub/internal/app/features/authgoogle"
	healthfeature "github.com/dalemusser/assesshub/internal/app/features/health"
	loginfeature "github.com/dalemusser/assesshub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/assesshub/internal/app/features/logout"
	orgsfeature "github.com/dalemusser/assesshub/internal/app/features/orgs"
	"github.com/dalemusser/assesshub/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. It initializes the session store, applies
// the session-loading middleware, and mounts the feature routers.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	if err := auth.InitSessionStore(appCfg.SessionKey, appCfg.SessionDomain, secure, logger); err != nil {
		logger.Error("session store init failed", zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()

	// Loads the SessionUser into context when signed in, so handlers can use
	// auth.CurrentUser(r).
	r.Use(auth.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication
	loginHandler := loginfeature.NewHandler(deps.MongoDatabase, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	googleHandler := authgooglefeature.NewHandler(deps.MongoDatabase,
		appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, logger)
	r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))

	// JSON API
	adminsHandler := administrationsfeature.NewHandler(deps.MongoDatabase, logger, deps.Engine)
	r.Mount("/api/administrations", administrationsfeature.Routes(adminsHandler))

	orgsHandler := orgsfeature.NewHandler(deps.MongoDatabase, logger, deps.Engine)
	r.Mount("/api/orgs", orgsfeature.Routes(orgsHandler))

	assignHandler := assignmentsfeature.NewHandler(deps.MongoDatabase, logger)
	r.Mount("/api/assignments", assignmentsfeature.Routes(assignHandler))

	return r, nil
}
