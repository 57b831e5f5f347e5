// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	userstore "github.com/dalemusser/assesshub/internal/app/store/users"
	"github.com/dalemusser/assesshub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It seeds
// the initial admin account and starts the background workers.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.AdminEmail != "" {
		if err := ensureAdmin(ctx, deps, appCfg.AdminEmail, logger); err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}
	}

	deps.StateCleanup.Start()

	if deps.Watcher != nil {
		deps.Watcher.Start()
	}

	return nil
}

// ensureAdmin promotes an existing user to admin, or creates a fresh admin
// account when no user has the given email yet. The created account has no
// password; it signs in through Google until a password is set.
func ensureAdmin(ctx context.Context, deps DBDeps, email string, logger *zap.Logger) error {
	users := userstore.New(deps.MongoDatabase)

	u, err := users.GetByEmail(ctx, email)
	if err == nil {
		if u.UserType == models.UserTypeAdmin {
			return nil
		}
		_, err = deps.MongoDatabase.Collection("users").UpdateByID(ctx, u.ID,
			bson.M{"$set": bson.M{"user_type": models.UserTypeAdmin}})
		if err != nil {
			return err
		}
		logger.Info("promoted user to admin",
			zap.String("user_id", u.ID.Hex()),
			zap.String("email", email))
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	created, err := users.Create(ctx, models.User{
		Name:     "Administrator",
		Email:    email,
		UserType: models.UserTypeAdmin,
	})
	if err != nil {
		return err
	}
	logger.Info("created admin user",
		zap.String("user_id", created.ID.Hex()),
		zap.String("email", email))
	return nil
}
