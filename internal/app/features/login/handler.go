// internal/app/features/login/handler.go
package login

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/assesshub/internal/app/features/apierr"
	loginstore "github.com/dalemusser/assesshub/internal/app/store/logins"
	userstore "github.com/dalemusser/assesshub/internal/app/store/users"
	"github.com/dalemusser/assesshub/internal/app/system/auth"
	"github.com/dalemusser/assesshub/internal/app/system/authutil"
	"github.com/dalemusser/assesshub/internal/app/system/ratelimit"
	"github.com/dalemusser/assesshub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB      *mongo.Database
	Log     *zap.Logger
	Users   *userstore.Store
	Logins  *loginstore.Store
	Limiter *ratelimit.LoginLimiter
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		DB:      db,
		Log:     logger,
		Users:   userstore.New(db),
		Logins:  loginstore.New(db),
		Limiter: ratelimit.NewLoginLimiter(),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	UserType string `json:"user_type"`
}

// ServeLogin authenticates an email/password pair and establishes a session.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, apierr.CodeInvalidArgument, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		apierr.Write(w, apierr.CodeInvalidArgument, "email and password are required")
		return
	}

	if allowed, reason := h.Limiter.Check(r, req.Email); !allowed {
		apierr.Write(w, apierr.CodeUnauthorized, reason)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			apierr.Write(w, apierr.CodeUnauthorized, "invalid email or password")
			return
		}
		apierr.Internal(w, h.Log, "login lookup failed", err)
		return
	}
	if u.Archived {
		apierr.Write(w, apierr.CodeUnauthorized, "invalid email or password")
		return
	}
	if u.PasswordHash == "" || !authutil.CheckPassword(req.Password, u.PasswordHash) {
		apierr.Write(w, apierr.CodeUnauthorized, "invalid email or password")
		return
	}

	su := auth.SessionUser{
		ID:       u.ID.Hex(),
		Name:     u.Name,
		Email:    u.Email,
		UserType: u.UserType,
	}
	if err := auth.SignInUser(w, r, su); err != nil {
		apierr.Internal(w, h.Log, "failed to establish session", err)
		return
	}

	h.Limiter.ResetEmail(req.Email)

	if err := h.Logins.CreateFrom(ctx, r, u.ID, "internal"); err != nil {
		// Login history is best-effort; the session is already established.
		h.Log.Warn("failed to record login", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(loginResponse{
		ID:       su.ID,
		Name:     su.Name,
		Email:    su.Email,
		UserType: su.UserType,
	})
}
