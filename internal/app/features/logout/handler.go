// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/assesshub/internal/app/system/auth"
	"go.uber.org/zap"
)

type Handler struct {
	Log *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

// ServeLogout clears the session cookie. It succeeds even when no session
// exists so clients can call it unconditionally.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	if err := auth.SignOutUser(w, r); err != nil {
		h.Log.Warn("failed to clear session during logout", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}
