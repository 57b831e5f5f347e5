package logout_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/assesshub/internal/app/features/logout"
	"github.com/dalemusser/assesshub/internal/app/system/auth"
	"go.uber.org/zap"
)

func TestServeLogout_ClearsSession(t *testing.T) {
	logger := zap.NewNop()
	if err := auth.InitSessionStore("test-session-key-for-testing-only", "", false, logger); err != nil {
		t.Fatalf("InitSessionStore failed: %v", err)
	}
	handler := logout.NewHandler(logger)

	req := httptest.NewRequest("POST", "/logout", nil)
	rec := httptest.NewRecorder()
	handler.ServeLogout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	// The deletion cookie must expire immediately.
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected an expiring session cookie")
	}
	for _, c := range cookies {
		if c.Name == auth.SessionName && c.MaxAge >= 0 {
			t.Errorf("expected MaxAge < 0 on session cookie, got %d", c.MaxAge)
		}
	}
}
