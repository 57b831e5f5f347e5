// internal/app/features/assignments/routes.go
package assignments

import (
	"github.com/dalemusser/assesshub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Route("/{administrationID}", func(r chi.Router) {
		r.Get("/", h.ServeGet)
		r.Post("/start", h.ServeStart)
		r.Post("/complete", h.ServeComplete)
		r.Put("/progress/{taskID}", h.ServeProgress)
	})

	return r
}
