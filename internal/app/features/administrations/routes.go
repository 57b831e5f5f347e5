// internal/app/features/administrations/routes.go
package administrations

import (
	"github.com/dalemusser/assesshub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for the administration API.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireUserType("admin", "teacher"))

	r.Get("/", h.ServeList)
	r.Post("/", h.ServeCreate)

	r.Route("/{administrationID}", func(r chi.Router) {
		r.Get("/", h.ServeGet)
		r.Put("/", h.ServeUpdate)
		r.Delete("/", h.ServeDelete)
		r.Get("/assignments", h.ServeAssignments)
	})

	return r
}
