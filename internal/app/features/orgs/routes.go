// internal/app/features/orgs/routes.go
package orgs

import (
	"github.com/dalemusser/assesshub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for the org-unit API.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireUserType("admin"))

	r.Route("/{kind}", func(r chi.Router) {
		r.Post("/", h.ServeUpsert)
		r.Delete("/{unitID}", h.ServeDelete)
	})

	return r
}
