// internal/app/features/pantry/routes.go
package pantry

import (
	"github.com/dalemusser/recipehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Get("/", h.List)
		pr.Post("/", h.Create)
		pr.Get("/{id}", h.Get)
		pr.Put("/{id}", h.Update)
		pr.Delete("/{id}", h.Delete)
	})

	return r
}
