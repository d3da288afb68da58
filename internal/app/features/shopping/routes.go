// internal/app/features/shopping/routes.go
package shopping

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

		pr.Post("/{id}/items", h.AddItem)
		pr.Put("/{id}/items/{itemId}", h.UpdateItem)
		pr.Delete("/{id}/items/{itemId}", h.RemoveItem)
		pr.Post("/{id}/from-low-stock", h.FromLowStock)
	})

	return r
}
