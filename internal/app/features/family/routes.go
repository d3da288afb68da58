// internal/app/features/family/routes.go
package family

import (
	"github.com/dalemusser/recipehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Get("/", h.ListMine)
		pr.Post("/", h.Create)

		pr.Post("/join", h.Join)

		pr.Get("/{id}", h.Get)
		pr.Put("/{id}", h.Update)
		pr.Post("/{id}/invite", h.Invite)
		pr.Post("/{id}/leave", h.Leave)
		pr.Get("/{id}/activity", h.Activity)

		// MEMBERS
		pr.Put("/{id}/members/{memberId}", h.UpdateMember)
		pr.Delete("/{id}/members/{memberId}", h.RemoveMember)
	})

	return r
}
