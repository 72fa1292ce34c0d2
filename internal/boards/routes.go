package boards

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers board routes under the token-gated group.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.rename)
	r.Delete("/{id}", h.remove)
	r.Post("/{id}/members", h.addMember)
	r.Delete("/{id}/members/{accountID}", h.removeMember)
}
