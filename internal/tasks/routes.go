package tasks

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers task routes under the token-gated group.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
	r.Put("/{id}/assignee", h.assign)
	r.Delete("/{id}/assignee", h.unassign)
}
