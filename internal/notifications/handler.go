package notifications

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskway/taskway/internal/guard"
	"github.com/taskway/taskway/internal/platform/httpx"
	"github.com/taskway/taskway/internal/shared"
)

// NotificationResponse mirrors an inbox row.
type NotificationResponse struct {
	ID          string         `json:"id"`
	RecipientID string         `json:"recipient_id"`
	Kind        string         `json:"kind"`
	Payload     map[string]any `json:"payload"`
	ReadAt      *string        `json:"read_at"`
	CreatedAt   string         `json:"created_at"`
}

func toResponse(n Notification) NotificationResponse {
	return NotificationResponse{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		Kind:        string(n.Kind),
		Payload:     n.Payload,
		ReadAt:      shared.ISOTimePtr(n.ReadAt),
		CreatedAt:   shared.ISOTime(n.CreatedAt),
	}
}

// Handler exposes inbox endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	resolver *guard.Resolver
}

// NewHandler builds the notifications Handler.
func NewHandler(logger *slog.Logger, service *Service, resolver *guard.Resolver) *Handler {
	return &Handler{logger: logger, service: service, resolver: resolver}
}

// MountRoutes registers inbox routes under the token-gated group.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.show)
	r.Put("/{id}/read", h.markRead)
	r.Delete("/{id}", h.remove)
}

func (h *Handler) anyRole(r *http.Request) (*guard.Principal, error) {
	return h.resolver.Authorize(r.Context(), guard.RoleMember, guard.RoleStaff, guard.RoleAdmin)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, err := h.anyRole(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	rows, pagination, err := h.service.List(r.Context(), p, guard.ParseFilter(r, "kind"))
	if err != nil {
		h.logger.Error("list notifications failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	data := make([]NotificationResponse, 0, len(rows))
	for _, row := range rows {
		data = append(data, toResponse(row))
	}
	httpx.List(w, pagination, data)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	p, err := h.anyRole(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	n, err := h.service.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*n))
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	p, err := h.anyRole(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	n, err := h.service.MarkRead(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*n))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	p, err := h.anyRole(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
