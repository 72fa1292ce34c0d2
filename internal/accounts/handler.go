package accounts

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/taskway/taskway/internal/guard"
	"github.com/taskway/taskway/internal/platform/httpx"
	"github.com/taskway/taskway/internal/shared"
)

// accountsTable describes directory listings to the visibility builder.
// Only admins reach these endpoints, so the owner column is never used
// for scoping, but it keeps the table description complete.
var accountsTable = guard.Table{
	OwnerColumn:   "subject_id",
	SearchColumns: []string{"email", "display_name"},
	DateColumn:    "created_at",
	FilterColumns: []string{"role"},
	Sortable:      []string{"created_at", "email", "role"},
	DefaultSort:   "created_at",
	DefaultDesc:   true,
	DefaultLimit:  shared.DefaultPageSize,
}

// Handler exposes directory administration endpoints.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	resolver   *guard.Resolver
	visibility *guard.Visibility
	validate   *validator.Validate
}

// NewHandler builds the accounts Handler.
func NewHandler(logger *slog.Logger, service *Service, resolver *guard.Resolver, visibility *guard.Visibility) *Handler {
	return &Handler{
		logger:     logger,
		service:    service,
		resolver:   resolver,
		visibility: visibility,
		validate:   validator.New(),
	}
}

// MountRoutes registers the directory routes. All of them are
// admin-only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.register)
	r.Delete("/{role}/{id}", h.retire)
	r.Put("/{id}/tenant", h.assignTenant)
}

// AccountResponse mirrors a directory row. Timestamps render as RFC 3339
// strings; absent values render as explicit nulls.
type AccountResponse struct {
	SubjectID   string  `json:"subject_id"`
	Role        string  `json:"role"`
	Email       string  `json:"email"`
	DisplayName string  `json:"display_name"`
	DeletedAt   *string `json:"deleted_at"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toResponse(a Account) AccountResponse {
	return AccountResponse{
		SubjectID:   a.SubjectID,
		Role:        a.Role,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		DeletedAt:   shared.ISOTimePtr(a.DeletedAt),
		CreatedAt:   shared.ISOTime(a.CreatedAt),
		UpdatedAt:   shared.ISOTime(a.UpdatedAt),
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, err := h.resolver.Authorize(r.Context(), guard.RoleAdmin)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	filter := guard.ParseFilter(r, "role")
	scope, err := h.visibility.Build(r.Context(), p, accountsTable, filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	rows, total, err := h.service.List(r.Context(), scope)
	if err != nil {
		h.logger.Error("list accounts failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	data := make([]AccountResponse, 0, len(rows))
	for _, row := range rows {
		data = append(data, toResponse(row))
	}
	httpx.List(w, shared.NewPagination(scope.Page, scope.Limit, total), data)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	if _, err := h.resolver.Authorize(r.Context(), guard.RoleAdmin); err != nil {
		httpx.RespondError(w, err)
		return
	}

	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.ErrValidation, "invalid body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.ErrValidation, "invalid register request"))
		return
	}

	subjectID, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.logger.Error("register account failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"subject_id": subjectID})
}

func (h *Handler) retire(w http.ResponseWriter, r *http.Request) {
	if _, err := h.resolver.Authorize(r.Context(), guard.RoleAdmin); err != nil {
		httpx.RespondError(w, err)
		return
	}

	role := chi.URLParam(r, "role")
	id := chi.URLParam(r, "id")
	if err := h.service.Retire(r.Context(), role, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignTenantRequest struct {
	TenantID string `json:"tenant_id" validate:"required,max=100"`
}

func (h *Handler) assignTenant(w http.ResponseWriter, r *http.Request) {
	if _, err := h.resolver.Authorize(r.Context(), guard.RoleAdmin); err != nil {
		httpx.RespondError(w, err)
		return
	}

	var req assignTenantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.ErrValidation, "invalid body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.ErrValidation, "invalid tenant assignment"))
		return
	}

	if err := h.service.AssignTenant(r.Context(), chi.URLParam(r, "id"), req.TenantID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
