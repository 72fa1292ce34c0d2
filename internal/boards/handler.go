package boards

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/taskway/taskway/internal/guard"
	"github.com/taskway/taskway/internal/platform/httpx"
	"github.com/taskway/taskway/internal/shared"
)

// Handler exposes board endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	resolver *guard.Resolver
	validate *validator.Validate
}

// NewHandler builds the boards Handler.
func NewHandler(logger *slog.Logger, service *Service, resolver *guard.Resolver) *Handler {
	return &Handler{logger: logger, service: service, resolver: resolver, validate: validator.New()}
}

// anyRole authorizes the request for all three roles; the guard scopes
// what each one can reach.
func (h *Handler) anyRole(r *http.Request) (*guard.Principal, error) {
	return h.resolver.Authorize(r.Context(), guard.RoleMember, guard.RoleStaff, guard.RoleAdmin)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, err := h.anyRole(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	rows, pagination, err := h.service.List(r.Context(), p, guard.ParseFilter(r))
	if err != nil {
		h.logger.Error("list boards failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	data := make([]BoardResponse, 0, len(rows))
	for _, row := range rows {
		data = append(data, toResponse(row))
	}
	httpx.List(w, pagination, data)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	p, err := h.anyRole(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var req CreateBoardRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.ErrValidation, "invalid body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.ErrValidation, "invalid board"))
		return
	}

	board, err := h.service.Create(r.Context(), p, req.Name)
	if err != nil {
		h.logger.Error("create board failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(*board))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	p, err := h.anyRole(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	board, err := h.service.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*board))
}

func (h *Handler) rename(w http.ResponseWriter, r *http.Request) {
	p, err := h.anyRole(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var req RenameBoardRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.ErrValidation, "invalid body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.ErrValidation, "invalid board"))
		return
	}

	board, err := h.service.Rename(r.Context(), p, chi.URLParam(r, "id"), req.Name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*board))
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

func (h *Handler) addMember(w http.ResponseWriter, r *http.Request) {
	p, err := h.anyRole(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var req AddMemberRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.ErrValidation, "invalid body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.ErrValidation, "invalid membership"))
		return
	}

	if err := h.service.AddMember(r.Context(), p, chi.URLParam(r, "id"), req.AccountID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	p, err := h.anyRole(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	if err := h.service.RemoveMember(r.Context(), p, chi.URLParam(r, "id"), chi.URLParam(r, "accountID")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
